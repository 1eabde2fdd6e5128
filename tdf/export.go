package tdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/litian80/tcg-manager-sub000/models"
)

const (
	exportType     = "2"
	exportStage    = "1"
	exportVersion  = "1.80"
	exportGameType = "TRADING_CARD_GAME"
	exportMode     = "LEAGUECHALLENGE"

	defaultCountry = "New Zealand"

	// PlaceholderBirthYear is written for every player. Birth years are not
	// stored per roster entry, so TOM receives this constant instead.
	PlaceholderBirthYear = 2012
	placeholderBirthDay  = "02/27"

	timestampLayout = "01/02/2006 15:04:05"
)

// ExportFile is a synthesized TDF document and its suggested file name.
type ExportFile struct {
	XML      string
	Filename string
}

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

// EscapeXML escapes the five reserved XML characters with named entities.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// Synthesize renders a tournament and its roster as a TDF file TOM can open.
func Synthesize(t *models.Tournament, players []models.Player, now time.Time) (*ExportFile, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: tournament", ErrMissingRequiredField)
	}
	sanctionID := deref(t.SanctionID)
	if sanctionID == "" {
		return nil, fmt.Errorf("%w: sanction id (TOM UID) is required to export a TDF", ErrMissingRequiredField)
	}

	country := deref(t.Country)
	if country == "" {
		country = defaultCountry
	}
	stamp := now.Format(timestampLayout)
	birthDate := fmt.Sprintf("%s/%d", placeholderBirthDay, PlaceholderBirthYear)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<tournament type="%s" stage="%s" version="%s" gametype="%s" mode="%s">`+"\n",
		exportType, exportStage, exportVersion, exportGameType, exportMode)

	b.WriteString("    <data>\n")
	fmt.Fprintf(&b, "        <name>%s</name>\n", EscapeXML(t.Name))
	fmt.Fprintf(&b, "        <id>%s</id>\n", EscapeXML(sanctionID))
	fmt.Fprintf(&b, "        <city>%s</city>\n", EscapeXML(deref(t.City)))
	b.WriteString("        <state></state>\n")
	fmt.Fprintf(&b, "        <country>%s</country>\n", EscapeXML(country))
	b.WriteString("        <roundtime>0</roundtime>\n")
	b.WriteString("        <finalsroundtime>0</finalsroundtime>\n")
	fmt.Fprintf(&b, "        <organizer popid=\"%s\" name=\"%s\"/>\n",
		EscapeXML(deref(t.OrganizerPopID)), EscapeXML(deref(t.OrganizerID)))
	fmt.Fprintf(&b, "        <startdate>%s</startdate>\n", FormatDate(t.Date))
	b.WriteString("        <lessswiss>false</lessswiss>\n")
	b.WriteString("        <autotablenumber>true</autotablenumber>\n")
	b.WriteString("        <overflowtablestart>0</overflowtablestart>\n")
	b.WriteString("    </data>\n")

	b.WriteString("    <timeelapsed>0</timeelapsed>\n")
	b.WriteString("    <players>\n")
	for _, p := range players {
		userID := deref(p.TomPlayerID)
		if userID == "" {
			userID = strconv.Itoa(p.ID)
		}
		fmt.Fprintf(&b, "        <player userid=\"%s\">\n", EscapeXML(userID))
		fmt.Fprintf(&b, "            <firstname>%s</firstname>\n", EscapeXML(p.FirstName))
		fmt.Fprintf(&b, "            <lastname>%s</lastname>\n", EscapeXML(p.LastName))
		fmt.Fprintf(&b, "            <birthdate>%s</birthdate>\n", birthDate)
		fmt.Fprintf(&b, "            <creationdate>%s</creationdate>\n", stamp)
		fmt.Fprintf(&b, "            <lastmodifieddate>%s</lastmodifieddate>\n", stamp)
		b.WriteString("        </player>\n")
	}
	b.WriteString("    </players>\n")
	b.WriteString("    <pods>\n    </pods>\n")
	b.WriteString("    <finalsoptions>\n    </finalsoptions>\n")
	b.WriteString("</tournament>\n")

	return &ExportFile{
		XML:      b.String(),
		Filename: ExportFilename(t.Name, sanctionID),
	}, nil
}

// ExportFilename replaces every character outside [A-Za-z0-9] in the
// tournament name with an underscore and appends the sanction id.
func ExportFilename(name, sanctionID string) string {
	clean := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	return fmt.Sprintf("%s_%s.tdf", clean, sanctionID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
