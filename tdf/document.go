package tdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TournamentSchema declares the repeatable elements of a TOM tournament file.
var TournamentSchema = Schema{
	"players/player": true,
	"pods/pod":       true,
	"rounds/round":   true,
	"matches/match":  true,
	"standings/pod":  true,
	"pod/player":     true,
}

const dateLayout = "01/02/2006"

// Document is the typed view of a TOM tournament file.
type Document struct {
	Header    Header
	Data      TournamentData
	Players   []Player
	Pods      []Pod
	Standings *Standings
}

// Header holds the attributes of the root element.
type Header struct {
	Type     string
	Stage    string
	Version  string
	GameType string
	Mode     string
}

type TournamentData struct {
	Name           string
	SanctionID     string
	City           string
	State          string
	Country        string
	OrganizerPopID string
	OrganizerName  string
	StartDate      time.Time
}

type Player struct {
	UserID    string
	FirstName string
	LastName  string
	BirthDate string
}

type Pod struct {
	Category string
	Rounds   []Round
}

type Round struct {
	Number  int
	Matches []Match
}

type Match struct {
	TableNumber int
	OutcomeCode int
	Player1ID   string
	Player2ID   string
}

// Standings is present only when the file has a standings element.
type Standings struct {
	Pods []StandingsPod
}

type StandingsPod struct {
	Category string
	Type     string
	Entries  []StandingEntry
}

type StandingEntry struct {
	PlayerID string
	Place    int
	HasPlace bool
}

// Parse reads a TOM tournament file.
func Parse(data []byte) (*Document, error) {
	tree, err := ParseTree(data, TournamentSchema)
	if err != nil {
		return nil, err
	}

	root := tree.Get("tournament")
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: missing tournament root element", ErrSchemaViolation)
	}
	meta := root.Get("data")
	if !meta.IsObject() {
		return nil, fmt.Errorf("%w: missing tournament data element", ErrSchemaViolation)
	}

	doc := &Document{
		Header: Header{
			Type:     root.Get("type").String(),
			Stage:    root.Get("stage").String(),
			Version:  root.Get("version").String(),
			GameType: root.Get("gametype").String(),
			Mode:     root.Get("mode").String(),
		},
	}

	doc.Data, err = parseTournamentData(meta)
	if err != nil {
		return nil, err
	}

	for _, p := range root.Path("players", "player").List() {
		doc.Players = append(doc.Players, Player{
			UserID:    p.Get("userid").String(),
			FirstName: p.Get("firstname").String(),
			LastName:  p.Get("lastname").String(),
			BirthDate: p.Get("birthdate").String(),
		})
	}

	for _, p := range root.Path("pods", "pod").List() {
		doc.Pods = append(doc.Pods, parsePod(p))
	}

	if st := root.Get("standings"); !st.IsNull() {
		doc.Standings = &Standings{}
		for _, sp := range st.Get("pod").List() {
			pod := StandingsPod{
				Category: sp.Get("category").String(),
				Type:     sp.Get("type").String(),
			}
			for _, e := range sp.Get("player").List() {
				place, ok := e.Get("place").Int()
				pod.Entries = append(pod.Entries, StandingEntry{
					PlayerID: e.Get("id").String(),
					Place:    place,
					HasPlace: ok,
				})
			}
			doc.Standings.Pods = append(doc.Standings.Pods, pod)
		}
	}

	return doc, nil
}

func parseTournamentData(v Value) (TournamentData, error) {
	td := TournamentData{
		Name:           v.Get("name").String(),
		SanctionID:     v.Get("id").String(),
		City:           v.Get("city").String(),
		State:          v.Get("state").String(),
		Country:        v.Get("country").String(),
		OrganizerPopID: v.Path("organizer", "popid").String(),
		OrganizerName:  v.Path("organizer", "name").String(),
	}
	if td.Name == "" {
		return td, fmt.Errorf("%w: tournament name is missing", ErrSchemaViolation)
	}
	raw := v.Get("startdate").String()
	if raw == "" {
		return td, fmt.Errorf("%w: tournament start date is missing", ErrSchemaViolation)
	}
	d, err := ParseDate(raw)
	if err != nil {
		return td, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	td.StartDate = d
	return td, nil
}

func parsePod(v Value) Pod {
	pod := Pod{Category: v.Get("category").String()}
	for _, r := range v.Path("rounds", "round").List() {
		round := Round{Number: r.Get("number").IntOr(0)}
		for _, m := range r.Path("matches", "match").List() {
			p1 := m.Path("player1", "userid").String()
			if p1 == "" {
				p1 = m.Path("player", "userid").String()
			}
			round.Matches = append(round.Matches, Match{
				TableNumber: m.Get("tablenumber").IntOr(0),
				OutcomeCode: m.Get("outcome").IntOr(0),
				Player1ID:   p1,
				Player2ID:   m.Path("player2", "userid").String(),
			})
		}
		pod.Rounds = append(pod.Rounds, round)
	}
	return pod
}

// ParseDate reads TOM's MM/DD/YYYY date, ignoring any trailing time of day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected MM/DD/YYYY", s)
	}
	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected MM/DD/YYYY", s)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date %q: day out of range for month", s)
	}
	return d, nil
}

// FormatDate renders a date the way TOM writes it.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
