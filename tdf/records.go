package tdf

import (
	"fmt"
	"sort"

	"github.com/litian80/tcg-manager-sub000/models"
)

type WarningKind string

const (
	WarningPartialRosterFailure WarningKind = "PartialRosterFailure"
	WarningSkippedRecord        WarningKind = "SkippedRecord"
	WarningStorageUnavailable   WarningKind = "StorageUnavailable"
	WarningUnknownPlayer        WarningKind = "UnknownPlayer"
)

// Warning is a non-fatal problem met while processing a file.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Record is a win-loss-tie tally.
type Record struct {
	Wins   int
	Losses int
	Ties   int
}

func (r Record) String() string {
	return fmt.Sprintf("%d-%d-%d", r.Wins, r.Losses, r.Ties)
}

// RecordBook keeps the running record of every player for one import.
type RecordBook struct {
	records map[string]Record
}

func NewRecordBook() *RecordBook {
	return &RecordBook{records: make(map[string]Record)}
}

func (b *RecordBook) Get(playerID string) Record {
	return b.records[playerID]
}

// Apply scores one match and returns the display records for both slots.
// Finished matches show the record after the result; in-progress matches
// show the record entering the match and leave the book untouched.
func (b *RecordBook) Apply(outcome Outcome, p1, p2 string) (Record, Record) {
	r1, r2 := b.Get(p1), b.Get(p2)
	switch outcome {
	case OutcomePlayer1Win:
		r1.Wins++
		r2.Losses++
	case OutcomePlayer2Win:
		r1.Losses++
		r2.Wins++
	case OutcomeTie:
		r1.Ties++
		r2.Ties++
	case OutcomeBye:
		r1.Wins++
	default:
		return r1, r2
	}
	if p1 != "" {
		b.records[p1] = r1
	}
	if p2 != "" {
		b.records[p2] = r2
	}
	return r1, r2
}

// MatchPlan is the output of BuildMatches.
type MatchPlan struct {
	Matches  []models.Match
	MaxRound int
	Warnings []Warning
}

// BuildMatches flattens pods, rounds and matches into match rows. Rounds are
// replayed in ascending order inside each pod so that every display record
// reflects all earlier results. roster holds the player ids listed in the
// file; ids outside it are reported but kept.
func BuildMatches(tournamentID int, pods []Pod, roster map[string]bool) MatchPlan {
	var plan MatchPlan
	book := NewRecordBook()
	reported := make(map[string]bool)

	checkKnown := func(id string) {
		if id == "" || roster == nil || roster[id] || reported[id] {
			return
		}
		reported[id] = true
		plan.Warnings = append(plan.Warnings, Warning{
			Kind:    WarningUnknownPlayer,
			Message: fmt.Sprintf("player %s appears in a match but not in the player list", id),
		})
	}

	for _, pod := range pods {
		division := DivisionLabel(pod.Category)

		rounds := make([]Round, len(pod.Rounds))
		copy(rounds, pod.Rounds)
		sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })

		for _, round := range rounds {
			if round.Number > plan.MaxRound {
				plan.MaxRound = round.Number
			}
			for _, m := range round.Matches {
				outcome := ParseOutcome(m.OutcomeCode)
				p1, p2 := m.Player1ID, m.Player2ID

				switch {
				case outcome == OutcomeBye:
					if p1 == "" {
						p1 = p2
					}
					p2 = ""
				case p1 == "" && p2 != "":
					// Keep player1 populated; mirror the result to match.
					p1, p2 = p2, ""
					switch outcome {
					case OutcomePlayer1Win:
						outcome = OutcomePlayer2Win
					case OutcomePlayer2Win:
						outcome = OutcomePlayer1Win
					}
				}

				if p1 == "" {
					plan.Warnings = append(plan.Warnings, Warning{
						Kind:    WarningSkippedRecord,
						Message: fmt.Sprintf("skipping match with no players: %s R%d-T%d", division, round.Number, m.TableNumber),
					})
					continue
				}
				checkKnown(p1)
				checkKnown(p2)

				r1, r2 := book.Apply(outcome, p1, p2)

				row := models.Match{
					TournamentID:    tournamentID,
					RoundNumber:     round.Number,
					TableNumber:     m.TableNumber,
					Player1TomID:    p1,
					Outcome:         int(outcome),
					IsFinished:      outcome.Finished(),
					Division:        division,
					P1DisplayRecord: r1.String(),
				}
				if p2 != "" {
					row.Player2TomID = strPtr(p2)
					row.P2DisplayRecord = strPtr(r2.String())
				}
				switch outcome {
				case OutcomePlayer1Win, OutcomeBye:
					row.WinnerTomID = strPtr(p1)
				case OutcomePlayer2Win:
					if p2 != "" {
						row.WinnerTomID = strPtr(p2)
					}
				}
				plan.Matches = append(plan.Matches, row)
			}
		}
	}
	return plan
}

// DedupeStandings returns one standing per player, keeping the best (lowest)
// place when a player is listed in several pods.
func DedupeStandings(tournamentID int, st *Standings) []models.Standing {
	if st == nil {
		return nil
	}
	best := make(map[string]int)
	for _, pod := range st.Pods {
		for _, e := range pod.Entries {
			if e.PlayerID == "" || !e.HasPlace {
				continue
			}
			if cur, ok := best[e.PlayerID]; !ok || e.Place < cur {
				best[e.PlayerID] = e.Place
			}
		}
	}

	out := make([]models.Standing, 0, len(best))
	for id, place := range best {
		out = append(out, models.Standing{
			TournamentID: tournamentID,
			PlayerTomID:  id,
			Rank:         place,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].PlayerTomID < out[j].PlayerTomID
	})
	return out
}

func strPtr(s string) *string { return &s }
