package models

import "time"

// Match is a pairing regenerated from the latest TOM file. Display records
// hold each player's W-L-T after the match when finished, or entering it when
// still in progress.
type Match struct {
	ID              int       `json:"id"`
	TournamentID    int       `json:"tournament_id"`
	RoundNumber     int       `json:"round_number"`
	TableNumber     int       `json:"table_number"`
	Player1TomID    string    `json:"player1_tom_id"`
	Player2TomID    *string   `json:"player2_tom_id"`
	WinnerTomID     *string   `json:"winner_tom_id"`
	Outcome         int       `json:"outcome"`
	IsFinished      bool      `json:"is_finished"`
	Division        string    `json:"division"`
	P1DisplayRecord string    `json:"p1_display_record"`
	P2DisplayRecord *string   `json:"p2_display_record"`
	CreatedAt       time.Time `json:"created_at"`
}
