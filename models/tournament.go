package models

import "time"

// TournamentStatus mirrors the status column of the tournaments table.
type TournamentStatus string

const (
	StatusRunning   TournamentStatus = "running"
	StatusCompleted TournamentStatus = "completed"
)

// Tournament is one physical event. Imports find it again through its
// TournamentIdentity, not through the surrogate ID.
type Tournament struct {
	ID             int              `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Date           time.Time        `json:"date" db:"date"`
	City           *string          `json:"city,omitempty" db:"city"`
	Country        *string          `json:"country,omitempty" db:"country"`
	SanctionID     *string          `json:"tom_uid,omitempty" db:"tom_uid"`
	OrganizerPopID *string          `json:"organizer_popid,omitempty" db:"organizer_popid"`
	OrganizerID    *string          `json:"organizer_id,omitempty" db:"organizer_id"`
	Status         TournamentStatus `json:"status" db:"status"`
	TotalRounds    int              `json:"total_rounds" db:"total_rounds"`
	IsPublished    bool             `json:"is_published" db:"is_published"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// TournamentIdentity is the composite natural key used to recognise a
// re-imported tournament. Nil fields match NULL columns.
type TournamentIdentity struct {
	SanctionID     *string
	City           *string
	Country        *string
	OrganizerPopID *string
	Date           time.Time
}

func (t *Tournament) Identity() TournamentIdentity {
	return TournamentIdentity{
		SanctionID:     t.SanctionID,
		City:           t.City,
		Country:        t.Country,
		OrganizerPopID: t.OrganizerPopID,
		Date:           t.Date,
	}
}
