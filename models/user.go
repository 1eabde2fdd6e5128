package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RoleJudge     UserRole = "judge"
	RoleUser      UserRole = "user"
)

// Principal is the caller identity carried by a verified access token.
type Principal struct {
	UserID string
	Role   UserRole
}
