package services

import (
	"strings"

	"github.com/litian80/tcg-manager-sub000/models"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullableString trims s and maps the empty string to NULL.
func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func canManage(t *models.Tournament, principal models.Principal) bool {
	if principal.Role == models.RoleAdmin {
		return true
	}
	return principal.UserID != "" && derefString(t.OrganizerID) == principal.UserID
}

// canView hides unpublished tournaments from everyone who cannot manage them.
func canView(t *models.Tournament, viewer *models.Principal) bool {
	if t.IsPublished {
		return true
	}
	return viewer != nil && canManage(t, *viewer)
}
