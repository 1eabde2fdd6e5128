package middleware

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/litian80/tcg-manager-sub000/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// GetPrincipalFromContext returns the caller set by Authenticate.
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	return p, ok
}

func principalFromClaims(claims jwt.MapClaims) (models.Principal, error) {
	rawID, ok := claims[jwtClaimUserID]
	if !ok {
		return models.Principal{}, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID string
	switch v := rawID.(type) {
	case string:
		userID = v
	case float64:
		if v != float64(int64(v)) || v <= 0 {
			return models.Principal{}, fmt.Errorf("invalid user ID value in '%s' claim: %v", jwtClaimUserID, v)
		}
		userID = strconv.FormatInt(int64(v), 10)
	default:
		return models.Principal{}, fmt.Errorf("invalid type for '%s' claim: expected string or number, got %T", jwtClaimUserID, rawID)
	}
	if userID == "" {
		return models.Principal{}, fmt.Errorf("empty '%s' claim in token", jwtClaimUserID)
	}

	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return models.Principal{}, fmt.Errorf("missing or invalid '%s' claim in token", jwtClaimRole)
	}
	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleOrganizer, models.RoleJudge, models.RoleUser:
	default:
		return models.Principal{}, fmt.Errorf("invalid role value in claim: %q", roleStr)
	}

	return models.Principal{UserID: userID, Role: role}, nil
}
