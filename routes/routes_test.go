package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litian80/tcg-manager-sub000/handlers"
	"github.com/litian80/tcg-manager-sub000/middleware"
)

func TestWriteRoutesRequireOrganizer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Tournament: handlers.NewTournamentHandler(nil, logger),
		Roster:     handlers.NewRosterHandler(nil, logger),
		Import:     handlers.NewImportHandler(nil, 1024, logger),
		Export:     handlers.NewExportHandler(nil, logger),
	}, middleware.NewAuthenticator("secret", logger), []string{"*"})

	userToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u", "role": "user"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodPost, "/api/tournaments/import", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/tournaments/import", userToken, http.StatusForbidden},
		{http.MethodPost, "/api/tournaments/", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/tournaments/1/export", "", http.StatusUnauthorized},
		{http.MethodPatch, "/api/tournaments/1/publish", userToken, http.StatusForbidden},
		{http.MethodDelete, "/api/tournaments/1/roster/2", "", http.StatusUnauthorized},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/tournaments/1", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(""))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
