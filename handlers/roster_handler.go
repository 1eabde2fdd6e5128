package handlers

import (
	"log/slog"
	"net/http"

	"github.com/litian80/tcg-manager-sub000/middleware"
	"github.com/litian80/tcg-manager-sub000/services"
)

type RosterHandler struct {
	responder
	rosterService services.RosterService
}

func NewRosterHandler(rs services.RosterService, logger *slog.Logger) *RosterHandler {
	return &RosterHandler{responder: responder{logger: logger}, rosterService: rs}
}

// List godoc
// @Summary List the roster of a tournament
// @Tags roster
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/roster [get]
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	players, err := h.rosterService.List(r.Context(), id, viewerFromRequest(r))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Add godoc
// @Summary Add a player to the roster
// @Tags roster
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param input body services.AddRosterPlayerInput true "Player"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "Already in roster"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/roster [post]
func (h *RosterHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		h.errorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var input services.AddRosterPlayerInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	player, err := h.rosterService.Add(r.Context(), id, input, principal)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Remove godoc
// @Summary Remove a player from the roster
// @Tags roster
// @Param tournamentID path int true "Tournament ID"
// @Param playerID path int true "Player ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/roster/{playerID} [delete]
func (h *RosterHandler) Remove(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		h.errorResponse(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.rosterService.Remove(r.Context(), tournamentID, playerID, principal); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
