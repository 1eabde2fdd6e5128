package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/litian80/tcg-manager-sub000/middleware"
	"github.com/litian80/tcg-manager-sub000/services"
)

type ExportHandler struct {
	responder
	exportService services.ExportService
}

func NewExportHandler(es services.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{responder: responder{logger: logger}, exportService: es}
}

// Export godoc
// @Summary Download a TOM-compatible TDF for a tournament
// @Tags tdf
// @Produce application/xml
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {string} string "TDF document"
// @Failure 403 {object} map[string]string "Caller does not manage the tournament"
// @Failure 404 {object} map[string]string "Tournament not found"
// @Failure 422 {object} map[string]string "Tournament has no sanction id"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/export [get]
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.exportService.Export(r.Context(), id, principal)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(file.XML)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write export", slog.Int("tournament_id", id), slog.Any("error", err))
	}
}
