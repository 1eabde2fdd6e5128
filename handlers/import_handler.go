package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/litian80/tcg-manager-sub000/middleware"
	"github.com/litian80/tcg-manager-sub000/services"
)

type ImportHandler struct {
	responder
	importService  services.ImportService
	maxUploadBytes int64
}

func NewImportHandler(is services.ImportService, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		responder:      responder{logger: logger},
		importService:  is,
		maxUploadBytes: maxUploadBytes,
	}
}

type importResponse struct {
	Success bool `json:"success"`
	*services.ImportResult
}

type importFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Import godoc
// @Summary Import a TOM tournament file
// @Tags tdf
// @Description Accepts the raw TDF XML exported by TOM, reconciles the tournament, roster, matches and standings.
// @Accept application/xml
// @Produce json
// @Param published query bool false "Overrides the tournament's visibility"
// @Success 200 {object} map[string]interface{} "Import result with warnings"
// @Failure 400 {object} map[string]interface{} "Malformed or schema-violating file"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]interface{} "Sanction id held by a different tournament"
// @Failure 413 {object} map[string]interface{} "File too large"
// @Security BearerAuth
// @Router /tournaments/import [post]
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		h.fail(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	published, err := optionalBool(r, "published")
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			h.fail(w, r, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		h.fail(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		h.fail(w, r, http.StatusBadRequest, "request body must contain a TDF file")
		return
	}

	result, err := h.importService.Import(r.Context(), services.ImportInput{
		Body:       body,
		Published:  published,
		UploadedBy: principal,
	})
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "tdf import failed", slog.Any("error", err))
			h.fail(w, r, status, "the server encountered a problem and could not process the file")
			return
		}
		h.fail(w, r, status, err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, importResponse{Success: true, ImportResult: result}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *ImportHandler) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := writeJSON(w, status, importFailure{Success: false, Error: message}, nil); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write import response", slog.Any("error", err))
	}
}
