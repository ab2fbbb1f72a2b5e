package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/logger"
	"github.com/clearance-networks/cnd-service/internal/validation"
)

// DownloadHandler handles GET /api/cnd/download/{code} requests.
type DownloadHandler struct {
	gateway *validation.Gateway
}

func NewDownloadHandler(gateway *validation.Gateway) *DownloadHandler {
	return &DownloadHandler{gateway: gateway}
}

// HandleDownload godoc
//
//	@Summary		Download the certificate document
//	@Description	Returns the stored certificate artifact for a validation
//	@Description	code. The signed artifact (a JWS over the certificate
//	@Description	document) is preferred; if signing has not completed yet the
//	@Description	raw rendered document is returned instead.
//	@Tags			CND
//	@Produce		application/octet-stream
//	@Param			code	path	string	true	"Validation code"
//	@Success		200		{file}	binary
//	@Failure		404		{object}	cnd.ErrorResponse	"Unknown validation code"
//	@Failure		409		{object}	cnd.ErrorResponse	"No document stored for this certificate"
//	@Router			/api/cnd/download/{code} [get]
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	data, signed, err := h.gateway.FetchArtifact(r.Context(), code)
	if err != nil {
		cnd.RespondWithError(w, r, err)
		return
	}

	filename := fmt.Sprintf("cnd-%s.json", code)
	if signed {
		filename = fmt.Sprintf("cnd-%s.jws", code)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logger.ContextRequestLogger(r.Context()).Error("failed to write document response",
			slog.String("error", err.Error()),
		)
	}
}
