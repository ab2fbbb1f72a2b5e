package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/validation"
)

// VerifyHashHandler handles POST /api/cnd/verify-hash/{code} requests.
type VerifyHashHandler struct {
	gateway *validation.Gateway
}

func NewVerifyHashHandler(gateway *validation.Gateway) *VerifyHashHandler {
	return &VerifyHashHandler{gateway: gateway}
}

// HandleVerifyHash godoc
//
//	@Summary		Verify a document hash
//	@Description	Checks whether the supplied digest matches the stored
//	@Description	certificate artifact. This endpoint always answers 200 with a
//	@Description	boolean: an unknown code, a missing document or a malformed
//	@Description	body all yield false rather than an error.
//	@Tags			CND
//	@Accept			json
//	@Produce		json
//	@Param			code	path		string					true	"Validation code"
//	@Param			request	body		cnd.VerifyHashRequest	true	"Candidate SHA-256 hex digest"
//	@Success		200		{object}	cnd.VerifyHashResponse
//	@Router			/api/cnd/verify-hash/{code} [post]
func (h *VerifyHashHandler) HandleVerifyHash(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req cnd.VerifyHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cnd.RespondWithJSON(w, http.StatusOK, cnd.VerifyHashResponse{Valid: false})
		return
	}
	defer r.Body.Close()

	valid := h.gateway.VerifyHash(r.Context(), code, req.Hash)
	cnd.RespondWithJSON(w, http.StatusOK, cnd.VerifyHashResponse{Valid: valid})
}
