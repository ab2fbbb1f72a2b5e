// Package handlers implements the public certificate API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/issuance"
	"github.com/clearance-networks/cnd-service/internal/logger"
)

// IssueHandler handles POST /api/cnd/issue/{unitID} requests.
type IssueHandler struct {
	coordinator *issuance.Coordinator
}

func NewIssueHandler(coordinator *issuance.Coordinator) *IssueHandler {
	return &IssueHandler{coordinator: coordinator}
}

// HandleIssue godoc
//
//	@Summary		Issue a debt clearance certificate
//	@Description	Requests issuance of a clearance certificate for a unit. The
//	@Description	certificate is rendered and persisted synchronously and returned
//	@Description	with status PENDING; signing happens asynchronously. Poll the
//	@Description	validate endpoint to observe the terminal state.
//	@Description
//	@Description	Repeating an identical request within the rate-limit window
//	@Description	returns the already-issued certificate until the attempt
//	@Description	threshold is reached, after which requests are rejected with 429.
//
//	@Tags			CND
//	@Accept			json
//	@Produce		json
//	@Param			unitID	path		string			true	"Unit ID"
//	@Param			request	body		cnd.IssueRequest	true	"Issuance options"
//	@Success		202		{object}	cnd.IssueResponse
//	@Failure		400		{object}	cnd.ErrorResponse	"Malformed request"
//	@Failure		404		{object}	cnd.ErrorResponse	"Unit not found or inactive"
//	@Failure		422		{object}	cnd.ErrorResponse	"Unit has outstanding debts"
//	@Failure		429		{object}	cnd.ErrorResponse	"Too many identical requests"
//	@Router			/api/cnd/issue/{unitID} [post]
func (h *IssueHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)

	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		cnd.RespondWithError(w, r, cnd.NewMalformedRequestError("invalid unit ID"))
		return
	}

	var req cnd.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		reqLogger.Warn("failed to decode issue request", slog.String("error", err.Error()))
		cnd.RespondWithError(w, r, cnd.NewMalformedRequestError("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Channel == "" {
		req.Channel = "WEB"
	}

	resp, err := h.coordinator.Issue(ctx, unitID, req, clientAddress(r))
	if err != nil {
		cnd.RespondWithError(w, r, err)
		return
	}

	cnd.RespondWithJSON(w, http.StatusAccepted, resp)
}

// clientAddress extracts the originating client address, honouring proxy
// headers the same way the RealIP middleware does for logging.
func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
