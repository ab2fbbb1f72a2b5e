package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/entity"
	"github.com/clearance-networks/cnd-service/internal/logger"
)

// request and responses

type CondominiumRequest struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	Number  string `json:"number"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Active  *bool  `json:"active"`
}

type UnitRequest struct {
	CondominiumID string `json:"condominium_id"`
	Code          string `json:"code"`
	Block         string `json:"block"`
	Active        *bool  `json:"active"`
}

type UnitStatusRequest struct {
	Active bool `json:"active"`
}

type DebtRequest struct {
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	DueDate     time.Time `json:"due_date"`
}

// HandleCreateCondominium godoc
//
//	@Summary	Create a new condominium
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		condominium	body		CondominiumRequest	true	"Condominium details"
//	@Success	201			{object}	entity.Condominium
//	@Failure	400			{string}	string	"Invalid request"
//	@Router		/admin/condominiums [post]
func HandleCreateCondominium(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		var req CondominiumRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		// Default active to true if not specified
		active := true
		if req.Active != nil {
			active = *req.Active
		}

		condominium := &entity.Condominium{
			Name:    req.Name,
			Street:  req.Street,
			Number:  req.Number,
			City:    req.City,
			State:   req.State,
			ZipCode: req.ZipCode,
			Active:  active,
		}
		if err := store.CreateCondominium(r.Context(), condominium); err != nil {
			reqLogger.Error("failed to create condominium", slog.String("error", err.Error()))
			http.Error(w, "Failed to create condominium", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(condominium); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleGetCondominium godoc
//
//	@Summary	Get condominium by ID
//	@Tags		Admin
//	@Produce	json
//	@Param		condominiumID	path		string	true	"Condominium ID"
//	@Success	200				{object}	entity.Condominium
//	@Failure	400				{string}	string	"Invalid condominium ID"
//	@Failure	404				{string}	string	"Condominium not found"
//	@Router		/admin/condominiums/{condominiumID} [get]
func HandleGetCondominium(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		condominiumID, err := uuid.Parse(chi.URLParam(r, "condominiumID"))
		if err != nil {
			http.Error(w, "Invalid condominium ID", http.StatusBadRequest)
			return
		}

		condominium, err := store.GetCondominium(r.Context(), condominiumID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Condominium not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to get condominium", slog.String("error", err.Error()))
			http.Error(w, "Failed to get condominium", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(condominium); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleCreateUnit godoc
//
//	@Summary	Create a new unit
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		unit	body		UnitRequest	true	"Unit details"
//	@Success	201		{object}	entity.Unit
//	@Failure	400		{string}	string	"Invalid request"
//	@Router		/admin/units [post]
func HandleCreateUnit(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		var req UnitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		condominiumID, err := uuid.Parse(req.CondominiumID)
		if err != nil {
			http.Error(w, "Invalid condominium_id", http.StatusBadRequest)
			return
		}
		if req.Code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		// Reject units pointing at a nonexistent condominium up front
		if _, err := store.GetCondominium(r.Context(), condominiumID); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Condominium not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to get condominium", slog.String("error", err.Error()))
			http.Error(w, "Failed to create unit", http.StatusInternalServerError)
			return
		}

		unit := &entity.Unit{
			CondominiumID: condominiumID,
			Code:          req.Code,
			Block:         req.Block,
			Active:        active,
		}
		if err := store.CreateUnit(r.Context(), unit); err != nil {
			reqLogger.Error("failed to create unit", slog.String("error", err.Error()))
			http.Error(w, "Failed to create unit", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(unit); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleGetUnit godoc
//
//	@Summary	Get unit by ID
//	@Tags		Admin
//	@Produce	json
//	@Param		unitID	path		string	true	"Unit ID"
//	@Success	200		{object}	entity.Unit
//	@Failure	400		{string}	string	"Invalid unit ID"
//	@Failure	404		{string}	string	"Unit not found"
//	@Router		/admin/units/{unitID} [get]
func HandleGetUnit(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
		if err != nil {
			http.Error(w, "Invalid unit ID", http.StatusBadRequest)
			return
		}

		unit, err := store.GetUnit(r.Context(), unitID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Unit not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to get unit", slog.String("error", err.Error()))
			http.Error(w, "Failed to get unit", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(unit); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleSetUnitStatus godoc
//
//	@Summary	Activate or deactivate a unit
//	@Tags		Admin
//	@Accept		json
//	@Param		unitID	path		string				true	"Unit ID"
//	@Param		status	body		UnitStatusRequest	true	"Desired status"
//	@Success	204		{string}	string	"Status updated"
//	@Failure	400		{string}	string	"Invalid request"
//	@Failure	404		{string}	string	"Unit not found"
//	@Router		/admin/units/{unitID}/status [put]
func HandleSetUnitStatus(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
		if err != nil {
			http.Error(w, "Invalid unit ID", http.StatusBadRequest)
			return
		}

		var req UnitStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := store.SetUnitActive(r.Context(), unitID, req.Active); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Unit not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to update unit status", slog.String("error", err.Error()))
			http.Error(w, "Failed to update unit status", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAddDebt godoc
//
//	@Summary	Register a debt against a unit
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		unitID	path		string		true	"Unit ID"
//	@Param		debt	body		DebtRequest	true	"Debt details"
//	@Success	201		{object}	entity.Debt
//	@Failure	400		{string}	string	"Invalid request"
//	@Failure	404		{string}	string	"Unit not found"
//	@Router		/admin/units/{unitID}/debts [post]
func HandleAddDebt(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
		if err != nil {
			http.Error(w, "Invalid unit ID", http.StatusBadRequest)
			return
		}

		var req DebtRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.AmountCents <= 0 {
			http.Error(w, "amount_cents must be positive", http.StatusBadRequest)
			return
		}

		if _, err := store.GetUnit(r.Context(), unitID); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Unit not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to get unit", slog.String("error", err.Error()))
			http.Error(w, "Failed to add debt", http.StatusInternalServerError)
			return
		}

		debt := &entity.Debt{
			UnitID:      unitID,
			Description: req.Description,
			AmountCents: req.AmountCents,
			DueDate:     req.DueDate,
		}
		if err := store.AddDebt(r.Context(), debt); err != nil {
			reqLogger.Error("failed to add debt", slog.String("error", err.Error()))
			http.Error(w, "Failed to add debt", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(debt); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleListDebts godoc
//
//	@Summary	List debts for a unit
//	@Tags		Admin
//	@Produce	json
//	@Param		unitID	path		string	true	"Unit ID"
//	@Success	200		{array}		entity.Debt
//	@Failure	400		{string}	string	"Invalid unit ID"
//	@Router		/admin/units/{unitID}/debts [get]
func HandleListDebts(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
		if err != nil {
			http.Error(w, "Invalid unit ID", http.StatusBadRequest)
			return
		}

		debts, err := store.ListDebts(r.Context(), unitID)
		if err != nil {
			reqLogger.Error("failed to list debts", slog.String("error", err.Error()))
			http.Error(w, "Failed to list debts", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(debts); err != nil {
			reqLogger.Error("failed to encode response", slog.String("error", err.Error()))
		}
	}
}

// HandleSettleDebt godoc
//
//	@Summary	Settle a debt
//	@Tags		Admin
//	@Param		debtID	path		string	true	"Debt ID"
//	@Success	204		{string}	string	"Debt settled"
//	@Failure	400		{string}	string	"Invalid debt ID"
//	@Failure	404		{string}	string	"Debt not found"
//	@Router		/admin/debts/{debtID}/settle [post]
func HandleSettleDebt(store entity.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())

		debtID, err := uuid.Parse(chi.URLParam(r, "debtID"))
		if err != nil {
			http.Error(w, "Invalid debt ID", http.StatusBadRequest)
			return
		}

		if err := store.SettleDebt(r.Context(), debtID); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				http.Error(w, "Debt not found", http.StatusNotFound)
				return
			}
			reqLogger.Error("failed to settle debt", slog.String("error", err.Error()))
			http.Error(w, "Failed to settle debt", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
