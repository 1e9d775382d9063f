package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/landedcost/internal/calculation"
	"github.com/Simplici0/landedcost/internal/pricing"
	"github.com/Simplici0/landedcost/internal/store"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code      string                         `json:"code"`
	Message   string                         `json:"message"`
	Details   []*pricing.ValidationError     `json:"details,omitempty"`
	Missing   map[pricing.RouteKind][]string `json:"required_params_per_route,omitempty"`
	RequestID string                         `json:"request_id,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

type historyResponse struct {
	PositionID   string                     `json:"position_id"`
	Calculations []store.CalculationSummary `json:"calculations"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", Cache: "memory"}
	status := http.StatusOK

	if err := s.db.PingContext(r.Context()); err != nil {
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		resp.Cache = "redis " + s.redis.State().String()
	}

	writeJSON(w, status, resp)
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req calculation.Request
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.svc.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, report.Missing)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req calculation.Request
	if !s.decode(w, r, &req) {
		return
	}

	v, err := s.svc.ValidateParams(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req calculation.Request
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.svc.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, out.Missing)
		return
	}
	writeOutcome(w, out)
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var ch pricing.Changes
	if !s.decode(w, r, &ch) {
		return
	}

	out, err := s.svc.Update(r.Context(), id, ch)
	if err != nil {
		s.writeError(w, r, err, out.Missing)
		return
	}
	writeOutcome(w, out)
}

func (s *server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "positionID")
	list, err := s.svc.History(r.Context(), positionID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if list == nil {
		list = []store.CalculationSummary{}
	}
	writeJSON(w, http.StatusOK, historyResponse{PositionID: positionID, Calculations: list})
}

func (s *server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if list == nil {
		list = []pricing.Category{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c pricing.Category
	if !s.decode(w, r, &c) {
		return
	}

	created, err := s.svc.CreateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_id", Message: "invalid category id"})
		return
	}

	var c pricing.Category
	if !s.decode(w, r, &c) {
		return
	}
	c.ID = id

	updated, err := s.svc.UpdateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// writeOutcome answers 201 for a stored result and 200 when input is missing.
func writeOutcome(w http.ResponseWriter, out pricing.Outcome) {
	status := http.StatusOK
	if out.Result != nil {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/calculations/"+out.Result.ID)
	}
	writeJSON(w, status, out)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:      "invalid_json",
			Message:   "request body is not valid JSON: " + err.Error(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error, missing map[pricing.RouteKind][]string) {
	status, body := classify(err)
	body.Missing = missing
	body.RequestID = middleware.GetReqID(r.Context())

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", body.RequestID,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	switch {
	case calculation.IsNotFound(err):
		return http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, pricing.ErrValidation):
		return http.StatusBadRequest, errorBody{
			Code:    "validation_failed",
			Message: "request is invalid",
			Details: pricing.ValidationErrors(err),
		}
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, errorBody{Code: "duplicate", Message: err.Error()}
	case errors.Is(err, pricing.ErrNoPriceableRoutes):
		return http.StatusUnprocessableEntity, errorBody{Code: "no_priceable_routes", Message: err.Error()}
	case errors.Is(err, pricing.ErrMissingRate):
		return http.StatusUnprocessableEntity, errorBody{Code: "missing_params", Message: err.Error()}
	case errors.Is(err, pricing.ErrCategoryUndetermined):
		return http.StatusUnprocessableEntity, errorBody{Code: "category_undetermined", Message: err.Error()}
	case errors.Is(err, pricing.ErrConfiguration):
		return http.StatusInternalServerError, errorBody{Code: "configuration_error", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
