package http

import (
	"encoding/json"
	"net/http"

	"budgeteer/internal/core"
	applog "budgeteer/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	budgets, err := s.budgets.List(ctx, owner)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	writeJSON(ctx, w, http.StatusOK, budgets)
}

// handleUpsertBudget creates the owner's budget for a category or replaces
// its limit.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	var in core.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	b, err := s.budgets.Upsert(ctx, owner, in)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	patch, err := ParseBudgetPatch(fields)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	b, err := s.budgets.Update(ctx, owner, r.PathValue("id"), patch)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	writeJSON(ctx, w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	if err := s.budgets.Delete(ctx, owner, r.PathValue("id")); err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	writeJSON(ctx, w, http.StatusOK, messageResponse{Message: "Budget deleted"})
}

func (s *Server) handleDeleteAllBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	n, err := s.budgets.DeleteAll(ctx, owner)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]int{"deleted": n})
}
