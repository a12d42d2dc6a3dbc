package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"maasser/internal/core"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.Incomes(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Income{}
	}
	NewJSONResponse().Body(map[string][]core.Income{"incomes": list}).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	income, err := s.ledger.AddIncome(r.Context(), scopeOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/incomes/"+income.ID).
		Body(income).Write(w)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	income, err := s.ledger.UpdateIncome(r.Context(), scopeOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(income).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteIncome(r.Context(), scopeOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
