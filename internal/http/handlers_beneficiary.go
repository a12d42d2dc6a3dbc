package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"maasser/internal/core"
)

// handleListBeneficiaries returns every beneficiary with its donation total.
func (s *Server) handleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Beneficiaries(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if stats == nil {
		stats = []core.BeneficiaryStat{}
	}
	NewJSONResponse().Body(map[string][]core.BeneficiaryStat{"beneficiaries": stats}).Write(w)
}

func (s *Server) handleCreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req beneficiaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.AddBeneficiary(r.Context(), scopeOf(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/beneficiaries/"+b.ID).
		Body(b).Write(w)
}

// handleDeleteBeneficiary leaves the beneficiary's donations in place; they
// are shown as unknown from then on.
func (s *Server) handleDeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteBeneficiary(r.Context(), scopeOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
