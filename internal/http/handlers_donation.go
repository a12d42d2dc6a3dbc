package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"maasser/internal/core"
)

func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.Donations(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Donation{}
	}
	NewJSONResponse().Body(map[string][]core.Donation{"donations": list}).Write(w)
}

func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	donation, err := s.ledger.AddDonation(r.Context(), scopeOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/donations/"+donation.ID).
		Body(donation).Write(w)
}

func (s *Server) handleUpdateDonation(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	donation, err := s.ledger.UpdateDonation(r.Context(), scopeOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(donation).Write(w)
}

func (s *Server) handleDeleteDonation(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteDonation(r.Context(), scopeOf(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
