package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"maasser/internal/core"
	"maasser/internal/services"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year := parseYear(r.URL.Query(), s.now(), false)
	d, err := s.ledger.Dashboard(r.Context(), scopeOf(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.ledger.Years(r.Context(), scopeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string][]int{"years": years}).Write(w)
}

// handleHistory serves the month-grouped view. year=all spans every year.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := core.IncomeSource(sanitizeInput(q.Get("source")))
	if source != "" && !source.IsValid() {
		writeError(w, r, invalid(core.ErrInvalidSource))
		return
	}
	h, err := s.ledger.History(r.Context(), scopeOf(r), services.HistoryFilter{
		Year:          parseYear(q, s.now(), true),
		Source:        source,
		BeneficiaryID: sanitizeInput(q.Get("beneficiary")),
		Locale:        requestLocale(r),
		Limit:         parseLimit(q, 100),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(h).Write(w)
}

type maasserPreview struct {
	Amount     decimal.Decimal `json:"amount"`
	MaasserDue decimal.Decimal `json:"maasserDue"`
}

// handleMaasserPreview shows what an income of ?amount= would owe.
func (s *Server) handleMaasserPreview(w http.ResponseWriter, r *http.Request) {
	amount, err := core.ParseAmount(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		writeError(w, r, invalid(err))
		return
	}
	NewJSONResponse().Body(maasserPreview{Amount: amount, MaasserDue: core.MaasserFor(amount)}).Write(w)
}
