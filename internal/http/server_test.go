package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maasser/internal/auth"
	"maasser/internal/cache"
	"maasser/internal/core"
	"maasser/internal/repository"
	"maasser/internal/services"
	"maasser/internal/storage"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testServer struct {
	*Server
	token string
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	dash := cache.NewLRUCache[services.Dashboard](16, time.Minute)
	ledger := services.NewLedgerService(repository.New(storage.NewMemoryStore(""), nil), dash, nil, nil)
	opts := Options{
		Ledger:             ledger,
		Verifier:           auth.NewVerifier(testSecret, true),
		DashboardCache:     dash,
		RateLimitPerMinute: 1000,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	token, err := auth.GenerateToken("user-1", testSecret, time.Hour)
	require.NoError(t, err)
	return &testServer{Server: s, token: token}
}

func (ts *testServer) do(method, target, body, token string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorBody](t, w).Error
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)

	_, err = NewServer(Options{
		Ledger:         services.NewLedgerService(repository.New(storage.NewMemoryStore(""), nil), nil, nil, nil),
		Verifier:       auth.NewVerifier(testSecret, true),
		TrustedProxies: []string{"not-a-cidr"},
	})
	assert.ErrorContains(t, err, "invalid CIDR")
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = ts.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestServer(t, func(o *Options) {
		o.Ping = func(context.Context) error { return errors.New("connection refused") }
	})
	w = down.do(http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboardDemo(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/dashboard?year=2024", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	d := decodeBody[services.Dashboard](t, w)
	assert.Equal(t, 2024, d.Summary.Year)
	assert.True(t, d.Summary.TotalIncome.Equal(decimal.NewFromInt(10700)))
	assert.True(t, d.Summary.TotalMaasserDue.Equal(decimal.NewFromInt(1070)))
	assert.True(t, d.Summary.TotalDonated.Equal(decimal.NewFromInt(450)))
	assert.True(t, d.Summary.Remaining.Equal(decimal.NewFromInt(620)))
	assert.Len(t, d.Recent, core.DefaultRecentLimit)
	assert.Contains(t, d.Years, 2024)
	assert.Len(t, d.Beneficiaries, 3)
}

func TestCreateIncomeReturnsMaasserDue(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/incomes",
		`{"amount":"1234,50","source":"salary","date":"2025-03-01","description":"Salaire mars"}`, ts.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decodeBody[core.Income](t, w)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "/api/incomes/"+got.ID, w.Header().Get("Location"))
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, got.MaasserDue.Equal(decimal.RequireFromString("123.45")))
	assert.Equal(t, core.SourceSalary, got.Source)

	// numeric amounts are accepted too
	w = ts.do(http.MethodPost, "/api/incomes", `{"amount":200,"source":"gift","date":"2025-03-02"}`, ts.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/api/incomes", "", ts.token)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[map[string][]core.Income](t, w)["incomes"]
	require.Len(t, list, 2)
	assert.True(t, list[0].MaasserDue.Equal(decimal.NewFromInt(20)))
}

func TestCreateIncomeValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"negative amount", `{"amount":"-5","source":"salary","date":"2025-01-01"}`, http.StatusUnprocessableEntity, "invalid amount"},
		{"zero amount", `{"amount":"0","source":"salary","date":"2025-01-01"}`, http.StatusUnprocessableEntity, "invalid amount"},
		{"text amount", `{"amount":"abc","source":"salary","date":"2025-01-01"}`, http.StatusUnprocessableEntity, "invalid amount"},
		{"unknown source", `{"amount":"10","source":"lottery","date":"2025-01-01"}`, http.StatusUnprocessableEntity, "invalid income source"},
		{"bad date", `{"amount":"10","source":"salary","date":"01/02/2025"}`, http.StatusUnprocessableEntity, "invalid date"},
		{"not json", `amount=10`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/incomes", tt.body, ts.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, errorOf(t, w))
			}
		})
	}
}

func TestUnknownIDReturnsNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		method, target, body string
	}{
		{http.MethodPut, "/api/incomes/missing", `{"amount":"10","source":"salary","date":"2025-01-01"}`},
		{http.MethodDelete, "/api/incomes/missing", ""},
		{http.MethodPut, "/api/donations/missing", `{"amount":"10","beneficiaryId":"b1","date":"2025-01-01"}`},
		{http.MethodDelete, "/api/donations/missing", ""},
		{http.MethodDelete, "/api/beneficiaries/missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := ts.do(tt.method, tt.target, tt.body, ts.token)
			assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
			assert.Equal(t, "record not found", errorOf(t, w))
		})
	}
}

func TestDonationLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/beneficiaries", `{"name":"Beth Habad","category":"synagogue"}`, ts.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decodeBody[core.Beneficiary](t, w)

	w = ts.do(http.MethodPost, "/api/donations",
		`{"amount":"50","beneficiaryId":"`+b.ID+`","date":"2025-04-01","note":"Chabbat"}`, ts.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	d := decodeBody[core.Donation](t, w)

	w = ts.do(http.MethodPut, "/api/donations/"+d.ID,
		`{"amount":"75","beneficiaryId":"`+b.ID+`","date":"2025-04-01"}`, ts.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeBody[core.Donation](t, w).Amount.Equal(decimal.NewFromInt(75)))

	w = ts.do(http.MethodGet, "/api/beneficiaries", "", ts.token)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[map[string][]core.BeneficiaryStat](t, w)["beneficiaries"]
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].DonationCount)
	assert.True(t, stats[0].TotalDonated.Equal(decimal.NewFromInt(75)))

	w = ts.do(http.MethodDelete, "/api/beneficiaries/"+b.ID, "", ts.token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// the donation outlives its beneficiary
	w = ts.do(http.MethodGet, "/api/donations", "", ts.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[map[string][]core.Donation](t, w)["donations"], 1)

	w = ts.do(http.MethodDelete, "/api/donations/"+d.ID, "", ts.token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCreateBeneficiaryValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/beneficiaries", `{"name":"   "}`, ts.token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "empty beneficiary name", errorOf(t, w))

	w = ts.do(http.MethodPost, "/api/donations", `{"amount":"5","date":"2025-01-01"}`, ts.token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing beneficiary", errorOf(t, w))
}

func TestScopesAreIsolated(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/incomes", `{"amount":"10","source":"bonus","date":"2025-01-01"}`, ts.token)
	require.Equal(t, http.StatusCreated, w.Code)

	other, err := auth.GenerateToken("user-2", testSecret, time.Hour)
	require.NoError(t, err)
	w = ts.do(http.MethodGet, "/api/incomes", "", other)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"incomes":[]}`, w.Body.String())

	// demo visitors still see the seed data
	w = ts.do(http.MethodGet, "/api/incomes", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[map[string][]core.Income](t, w)["incomes"], 4)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, func(o *Options) {
		o.Verifier = auth.NewVerifier(testSecret, false)
	})

	w := ts.do(http.MethodGet, "/api/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

	w = ts.do(http.MethodGet, "/api/dashboard", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := auth.GenerateToken("user-1", testSecret, -time.Minute)
	require.NoError(t, err)
	w = ts.do(http.MethodGet, "/api/dashboard", "", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token expired", errorOf(t, w))

	w = ts.do(http.MethodGet, "/api/dashboard", "", ts.token)
	assert.Equal(t, http.StatusOK, w.Code)

	// health stays public
	w = ts.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/history?year=2024&locale=en", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	h := decodeBody[services.History](t, w)
	require.Len(t, h.Incomes, 3)
	assert.Equal(t, "March 2024", h.Incomes[0].Label)
	assert.Equal(t, "January 2024", h.Incomes[2].Label)
	assert.Len(t, h.Feed, 7)

	r := httptest.NewRequest(http.MethodGet, "/api/history?year=2024&source=salary", nil)
	r.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	h = decodeBody[services.History](t, rec)
	require.Len(t, h.Incomes, 2)
	assert.Equal(t, "février 2024", h.Incomes[0].Label)

	w = ts.do(http.MethodGet, "/api/history?year=all&beneficiary=b2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	h = decodeBody[services.History](t, w)
	assert.Zero(t, h.Year)
	require.Len(t, h.Donations, 1)
	assert.Equal(t, "d2", h.Donations[0].Records[0].ID)

	w = ts.do(http.MethodGet, "/api/history?source=lottery", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestYears(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(http.MethodGet, "/api/years", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	years := decodeBody[map[string][]int](t, w)["years"]
	assert.Contains(t, years, 2024)
	assert.Contains(t, years, time.Now().Year())
}

func TestMaasserPreview(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/maasser?amount=250,50", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decodeBody[maasserPreview](t, w)
	assert.True(t, p.MaasserDue.Equal(decimal.RequireFromString("25.05")))

	w = ts.do(http.MethodGet, "/api/maasser?amount=abc", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid amount", errorOf(t, w))
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/years", "", "").Code)
	}
	w := ts.do(http.MethodGet, "/api/years", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// probes are not rate limited
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/healthz", "", "").Code)

	w = ts.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decodeBody[metricsResponse](t, w)
	assert.Equal(t, int64(1), m.RateLimited)
	assert.NotNil(t, m.DashboardCache)
}

func TestRoutingErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/years?f=../../etc/passwd", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPatch, "/api/incomes/1", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = ts.do(http.MethodGet, "/api/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
