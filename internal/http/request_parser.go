package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"maasser/internal/core"
	"maasser/internal/services"
)

const maxBodyBytes = 64 << 10

// amountValue accepts an amount as a JSON string ("12,50") or number (12.5).
type amountValue string

func (a *amountValue) UnmarshalJSON(b []byte) error {
	switch {
	case string(b) == "null":
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*a = amountValue(n.String())
	}
	return nil
}

type incomeRequest struct {
	Amount      amountValue `json:"amount"`
	Source      string      `json:"source"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
}

type donationRequest struct {
	Amount        amountValue `json:"amount"`
	BeneficiaryID string      `json:"beneficiaryId"`
	Date          string      `json:"date"`
	Note          string      `json:"note"`
}

type beneficiaryRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
}

func (req incomeRequest) input() (core.IncomeInput, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.IncomeInput{}, invalid(err)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.IncomeInput{}, invalid(err)
	}
	return core.IncomeInput{
		Amount:      amount,
		Source:      core.IncomeSource(sanitizeInput(req.Source)),
		Date:        date,
		Description: sanitizeInput(req.Description),
	}, nil
}

func (req donationRequest) input() (core.DonationInput, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.DonationInput{}, invalid(err)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.DonationInput{}, invalid(err)
	}
	return core.DonationInput{
		Amount:        amount,
		BeneficiaryID: sanitizeInput(req.BeneficiaryID),
		Date:          date,
		Note:          sanitizeInput(req.Note),
	}, nil
}

func (req beneficiaryRequest) input() core.BeneficiaryInput {
	return core.BeneficiaryInput{
		Name:     sanitizeInput(req.Name),
		Category: core.BeneficiaryCategory(sanitizeInput(req.Category)),
	}
}

// decodeJSON reads one JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxBodyBytes)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// parseDate parses YYYY-MM-DD as a UTC calendar date.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return t, nil
}

// parseYear reads ?year=. Missing or invalid values fall back to the current
// year; "all" (when allowAll) returns 0.
func parseYear(query url.Values, now time.Time, allowAll bool) int {
	v := strings.TrimSpace(query.Get("year"))
	if allowAll && v == "all" {
		return 0
	}
	if y, err := strconv.Atoi(v); err == nil && y >= 1900 && y <= 9999 {
		return y
	}
	return now.Year()
}

// parseLimit reads ?limit=, clamped to [1, upper]. Zero means the default.
func parseLimit(query url.Values, upper int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n < 1 {
		return 0
	}
	if n > upper {
		return upper
	}
	return n
}

// requestLocale prefers ?locale= and falls back to Accept-Language.
func requestLocale(r *http.Request) core.Locale {
	if v := strings.TrimSpace(r.URL.Query().Get("locale")); v != "" {
		return core.MatchLocale(v)
	}
	return core.MatchLocale(r.Header.Get("Accept-Language"))
}

// sanitizeInput trims and removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
