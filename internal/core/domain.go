package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	SourceSalary     IncomeSource = "salary"
	SourceFreelance  IncomeSource = "freelance"
	SourceGift       IncomeSource = "gift"
	SourceInvestment IncomeSource = "investment"
	SourceBonus      IncomeSource = "bonus"
	SourceOther      IncomeSource = "other"
)

const (
	CategorySynagogue    BeneficiaryCategory = "synagogue"
	CategoryYeshiva      BeneficiaryCategory = "yeshiva"
	CategoryCharity      BeneficiaryCategory = "charity"
	CategoryIndividual   BeneficiaryCategory = "individual"
	CategoryOrganization BeneficiaryCategory = "organization"
	CategoryOther        BeneficiaryCategory = "other"
)

// UnknownBeneficiaryLabel is shown for donations whose beneficiary no longer exists.
const UnknownBeneficiaryLabel = "Inconnu"

const (
	maxDescriptionLen = 200
	maxNameLen        = 100
)

type (
	IncomeSource        string
	BeneficiaryCategory string

	Income struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Source      IncomeSource    `json:"source"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description,omitempty"`
		MaasserDue  decimal.Decimal `json:"maasserDue"` // always Amount * 0.10
	}

	Donation struct {
		ID            string          `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		BeneficiaryID string          `json:"beneficiaryId"`
		Date          time.Time       `json:"date"`
		Note          string          `json:"note,omitempty"`
	}

	Beneficiary struct {
		ID        string              `json:"id"`
		Name      string              `json:"name"`
		Category  BeneficiaryCategory `json:"category,omitempty"`
		CreatedAt time.Time           `json:"createdAt"`
	}

	// IncomeInput carries every mutable field of an income.
	IncomeInput struct {
		Amount      decimal.Decimal
		Source      IncomeSource
		Date        time.Time
		Description string
	}

	// DonationInput carries every mutable field of a donation.
	DonationInput struct {
		Amount        decimal.Decimal
		BeneficiaryID string
		Date          time.Time
		Note          string
	}

	BeneficiaryInput struct {
		Name     string
		Category BeneficiaryCategory
	}
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidSource      = errors.New("invalid income source")
	ErrInvalidCategory    = errors.New("invalid beneficiary category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty beneficiary name")
	ErrMissingBeneficiary = errors.New("missing beneficiary")
)

func init() {
	// Amounts are persisted and served as JSON numbers, matching stored blobs.
	decimal.MarshalJSONWithoutQuotes = true
}

var incomeSourceLabels = map[IncomeSource]string{
	SourceSalary:     "Salaire",
	SourceFreelance:  "Freelance",
	SourceGift:       "Cadeau",
	SourceInvestment: "Investissement",
	SourceBonus:      "Prime",
	SourceOther:      "Autre",
}

var incomeSourceIcons = map[IncomeSource]string{
	SourceSalary:     "💼",
	SourceFreelance:  "💻",
	SourceGift:       "🎁",
	SourceInvestment: "📈",
	SourceBonus:      "🎉",
	SourceOther:      "💰",
}

var categoryLabels = map[BeneficiaryCategory]string{
	CategorySynagogue:    "Synagogue",
	CategoryYeshiva:      "Yeshiva",
	CategoryCharity:      "Tsédaka",
	CategoryIndividual:   "Particulier",
	CategoryOrganization: "Organisation",
	CategoryOther:        "Autre",
}

// IncomeSources returns every valid source in display order.
func IncomeSources() []IncomeSource {
	return []IncomeSource{SourceSalary, SourceFreelance, SourceGift, SourceInvestment, SourceBonus, SourceOther}
}

// BeneficiaryCategories returns every valid category in display order.
func BeneficiaryCategories() []BeneficiaryCategory {
	return []BeneficiaryCategory{CategorySynagogue, CategoryYeshiva, CategoryCharity, CategoryIndividual, CategoryOrganization, CategoryOther}
}

func (s IncomeSource) IsValid() bool {
	_, ok := incomeSourceLabels[s]
	return ok
}

// Label returns the display label, falling back to the raw value.
func (s IncomeSource) Label() string {
	if l, ok := incomeSourceLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s IncomeSource) Icon() string {
	if i, ok := incomeSourceIcons[s]; ok {
		return i
	}
	return incomeSourceIcons[SourceOther]
}

func (c BeneficiaryCategory) IsValid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display label; an unset category reads as "other".
func (c BeneficiaryCategory) Label() string {
	if c == "" {
		return categoryLabels[CategoryOther]
	}
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// When returns the date the record is bucketed by.
func (i Income) When() time.Time { return i.Date }

func (d Donation) When() time.Time { return d.Date }

func validateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func validateDate(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (in IncomeInput) Validate() error {
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if !in.Source.IsValid() {
		return ErrInvalidSource
	}
	if err := validateDate(in.Date); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (in DonationInput) Validate() error {
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(in.BeneficiaryID) == "" {
		return ErrMissingBeneficiary
	}
	if err := validateDate(in.Date); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Note) > maxDescriptionLen {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

func (in BeneficiaryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(in.Name) > maxNameLen {
		return errors.New("name too long (max 100 characters)")
	}
	if in.Category != "" && !in.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// FindBeneficiary looks a beneficiary up by id.
func FindBeneficiary(list []Beneficiary, id string) (Beneficiary, bool) {
	for _, b := range list {
		if b.ID == id {
			return b, true
		}
	}
	return Beneficiary{}, false
}

// BeneficiaryName resolves a donation's beneficiary id to a display name.
func BeneficiaryName(list []Beneficiary, id string) string {
	if b, ok := FindBeneficiary(list, id); ok {
		return b.Name
	}
	return UnknownBeneficiaryLabel
}

// NewDate creates a calendar date at UTC midnight.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// CalendarDate snaps t to the nearest UTC midnight. Older blobs stored the
// user's local midnight (2023-12-31T23:00:00Z for 1 January in Paris), which
// this maps back to the intended day for offsets between -11h and +12h.
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	if u.Sub(day) >= 12*time.Hour {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
