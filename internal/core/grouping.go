package core

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/language"
)

// Locale selects the language of month labels.
type Locale int

const (
	LocaleFrench Locale = iota
	LocaleEnglish
)

var supportedLocales = []language.Tag{language.French, language.English}

var localeMatcher = language.NewMatcher(supportedLocales)

var monthNames = map[Locale][12]string{
	LocaleFrench: {
		"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre",
	},
	LocaleEnglish: {
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
}

// MatchLocale negotiates a locale from a tag list such as "en-US" or an
// Accept-Language header. French wins when nothing matches.
func MatchLocale(accept string) Locale {
	if accept == "" {
		return LocaleFrench
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return LocaleFrench
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return LocaleFrench
	}
	return Locale(idx)
}

func (l Locale) Tag() language.Tag {
	if int(l) < 0 || int(l) >= len(supportedLocales) {
		return language.French
	}
	return supportedLocales[l]
}

// MonthLabel renders "MMMM yyyy", e.g. "janvier 2024" or "January 2024".
func (l Locale) MonthLabel(year int, month time.Month) string {
	names, ok := monthNames[l]
	if !ok {
		names = monthNames[LocaleFrench]
	}
	return fmt.Sprintf("%s %d", names[month-1], year)
}

// MonthGroup holds the records of one calendar month, newest first.
type MonthGroup[T any] struct {
	Label   string     `json:"label"`
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Records []T        `json:"records"`
}

type dated interface {
	When() time.Time
}

// groupByMonth sorts records newest first and partitions them by month.
// Groups keep first-seen order, so they are also newest first.
func groupByMonth[T dated](records []T, locale Locale) []MonthGroup[T] {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return b.When().Compare(a.When())
	})

	groups := []MonthGroup[T]{}
	for _, r := range sorted {
		y, m, _ := r.When().Date()
		n := len(groups)
		if n == 0 || groups[n-1].Year != y || groups[n-1].Month != m {
			groups = append(groups, MonthGroup[T]{
				Label: locale.MonthLabel(y, m),
				Year:  y,
				Month: m,
			})
			n++
		}
		groups[n-1].Records = append(groups[n-1].Records, r)
	}
	return groups
}

func filterIncomes(incomes []Income, year int, source IncomeSource) []Income {
	filtered := make([]Income, 0, len(incomes))
	for _, in := range incomes {
		if year != 0 && in.Date.Year() != year {
			continue
		}
		if source != "" && in.Source != source {
			continue
		}
		filtered = append(filtered, in)
	}
	return filtered
}

func filterDonations(donations []Donation, year int, beneficiaryID string) []Donation {
	filtered := make([]Donation, 0, len(donations))
	for _, d := range donations {
		if year != 0 && d.Date.Year() != year {
			continue
		}
		if beneficiaryID != "" && d.BeneficiaryID != beneficiaryID {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// GroupIncomesByMonth filters incomes by year (0 = all) and source ("" = all)
// and groups them by month.
func GroupIncomesByMonth(incomes []Income, year int, source IncomeSource, locale Locale) []MonthGroup[Income] {
	return groupByMonth(filterIncomes(incomes, year, source), locale)
}

// GroupDonationsByMonth filters donations by year (0 = all) and beneficiary
// id ("" = all) and groups them by month.
func GroupDonationsByMonth(donations []Donation, year int, beneficiaryID string, locale Locale) []MonthGroup[Donation] {
	return groupByMonth(filterDonations(donations, year, beneficiaryID), locale)
}
