package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultRecentLimit is the length of the dashboard activity feed.
	DefaultRecentLimit = 5
	// DefaultHistoryLimit is the length of the combined history feed.
	DefaultHistoryLimit = 20
)

var hundred = decimal.NewFromInt(100)

// YearSummary aggregates obligation and donations for one calendar year.
type YearSummary struct {
	Year            int             `json:"year"`
	TotalIncome     decimal.Decimal `json:"totalIncome"`
	TotalMaasserDue decimal.Decimal `json:"totalMaasserDue"`
	TotalDonated    decimal.Decimal `json:"totalDonated"`
	Remaining       decimal.Decimal `json:"remaining"`
	PercentComplete decimal.Decimal `json:"percentComplete"`
}

type ActivityKind string

const (
	KindIncome      ActivityKind = "income"
	KindDonation    ActivityKind = "donation"
	KindBeneficiary ActivityKind = "beneficiary"
)

// Activity is one entry of a merged income/donation feed. Exactly one of
// Income and Donation is set, matching Kind.
type Activity struct {
	Kind     ActivityKind `json:"kind"`
	Income   *Income      `json:"income,omitempty"`
	Donation *Donation    `json:"donation,omitempty"`
}

func (a Activity) When() time.Time {
	if a.Kind == KindIncome && a.Income != nil {
		return a.Income.Date
	}
	if a.Donation != nil {
		return a.Donation.Date
	}
	return time.Time{}
}

// BeneficiaryStat is the donation total attributed to one beneficiary.
type BeneficiaryStat struct {
	Beneficiary   Beneficiary     `json:"beneficiary"`
	TotalDonated  decimal.Decimal `json:"totalDonated"`
	DonationCount int             `json:"donationCount"`
}

// ComputeYearSummary filters both collections to the given calendar year and
// sums them. Remaining never goes below zero and PercentComplete is clamped to
// [0, 100]; an empty year yields a zero summary.
func ComputeYearSummary(incomes []Income, donations []Donation, year int) YearSummary {
	s := YearSummary{
		Year:            year,
		TotalIncome:     decimal.Zero,
		TotalMaasserDue: decimal.Zero,
		TotalDonated:    decimal.Zero,
		Remaining:       decimal.Zero,
		PercentComplete: decimal.Zero,
	}
	for _, in := range incomes {
		if in.Date.Year() != year {
			continue
		}
		s.TotalIncome = s.TotalIncome.Add(in.Amount)
		s.TotalMaasserDue = s.TotalMaasserDue.Add(in.MaasserDue)
	}
	for _, d := range donations {
		if d.Date.Year() != year {
			continue
		}
		s.TotalDonated = s.TotalDonated.Add(d.Amount)
	}

	if rem := s.TotalMaasserDue.Sub(s.TotalDonated); rem.IsPositive() {
		s.Remaining = rem
	}
	if s.TotalMaasserDue.IsPositive() {
		pct := s.TotalDonated.Div(s.TotalMaasserDue).Mul(hundred)
		if pct.GreaterThan(hundred) {
			pct = hundred
		}
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		s.PercentComplete = pct
	}
	return s
}

func mergeActivity(incomes []Income, donations []Donation) []Activity {
	out := make([]Activity, 0, len(incomes)+len(donations))
	for i := range incomes {
		in := incomes[i]
		out = append(out, Activity{Kind: KindIncome, Income: &in})
	}
	for i := range donations {
		d := donations[i]
		out = append(out, Activity{Kind: KindDonation, Donation: &d})
	}
	slices.SortStableFunc(out, func(a, b Activity) int {
		return b.When().Compare(a.When())
	})
	return out
}

func truncate[T any](s []T, limit int) []T {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// RecentActivity merges incomes and donations newest first and keeps at most
// limit entries (DefaultRecentLimit when limit <= 0).
func RecentActivity(incomes []Income, donations []Donation, limit int) []Activity {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return truncate(mergeActivity(incomes, donations), limit)
}

// HistoryFeed merges the incomes and donations that pass the history filters,
// newest first. Year (0 = all) applies to both kinds; source ("" = all) only
// narrows incomes and beneficiaryID ("" = all) only narrows donations.
func HistoryFeed(incomes []Income, donations []Donation, year int, source IncomeSource, beneficiaryID string, limit int) []Activity {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	feed := mergeActivity(filterIncomes(incomes, year, source), filterDonations(donations, year, beneficiaryID))
	return truncate(feed, limit)
}

// AvailableYears returns every year holding a record plus the current year,
// deduplicated and sorted descending.
func AvailableYears(incomes []Income, donations []Donation, now time.Time) []int {
	seen := map[int]struct{}{now.Year(): {}}
	for _, in := range incomes {
		seen[in.Date.Year()] = struct{}{}
	}
	for _, d := range donations {
		seen[d.Date.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// BeneficiaryStats totals donations per beneficiary, largest total first.
// Donations referencing a missing beneficiary are not counted.
func BeneficiaryStats(beneficiaries []Beneficiary, donations []Donation) []BeneficiaryStat {
	idx := make(map[string]int, len(beneficiaries))
	stats := make([]BeneficiaryStat, len(beneficiaries))
	for i, b := range beneficiaries {
		idx[b.ID] = i
		stats[i] = BeneficiaryStat{Beneficiary: b, TotalDonated: decimal.Zero}
	}
	for _, d := range donations {
		i, ok := idx[d.BeneficiaryID]
		if !ok {
			continue
		}
		stats[i].TotalDonated = stats[i].TotalDonated.Add(d.Amount)
		stats[i].DonationCount++
	}
	slices.SortStableFunc(stats, func(a, b BeneficiaryStat) int {
		return b.TotalDonated.Cmp(a.TotalDonated)
	})
	return stats
}
