package core

import (
	"slices"
	"strings"
	"time"
)

// Mutations below never modify the slice they are given. Each returns a new
// collection; not-found cases return the input unchanged with ErrNotFound.
// Input validation is the caller's job.

func newIncome(id string, in IncomeInput) Income {
	return Income{
		ID:          id,
		Amount:      in.Amount,
		Source:      in.Source,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		MaasserDue:  MaasserFor(in.Amount),
	}
}

func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func replaceAt[T any](list []T, i int, v T) []T {
	out := slices.Clone(list)
	out[i] = v
	return out
}

func removeAt[T any](list []T, i int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// AddIncome records a new income at the head of the list.
func AddIncome(list []Income, id string, in IncomeInput) ([]Income, Income) {
	rec := newIncome(id, in)
	return prepend(list, rec), rec
}

// UpdateIncome replaces every mutable field of the income and recomputes MaasserDue.
func UpdateIncome(list []Income, id string, in IncomeInput) ([]Income, Income, error) {
	i := slices.IndexFunc(list, func(x Income) bool { return x.ID == id })
	if i < 0 {
		return list, Income{}, ErrNotFound
	}
	rec := newIncome(id, in)
	return replaceAt(list, i, rec), rec, nil
}

func DeleteIncome(list []Income, id string) ([]Income, error) {
	i := slices.IndexFunc(list, func(x Income) bool { return x.ID == id })
	if i < 0 {
		return list, ErrNotFound
	}
	return removeAt(list, i), nil
}

func newDonation(id string, in DonationInput) Donation {
	return Donation{
		ID:            id,
		Amount:        in.Amount,
		BeneficiaryID: in.BeneficiaryID,
		Date:          in.Date,
		Note:          strings.TrimSpace(in.Note),
	}
}

func AddDonation(list []Donation, id string, in DonationInput) ([]Donation, Donation) {
	rec := newDonation(id, in)
	return prepend(list, rec), rec
}

func UpdateDonation(list []Donation, id string, in DonationInput) ([]Donation, Donation, error) {
	i := slices.IndexFunc(list, func(x Donation) bool { return x.ID == id })
	if i < 0 {
		return list, Donation{}, ErrNotFound
	}
	rec := newDonation(id, in)
	return replaceAt(list, i, rec), rec, nil
}

func DeleteDonation(list []Donation, id string) ([]Donation, error) {
	i := slices.IndexFunc(list, func(x Donation) bool { return x.ID == id })
	if i < 0 {
		return list, ErrNotFound
	}
	return removeAt(list, i), nil
}

// AddBeneficiary records a new beneficiary. Duplicate names are allowed.
func AddBeneficiary(list []Beneficiary, id string, in BeneficiaryInput, now time.Time) ([]Beneficiary, Beneficiary) {
	rec := Beneficiary{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		Category:  in.Category,
		CreatedAt: now,
	}
	return prepend(list, rec), rec
}

// DeleteBeneficiary removes a beneficiary. Its donations are left in place and
// display as UnknownBeneficiaryLabel afterwards.
func DeleteBeneficiary(list []Beneficiary, id string) ([]Beneficiary, error) {
	i := slices.IndexFunc(list, func(x Beneficiary) bool { return x.ID == id })
	if i < 0 {
		return list, ErrNotFound
	}
	return removeAt(list, i), nil
}

// NormalizeIncomes recomputes MaasserDue from Amount and snaps Date to a
// calendar date for every income.
func NormalizeIncomes(list []Income) []Income {
	out := slices.Clone(list)
	for i := range out {
		out[i].MaasserDue = MaasserFor(out[i].Amount)
		out[i].Date = CalendarDate(out[i].Date)
	}
	return out
}

// NormalizeDonations snaps every donation Date to a calendar date.
func NormalizeDonations(list []Donation) []Donation {
	out := slices.Clone(list)
	for i := range out {
		out[i].Date = CalendarDate(out[i].Date)
	}
	return out
}
