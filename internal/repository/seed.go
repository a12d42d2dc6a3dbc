package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"maasser/internal/core"
)

// The demo dataset shown to visitors without an account.

func SeedIncomes() []core.Income {
	in := func(id string, amount int64, src core.IncomeSource, date time.Time, desc string) core.Income {
		a := decimal.NewFromInt(amount)
		return core.Income{ID: id, Amount: a, Source: src, Date: date, Description: desc, MaasserDue: core.MaasserFor(a)}
	}
	return []core.Income{
		in("1", 4500, core.SourceSalary, core.NewDate(2024, 1, 15), "Salaire janvier"),
		in("2", 4500, core.SourceSalary, core.NewDate(2024, 2, 15), "Salaire février"),
		in("3", 1200, core.SourceFreelance, core.NewDate(2024, 2, 20), "Projet web"),
		in("4", 500, core.SourceGift, core.NewDate(2024, 3, 5), "Cadeau Pourim"),
	}
}

func SeedDonations() []core.Donation {
	return []core.Donation{
		{ID: "d1", Amount: decimal.NewFromInt(200), BeneficiaryID: "b1", Date: core.NewDate(2024, 1, 20), Note: "Don mensuel"},
		{ID: "d2", Amount: decimal.NewFromInt(150), BeneficiaryID: "b2", Date: core.NewDate(2024, 2, 10)},
		{ID: "d3", Amount: decimal.NewFromInt(100), BeneficiaryID: "b3", Date: core.NewDate(2024, 2, 25), Note: "Pourim"},
	}
}

func SeedBeneficiaries() []core.Beneficiary {
	return []core.Beneficiary{
		{ID: "b1", Name: "Beth Habad", Category: core.CategorySynagogue, CreatedAt: core.NewDate(2023, 1, 1)},
		{ID: "b2", Name: "Yeshiva Or Torah", Category: core.CategoryYeshiva, CreatedAt: core.NewDate(2023, 1, 1)},
		{ID: "b3", Name: "Keren Hayeled", Category: core.CategoryCharity, CreatedAt: core.NewDate(2023, 6, 1)},
	}
}
