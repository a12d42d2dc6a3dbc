package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		in   string
		want Locale
	}{
		{"", LocaleFrench},
		{"fr", LocaleFrench},
		{"fr-FR", LocaleFrench},
		{"en", LocaleEnglish},
		{"en-US,en;q=0.9", LocaleEnglish},
		{"de-DE", LocaleFrench},
		{"not a tag!!", LocaleFrench},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchLocale(tt.in))
		})
	}
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "janvier 2024", LocaleFrench.MonthLabel(2024, time.January))
	assert.Equal(t, "février 2024", LocaleFrench.MonthLabel(2024, time.February))
	assert.Equal(t, "December 2023", LocaleEnglish.MonthLabel(2023, time.December))
}

func TestGroupIncomesByMonth(t *testing.T) {
	incomes := []Income{
		income("1", "4500", NewDate(2024, 1, 15)),
		income("2", "4500", NewDate(2024, 2, 15)),
		income("3", "1200", NewDate(2024, 2, 20)),
		income("old", "100", NewDate(2023, 2, 20)),
	}
	incomes[2].Source = SourceFreelance

	groups := GroupIncomesByMonth(incomes, 2024, "", LocaleFrench)
	require.Len(t, groups, 2)
	assert.Equal(t, "février 2024", groups[0].Label)
	assert.Equal(t, "janvier 2024", groups[1].Label)
	require.Len(t, groups[0].Records, 2)
	assert.Equal(t, "3", groups[0].Records[0].ID)
	assert.Equal(t, "2", groups[0].Records[1].ID)

	freelance := GroupIncomesByMonth(incomes, 2024, SourceFreelance, LocaleEnglish)
	require.Len(t, freelance, 1)
	assert.Equal(t, "February 2024", freelance[0].Label)
	assert.Len(t, freelance[0].Records, 1)

	all := GroupIncomesByMonth(incomes, 0, "", LocaleFrench)
	require.Len(t, all, 3)
	assert.Equal(t, "février 2023", all[2].Label)

	// input order is untouched
	assert.Equal(t, "1", incomes[0].ID)
}

func TestGroupDonationsByMonth(t *testing.T) {
	donations := []Donation{
		donation("d1", "200", "b1", NewDate(2024, 1, 20)),
		donation("d2", "150", "b2", NewDate(2024, 2, 10)),
		donation("d3", "100", "b3", NewDate(2024, 2, 25)),
	}

	groups := GroupDonationsByMonth(donations, 2024, "b2", LocaleFrench)
	require.Len(t, groups, 1)
	assert.Equal(t, "d2", groups[0].Records[0].ID)
	assert.Equal(t, time.February, groups[0].Month)

	assert.Empty(t, GroupDonationsByMonth(donations, 2019, "", LocaleFrench))
}

func TestGroupByMonthEmptyEncodesAsArray(t *testing.T) {
	groups := GroupIncomesByMonth(nil, 2024, SourceGift, LocaleFrench)
	require.NotNil(t, groups)

	raw, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	raw, err = json.Marshal(GroupDonationsByMonth([]Donation{donation("d1", "5", "b1", NewDate(2024, 1, 1))}, 2023, "", LocaleEnglish))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}
