package domain_test

import (
	"testing"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posting(account, currency string, amount int64) domain.Posting {
	return domain.Posting{AccountID: account, CurrencyCode: currency, Amount: decimal.NewFromInt(amount)}
}

func creditPosting(account, currency, creditSystem string, amount int64) domain.Posting {
	p := posting(account, currency, amount)
	p.CreditSystemID = creditSystem
	return p
}

func TestImbalances(t *testing.T) {
	tests := []struct {
		name     string
		postings []domain.Posting
		want     []string
	}{
		{
			name:     "balanced pair",
			postings: []domain.Posting{posting("A", "USD", 100), posting("B", "USD", -100)},
		},
		{
			name:     "off by one",
			postings: []domain.Posting{posting("A", "USD", 100), posting("B", "USD", -99)},
			want:     []string{"USD"},
		},
		{
			name: "each currency balanced on its own",
			postings: []domain.Posting{
				posting("A", "USD", 100), posting("B", "USD", -100),
				posting("C", "EUR", 50), posting("D", "EUR", -50),
			},
		},
		{
			name: "balanced in total but not per currency",
			postings: []domain.Posting{
				posting("A", "USD", 100), posting("B", "EUR", -100),
			},
			want: []string{"EUR", "USD"},
		},
		{
			name: "same currency across credit systems",
			postings: []domain.Posting{
				creditPosting("A", "USD", "visa", 100), creditPosting("B", "USD", "amex", -100),
			},
			want: []string{"USD/amex", "USD/visa"},
		},
		{
			name: "each credit system balanced on its own",
			postings: []domain.Posting{
				creditPosting("A", "USD", "visa", 40), creditPosting("B", "USD", "visa", -40),
				posting("C", "USD", 10), posting("D", "USD", -10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.Imbalances(tt.postings)
			var currencies []string
			for _, g := range got {
				currencies = append(currencies, g.String())
			}
			assert.Equal(t, tt.want, currencies)
		})
	}
}

func TestBalanceChanges(t *testing.T) {
	changes := domain.BalanceChanges([]domain.Posting{
		posting("A", "USD", 100),
		posting("A", "USD", -30),
		posting("B", "USD", -70),
	})
	require.Len(t, changes, 2)
	assert.True(t, changes["A"].Equal(decimal.NewFromInt(70)))
	assert.True(t, changes["B"].Equal(decimal.NewFromInt(-70)))
}

func TestRemittanceKeyScheme_KeyOf(t *testing.T) {
	r := domain.Remittance{TransactionID: "T1", CreditSystemID: "cs-1", LineID: "line-9"}

	key, err := domain.RemittanceKeyCreditSystem.KeyOf(r)
	require.NoError(t, err)
	assert.Equal(t, domain.RemittanceKey{TransactionID: "T1", Discriminator: "cs-1"}, key)

	key, err = domain.RemittanceKeyLine.KeyOf(r)
	require.NoError(t, err)
	assert.Equal(t, "T1/line-9", key.String())

	_, err = domain.RemittanceKeyLine.KeyOf(domain.Remittance{TransactionID: "T1"})
	assert.Error(t, err)

	_, err = domain.RemittanceKeyCreditSystem.KeyOf(domain.Remittance{CreditSystemID: "cs-1"})
	assert.Error(t, err)

	_, err = domain.RemittanceKeyScheme("bogus").KeyOf(r)
	assert.Error(t, err)
	assert.False(t, domain.RemittanceKeyScheme("bogus").IsValid())
}

func TestEdgesOf(t *testing.T) {
	j := domain.Journal{JournalID: "J1", Ownership: domain.Ownership{UserIDs: []string{"u2", "u1", "u2", ""}}}
	edges := domain.EdgesOf(j)
	assert.Equal(t, []domain.OwnershipEdge{
		{Kind: domain.OwnedJournal, EntityID: "J1", UserID: "u1"},
		{Kind: domain.OwnedJournal, EntityID: "J1", UserID: "u2"},
	}, edges)
	assert.True(t, j.IsOwnedBy("u1"))
	assert.False(t, j.IsOwnedBy("u3"))
}
