package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreditSystem identifies an external monetary counterparty (a bank, a card network...).
type CreditSystem struct {
	CreditSystemID string    `json:"creditSystemID"`
	Codename       string    `json:"codename"` // Unique
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Account is a balance-bearing ledger account.
type Account struct {
	AccountID            string          `json:"accountID"`
	Name                 string          `json:"name"`
	CurrencyCode         string          `json:"currencyCode"`
	CreditSystemID       string          `json:"creditSystemID"` // optional
	Balance              decimal.Decimal `json:"balance"`
	LastModificationDate time.Time       `json:"lastModificationDate"` // indexed, change feed
	AuditFields
	Ownership
}

func (a Account) OwnedKind() OwnedKind { return OwnedAccount }
func (a Account) OwnedID() string      { return a.AccountID }

// JournalType discriminates the unit of work a journal represents.
type JournalType string

const (
	JournalGeneral    JournalType = "GENERAL"
	JournalInvoice    JournalType = "INVOICE"
	JournalSettlement JournalType = "SETTLEMENT"
	JournalReversal   JournalType = "REVERSAL"
)

// Journal groups the postings and remittances of one unit of accounting work.
// Committed journals are closed: they and their lines are never edited.
type Journal struct {
	JournalID            string       `json:"journalID"`
	Type                 JournalType  `json:"type"`
	Description          string       `json:"description"`
	ReversesJournalID    *string      `json:"reversesJournalID,omitempty"` // Unique when set
	CommittedAt          time.Time    `json:"committedAt"`
	LastModificationDate time.Time    `json:"lastModificationDate"`
	Postings             []Posting    `json:"postings,omitempty"`
	Remittances          []Remittance `json:"remittances,omitempty"`
	AuditFields
	Ownership
}

func (j Journal) OwnedKind() OwnedKind { return OwnedJournal }
func (j Journal) OwnedID() string      { return j.JournalID }

// Posting is a single signed ledger entry against an account.
type Posting struct {
	PostingID    string          `json:"postingID"`
	JournalID    string          `json:"journalID"` // Required FK, no cascade
	AccountID    string          `json:"accountID"`
	Amount       decimal.Decimal `json:"amount"` // signed
	CurrencyCode string          `json:"currencyCode"`

	// CreditSystemID is copied from the account with CurrencyCode. Empty when
	// the account is not tied to a credit system.
	CreditSystemID string    `json:"creditSystemID,omitempty"`
	Memo           string    `json:"memo"`
	CreatedAt      time.Time `json:"createdAt"`
	Ownership
}

func (p Posting) OwnedKind() OwnedKind { return OwnedPosting }
func (p Posting) OwnedID() string      { return p.PostingID }

// RemittanceKeyScheme selects which attribute, together with the TransactionID,
// identifies a remittance. Exactly one scheme holds per deployment.
type RemittanceKeyScheme string

const (
	RemittanceKeyCreditSystem RemittanceKeyScheme = "credit_system"
	RemittanceKeyLine         RemittanceKeyScheme = "line"
)

// IsValid reports whether s is a known scheme.
func (s RemittanceKeyScheme) IsValid() bool {
	return s == RemittanceKeyCreditSystem || s == RemittanceKeyLine
}

// Remittance records a real money movement tied to a journal.
type Remittance struct {
	RemittanceID   string          `json:"remittanceID"`
	JournalID      string          `json:"journalID"`
	TransactionID  string          `json:"transactionID"`
	CreditSystemID string          `json:"creditSystemID"`
	LineID         string          `json:"lineID"`
	Discriminator  string          `json:"discriminator"` // resolved from the deployment scheme
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currencyCode"`
	CreatedAt      time.Time       `json:"createdAt"`
	Ownership
}

func (r Remittance) OwnedKind() OwnedKind { return OwnedRemittance }
func (r Remittance) OwnedID() string      { return r.RemittanceID }

// RemittanceKey is the unique identity of a remittance under a scheme.
type RemittanceKey struct {
	TransactionID string
	Discriminator string
}

func (k RemittanceKey) String() string {
	return k.TransactionID + "/" + k.Discriminator
}

// KeyOf resolves the remittance key under scheme.
func (s RemittanceKeyScheme) KeyOf(r Remittance) (RemittanceKey, error) {
	if strings.TrimSpace(r.TransactionID) == "" {
		return RemittanceKey{}, fmt.Errorf("remittance transaction ID is required")
	}
	var disc string
	switch s {
	case RemittanceKeyCreditSystem:
		disc = r.CreditSystemID
	case RemittanceKeyLine:
		disc = r.LineID
	default:
		return RemittanceKey{}, fmt.Errorf("unknown remittance key scheme %q", s)
	}
	if strings.TrimSpace(disc) == "" {
		return RemittanceKey{}, fmt.Errorf("remittance %s requires a %s discriminator", r.TransactionID, s)
	}
	return RemittanceKey{TransactionID: r.TransactionID, Discriminator: disc}, nil
}

// BalanceGroup is the unit a journal must balance in.
type BalanceGroup struct {
	CurrencyCode   string
	CreditSystemID string
}

func (g BalanceGroup) String() string {
	if g.CreditSystemID == "" {
		return g.CurrencyCode
	}
	return g.CurrencyCode + "/" + g.CreditSystemID
}

// CurrencyImbalance reports a balance group whose postings do not sum to zero.
type CurrencyImbalance struct {
	BalanceGroup
	Sum decimal.Decimal
}

// Imbalances sums postings per currency and credit system and returns every
// non-zero group, ordered by currency code then credit system.
func Imbalances(postings []Posting) []CurrencyImbalance {
	sums := make(map[BalanceGroup]decimal.Decimal)
	for _, p := range postings {
		g := BalanceGroup{CurrencyCode: p.CurrencyCode, CreditSystemID: p.CreditSystemID}
		sums[g] = sums[g].Add(p.Amount)
	}
	var out []CurrencyImbalance
	for g, sum := range sums {
		if !sum.IsZero() {
			out = append(out, CurrencyImbalance{BalanceGroup: g, Sum: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrencyCode != out[j].CurrencyCode {
			return out[i].CurrencyCode < out[j].CurrencyCode
		}
		return out[i].CreditSystemID < out[j].CreditSystemID
	})
	return out
}

// BalanceChanges nets postings per account.
func BalanceChanges(postings []Posting) map[string]decimal.Decimal {
	changes := make(map[string]decimal.Decimal)
	for _, p := range postings {
		changes[p.AccountID] = changes[p.AccountID].Add(p.Amount)
	}
	return changes
}
