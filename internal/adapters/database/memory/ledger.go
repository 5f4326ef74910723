package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

func (s *Store) SaveCreditSystem(ctx context.Context, creditSystem domain.CreditSystem) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQCreditSystemCodename, creditSystem.CreditSystemID, creditSystem.Codename); err != nil {
			return err
		}
		st.creditSystems[creditSystem.CreditSystemID] = creditSystem
		return nil
	})
}

func (s *Store) FindCreditSystemByID(_ context.Context, creditSystemID string) (*domain.CreditSystem, error) {
	var out *domain.CreditSystem
	err := s.read(func(st *state) error {
		cs, ok := st.creditSystems[creditSystemID]
		if !ok {
			return notFound("credit system", creditSystemID)
		}
		out = &cs
		return nil
	})
	return out, err
}

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	return s.write(ctx, func(st *state) error {
		if account.CreditSystemID != "" {
			if _, ok := st.creditSystems[account.CreditSystemID]; !ok {
				return missingRef("credit system", account.CreditSystemID)
			}
		}
		account.Ownership = domain.Ownership{}
		st.accounts[account.AccountID] = account
		return nil
	})
}

func (st *state) account(id string) (domain.Account, bool) {
	a, ok := st.accounts[id]
	if ok {
		a.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedAccount, id)}
	}
	return a, ok
}

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	var out *domain.Account
	err := s.read(func(st *state) error {
		a, ok := st.account(accountID)
		if !ok {
			return notFound("account", accountID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (s *Store) FindAccountsByIDs(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	err := s.read(func(st *state) error {
		for _, id := range accountIDs {
			if a, ok := st.account(id); ok {
				out[id] = a
			}
		}
		return nil
	})
	return out, err
}

// FindAccountsByIDsForUpdate needs no extra locking: transactions are already serialized.
func (s *Store) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return s.FindAccountsByIDs(ctx, accountIDs)
}

func (s *Store) ListAccountsModifiedSince(_ context.Context, since time.Time, limit int, nextToken *string) ([]domain.Account, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	var rows []domain.Account
	err = s.read(func(st *state) error {
		for id, a := range st.accounts {
			if !a.LastModificationDate.After(since) {
				continue
			}
			if cursor != nil && !cursor.After(a.LastModificationDate, id) {
				continue
			}
			a, _ = st.account(id)
			rows = append(rows, a)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LastModificationDate.Equal(rows[j].LastModificationDate) {
			return rows[i].LastModificationDate.Before(rows[j].LastModificationDate)
		}
		return rows[i].AccountID < rows[j].AccountID
	})
	if len(rows) <= limit {
		return rows, nil, nil
	}
	rows = rows[:limit]
	last := rows[limit-1]
	token := pagination.EncodeToken(pagination.Cursor{At: last.LastModificationDate, ID: last.AccountID})
	return rows, &token, nil
}

func (s *Store) SaveJournal(ctx context.Context, journal domain.Journal) error {
	return s.write(ctx, func(st *state) error {
		if journal.ReversesJournalID != nil {
			if _, ok := st.journals[*journal.ReversesJournalID]; !ok {
				return missingRef("journal", *journal.ReversesJournalID)
			}
			if err := st.claim(domain.UQJournalReversal, journal.JournalID, *journal.ReversesJournalID); err != nil {
				return err
			}
		}
		postings := make([]domain.Posting, len(journal.Postings))
		for i, p := range journal.Postings {
			if _, ok := st.accounts[p.AccountID]; !ok {
				return missingRef("account", p.AccountID)
			}
			if p.CreditSystemID != "" {
				if _, ok := st.creditSystems[p.CreditSystemID]; !ok {
					return missingRef("credit system", p.CreditSystemID)
				}
			}
			p.Ownership = domain.Ownership{}
			postings[i] = p
		}
		remittances := make([]domain.Remittance, len(journal.Remittances))
		for i, r := range journal.Remittances {
			if r.CreditSystemID != "" {
				if _, ok := st.creditSystems[r.CreditSystemID]; !ok {
					return missingRef("credit system", r.CreditSystemID)
				}
			}
			if err := st.claim(domain.UQRemittanceKey, r.RemittanceID, r.TransactionID, r.Discriminator); err != nil {
				return err
			}
			r.Ownership = domain.Ownership{}
			remittances[i] = r
		}
		journal.Postings = postings
		journal.Remittances = remittances
		journal.Ownership = domain.Ownership{}
		st.journals[journal.JournalID] = journal
		return nil
	})
}

func (st *state) journal(id string, withLines bool) (domain.Journal, bool) {
	j, ok := st.journals[id]
	if !ok {
		return j, false
	}
	j.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedJournal, id)}
	if !withLines {
		j.Postings, j.Remittances = nil, nil
		return j, true
	}
	postings := make([]domain.Posting, len(j.Postings))
	for i, p := range j.Postings {
		p.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedPosting, p.PostingID)}
		postings[i] = p
	}
	remittances := make([]domain.Remittance, len(j.Remittances))
	for i, r := range j.Remittances {
		r.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedRemittance, r.RemittanceID)}
		remittances[i] = r
	}
	j.Postings, j.Remittances = postings, remittances
	return j, true
}

func (s *Store) FindJournalByID(_ context.Context, journalID string) (*domain.Journal, error) {
	var out *domain.Journal
	err := s.read(func(st *state) error {
		j, ok := st.journal(journalID, true)
		if !ok {
			return notFound("journal", journalID)
		}
		out = &j
		return nil
	})
	return out, err
}

func (s *Store) FindReversalOf(_ context.Context, journalID string) (*domain.Journal, error) {
	var out *domain.Journal
	err := s.read(func(st *state) error {
		id, ok := st.lookup(domain.UQJournalReversal, journalID)
		if !ok {
			return notFound("reversal of journal", journalID)
		}
		j, _ := st.journal(id, true)
		out = &j
		return nil
	})
	return out, err
}

func (s *Store) ListJournalsByType(_ context.Context, journalType domain.JournalType, limit int, nextToken *string) ([]domain.Journal, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	var rows []domain.Journal
	err = s.read(func(st *state) error {
		for id, j := range st.journals {
			if j.Type != journalType {
				continue
			}
			if cursor != nil && !cursor.Before(j.CommittedAt, id) {
				continue
			}
			j, _ = st.journal(id, false)
			rows = append(rows, j)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CommittedAt.Equal(rows[j].CommittedAt) {
			return rows[i].CommittedAt.After(rows[j].CommittedAt)
		}
		return rows[i].JournalID > rows[j].JournalID
	})
	if len(rows) <= limit {
		return rows, nil, nil
	}
	rows = rows[:limit]
	last := rows[limit-1]
	token := pagination.EncodeToken(pagination.Cursor{At: last.CommittedAt, ID: last.JournalID})
	return rows, &token, nil
}

func (s *Store) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, userID string, at time.Time) error {
	return s.write(ctx, func(st *state) error {
		for id, delta := range changes {
			a, ok := st.accounts[id]
			if !ok {
				return notFound("account", id)
			}
			a.Balance = a.Balance.Add(delta)
			a.LastModificationDate = at
			a.LastUpdatedAt = at
			a.LastUpdatedBy = userID
			st.accounts[id] = a
		}
		return nil
	})
}
