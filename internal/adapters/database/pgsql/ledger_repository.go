package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerflow/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PgxLedgerRepository persists credit systems, accounts and journals.
type PgxLedgerRepository struct {
	*BaseRepository
	owners *PgxOwnershipRepository
}

func newPgxLedgerRepository(base *BaseRepository, owners *PgxOwnershipRepository) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: base, owners: owners}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func (r *PgxLedgerRepository) SaveCreditSystem(ctx context.Context, creditSystem domain.CreditSystem) error {
	query := `
		INSERT INTO credit_systems (credit_system_id, codename, name, created_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db().Exec(ctx, query, creditSystem.CreditSystemID, creditSystem.Codename, creditSystem.Name, creditSystem.CreatedAt)
	if err != nil {
		return dbError("failed to save credit system "+creditSystem.Codename, err)
	}
	return nil
}

func (r *PgxLedgerRepository) FindCreditSystemByID(ctx context.Context, creditSystemID string) (*domain.CreditSystem, error) {
	query := `SELECT credit_system_id, codename, name, created_at FROM credit_systems WHERE credit_system_id = $1;`
	var cs domain.CreditSystem
	err := r.db().QueryRow(ctx, query, creditSystemID).Scan(&cs.CreditSystemID, &cs.Codename, &cs.Name, &cs.CreatedAt)
	if err != nil {
		return nil, findError("credit system", creditSystemID, err)
	}
	return &cs, nil
}

func (r *PgxLedgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (
			account_id, name, currency_code, credit_system_id, balance, last_modification_date,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10);
	`
	_, err := r.db().Exec(ctx, query,
		account.AccountID,
		account.Name,
		account.CurrencyCode,
		account.CreditSystemID,
		account.Balance,
		account.LastModificationDate,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return dbError("failed to save account "+account.AccountID, err)
	}
	return nil
}

const selectAccount = `
	SELECT account_id, name, currency_code, credit_system_id, balance, last_modification_date,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM accounts
`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var creditSystemID sql.NullString
	err := row.Scan(
		&a.AccountID,
		&a.Name,
		&a.CurrencyCode,
		&creditSystemID,
		&a.Balance,
		&a.LastModificationDate,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	if creditSystemID.Valid {
		a.CreditSystemID = creditSystemID.String
	}
	return a, err
}

// collectAccounts scans account rows and attaches their owners.
func (r *PgxLedgerRepository) collectAccounts(ctx context.Context, rows pgx.Rows) ([]domain.Account, error) {
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, dbError("failed to scan account rows", err)
	}
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.AccountID
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedAccount, ids)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].UserIDs = owners[accounts[i].AccountID]
	}
	return accounts, nil
}

func (r *PgxLedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	accounts, err := r.FindAccountsByIDs(ctx, []string{accountID})
	if err != nil {
		return nil, err
	}
	a, ok := accounts[accountID]
	if !ok {
		return nil, notFound("account", accountID)
	}
	return &a, nil
}

func (r *PgxLedgerRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return r.findAccounts(ctx, accountIDs, "")
}

// FindAccountsByIDsForUpdate locks in account_id order so concurrent journals
// touching overlapping accounts cannot deadlock.
func (r *PgxLedgerRepository) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return r.findAccounts(ctx, accountIDs, "FOR UPDATE")
}

func (r *PgxLedgerRepository) findAccounts(ctx context.Context, accountIDs []string, lock string) (map[string]domain.Account, error) {
	result := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return result, nil
	}
	ids := domain.UniqueSorted(accountIDs)
	rows, err := r.db().Query(ctx, selectAccount+` WHERE account_id = ANY($1) ORDER BY account_id `+lock+`;`, ids)
	if err != nil {
		return nil, dbError("failed to query accounts", err)
	}
	accounts, err := r.collectAccounts(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		result[a.AccountID] = a
	}
	return result, nil
}

func (r *PgxLedgerRepository) ListAccountsModifiedSince(ctx context.Context, since time.Time, limit int, nextToken *string) ([]domain.Account, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	args := []any{since}
	cursorClause := ""
	if cursor != nil {
		cursorClause = `AND (last_modification_date, account_id) > ($2, $3)`
		args = append(args, cursor.At, cursor.ID)
	}
	args = append(args, limit+1)
	query := fmt.Sprintf(`%s WHERE last_modification_date > $1 %s ORDER BY last_modification_date, account_id LIMIT $%d;`,
		selectAccount, cursorClause, len(args))

	rows, err := r.db().Query(ctx, query, args...)
	if err != nil {
		return nil, nil, dbError("failed to query modified accounts", err)
	}
	accounts, err := r.collectAccounts(ctx, rows)
	if err != nil {
		return nil, nil, err
	}
	if len(accounts) <= limit {
		return accounts, nil, nil
	}
	accounts = accounts[:limit]
	last := accounts[limit-1]
	token := pagination.EncodeToken(pagination.Cursor{At: last.LastModificationDate, ID: last.AccountID})
	return accounts, &token, nil
}

// SaveJournal writes the header, postings and remittances in one batch. The
// remittance unique key is checked by the insert itself.
func (r *PgxLedgerRepository) SaveJournal(ctx context.Context, journal domain.Journal) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO journals (
			journal_id, journal_type, description, reverses_journal_id, committed_at, last_modification_date,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`,
		journal.JournalID,
		journal.Type,
		journal.Description,
		journal.ReversesJournalID,
		journal.CommittedAt,
		journal.LastModificationDate,
		journal.CreatedAt,
		journal.CreatedBy,
		journal.LastUpdatedAt,
		journal.LastUpdatedBy,
	)
	for _, p := range journal.Postings {
		batch.Queue(`
			INSERT INTO postings (posting_id, journal_id, account_id, amount, currency_code, credit_system_id, memo, created_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8);
		`, p.PostingID, journal.JournalID, p.AccountID, p.Amount, p.CurrencyCode, p.CreditSystemID, p.Memo, p.CreatedAt)
	}
	for _, rm := range journal.Remittances {
		batch.Queue(`
			INSERT INTO remittances (
				remittance_id, journal_id, transaction_id, credit_system_id, line_id, discriminator,
				amount, currency_code, created_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9);
		`,
			rm.RemittanceID,
			journal.JournalID,
			rm.TransactionID,
			rm.CreditSystemID,
			rm.LineID,
			rm.Discriminator,
			rm.Amount,
			rm.CurrencyCode,
			rm.CreatedAt,
		)
	}
	return r.inTx(ctx, func(q querier) error {
		return sendBatch(ctx, q, batch, "failed to save journal "+journal.JournalID)
	})
}

const selectJournal = `
	SELECT journal_id, journal_type, description, reverses_journal_id, committed_at, last_modification_date,
	       created_at, created_by, last_updated_at, last_updated_by
	FROM journals
`

func scanJournal(row pgx.Row) (domain.Journal, error) {
	var j domain.Journal
	var reversesID sql.NullString
	err := row.Scan(
		&j.JournalID,
		&j.Type,
		&j.Description,
		&reversesID,
		&j.CommittedAt,
		&j.LastModificationDate,
		&j.CreatedAt,
		&j.CreatedBy,
		&j.LastUpdatedAt,
		&j.LastUpdatedBy,
	)
	if reversesID.Valid {
		j.ReversesJournalID = &reversesID.String
	}
	return j, err
}

func (r *PgxLedgerRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	return r.findJournal(ctx, `WHERE journal_id = $1`, "journal", journalID)
}

func (r *PgxLedgerRepository) FindReversalOf(ctx context.Context, journalID string) (*domain.Journal, error) {
	return r.findJournal(ctx, `WHERE reverses_journal_id = $1`, "reversal of journal", journalID)
}

func (r *PgxLedgerRepository) findJournal(ctx context.Context, where, kind, id string) (*domain.Journal, error) {
	j, err := scanJournal(r.db().QueryRow(ctx, selectJournal+where+`;`, id))
	if err != nil {
		return nil, findError(kind, id, err)
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedJournal, []string{j.JournalID})
	if err != nil {
		return nil, err
	}
	j.UserIDs = owners[j.JournalID]

	if j.Postings, err = r.findPostings(ctx, j.JournalID); err != nil {
		return nil, err
	}
	if j.Remittances, err = r.findRemittances(ctx, j.JournalID); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *PgxLedgerRepository) findPostings(ctx context.Context, journalID string) ([]domain.Posting, error) {
	query := `
		SELECT posting_id, journal_id, account_id, amount, currency_code, COALESCE(credit_system_id, ''), memo, created_at
		FROM postings
		WHERE journal_id = $1
		ORDER BY created_at, posting_id;
	`
	rows, err := r.db().Query(ctx, query, journalID)
	if err != nil {
		return nil, dbError("failed to query postings for journal "+journalID, err)
	}
	postings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Posting, error) {
		var p domain.Posting
		var amount decimal.Decimal
		err := row.Scan(&p.PostingID, &p.JournalID, &p.AccountID, &amount, &p.CurrencyCode, &p.CreditSystemID, &p.Memo, &p.CreatedAt)
		p.Amount = amount
		return p, err
	})
	if err != nil {
		return nil, dbError("failed to scan posting rows for journal "+journalID, err)
	}

	ids := make([]string, len(postings))
	for i, p := range postings {
		ids[i] = p.PostingID
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedPosting, ids)
	if err != nil {
		return nil, err
	}
	for i := range postings {
		postings[i].UserIDs = owners[postings[i].PostingID]
	}
	return postings, nil
}

func (r *PgxLedgerRepository) findRemittances(ctx context.Context, journalID string) ([]domain.Remittance, error) {
	query := `
		SELECT remittance_id, journal_id, transaction_id, COALESCE(credit_system_id, ''), line_id, discriminator,
		       amount, currency_code, created_at
		FROM remittances
		WHERE journal_id = $1
		ORDER BY created_at, remittance_id;
	`
	rows, err := r.db().Query(ctx, query, journalID)
	if err != nil {
		return nil, dbError("failed to query remittances for journal "+journalID, err)
	}
	remittances, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Remittance, error) {
		var rm domain.Remittance
		err := row.Scan(
			&rm.RemittanceID,
			&rm.JournalID,
			&rm.TransactionID,
			&rm.CreditSystemID,
			&rm.LineID,
			&rm.Discriminator,
			&rm.Amount,
			&rm.CurrencyCode,
			&rm.CreatedAt,
		)
		return rm, err
	})
	if err != nil {
		return nil, dbError("failed to scan remittance rows for journal "+journalID, err)
	}

	ids := make([]string, len(remittances))
	for i, rm := range remittances {
		ids[i] = rm.RemittanceID
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedRemittance, ids)
	if err != nil {
		return nil, err
	}
	for i := range remittances {
		remittances[i].UserIDs = owners[remittances[i].RemittanceID]
	}
	return remittances, nil
}

// ListJournalsByType pages journal headers newest first. Postings are not loaded.
func (r *PgxLedgerRepository) ListJournalsByType(ctx context.Context, journalType domain.JournalType, limit int, nextToken *string) ([]domain.Journal, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	args := []any{journalType}
	cursorClause := ""
	if cursor != nil {
		// Tuple comparison keeps the keyset stable for journals sharing a commit time
		cursorClause = `AND (committed_at, journal_id) < ($2, $3)`
		args = append(args, cursor.At, cursor.ID)
	}
	args = append(args, limit+1)
	query := fmt.Sprintf(`%s WHERE journal_type = $1 %s ORDER BY committed_at DESC, journal_id DESC LIMIT $%d;`,
		selectJournal, cursorClause, len(args))

	rows, err := r.db().Query(ctx, query, args...)
	if err != nil {
		return nil, nil, dbError("failed to query journals of type "+string(journalType), err)
	}
	journals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Journal, error) {
		return scanJournal(row)
	})
	if err != nil {
		return nil, nil, dbError("failed to scan journal rows", err)
	}

	var nextTokenVal *string
	if len(journals) > limit {
		journals = journals[:limit]
		last := journals[limit-1]
		token := pagination.EncodeToken(pagination.Cursor{At: last.CommittedAt, ID: last.JournalID})
		nextTokenVal = &token
	}

	ids := make([]string, len(journals))
	for i, j := range journals {
		ids[i] = j.JournalID
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedJournal, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range journals {
		journals[i].UserIDs = owners[journals[i].JournalID]
	}
	return journals, nextTokenVal, nil
}

// ApplyBalanceChanges updates balances in account_id order, matching the lock order.
func (r *PgxLedgerRepository) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, userID string, at time.Time) error {
	ids := make([]string, 0, len(changes))
	for id := range changes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return r.inTx(ctx, func(q querier) error {
		for _, id := range ids {
			query := `
				UPDATE accounts
				SET balance = balance + $2,
				    last_modification_date = $3,
				    last_updated_at = $3,
				    last_updated_by = $4
				WHERE account_id = $1;
			`
			cmdTag, err := q.Exec(ctx, query, id, changes[id], at, userID)
			if err != nil {
				return dbError("failed to update balance of account "+id, err)
			}
			if cmdTag.RowsAffected() == 0 {
				return notFound("account", id)
			}
		}
		return nil
	})
}
