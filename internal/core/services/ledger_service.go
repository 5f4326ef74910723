package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// ledgerService implements the double-entry ledger.
type ledgerService struct {
	BaseService
	authorizer portssvc.AuthorizerSvc
	scheme     domain.RemittanceKeyScheme
}

// NewLedgerService creates a new ledger service. Account visibility is checked
// with authorizer when the journal owners do not own an account.
func NewLedgerService(store portsrepo.Store, authorizer portssvc.AuthorizerSvc, opts ...ServiceOption) portssvc.LedgerSvcFacade {
	o := newServiceOptions(opts)
	return &ledgerService{
		BaseService: newBaseService(store, o),
		authorizer:  authorizer,
		scheme:      o.remittanceKeyScheme,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) CreateCreditSystem(ctx context.Context, req dto.CreateCreditSystemRequest) (*domain.CreditSystem, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	cs := domain.CreditSystem{
		CreditSystemID: uuid.NewString(),
		Codename:       req.Codename,
		Name:           req.Name,
		CreatedAt:      s.now(),
	}
	if err := s.reader(ctx).SaveCreditSystem(ctx, cs); err != nil {
		return nil, fmt.Errorf("failed to create credit system: %w", err)
	}
	return &cs, nil
}

func (s *ledgerService) OpenAccount(ctx context.Context, req dto.OpenAccountRequest) (*domain.Account, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	account := domain.Account{
		AccountID:            uuid.NewString(),
		Name:                 req.Name,
		CurrencyCode:         req.CurrencyCode,
		CreditSystemID:       req.CreditSystemID,
		Balance:              decimal.Zero,
		LastModificationDate: now,
		AuditFields:          domain.NewAuditFields(req.UserID, now),
		Ownership:            domain.Ownership{UserIDs: domain.UniqueSorted(req.OwnerUserIDs)},
	}
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		return tx.SaveOwnershipEdges(ctx, domain.EdgesOf(account))
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to open account", slog.String("name", req.Name))
		return nil, fmt.Errorf("failed to open account: %w", err)
	}
	s.LogInfo(ctx, "Account opened", slog.String("account_id", account.AccountID))
	return &account, nil
}

// journalDraft is the input shared by committed and reversing journals.
type journalDraft struct {
	journalType domain.JournalType
	description string
	reverses    *string
	postings    []dto.PostingRequest
	remittances []dto.RemittanceRequest
	owners      []string
	userID      string
	committedAt time.Time
}

func (s *ledgerService) CommitJournal(ctx context.Context, req dto.CommitJournalRequest) (*domain.Journal, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	for i, p := range req.Postings {
		if p.Amount.IsZero() {
			return nil, apperrors.NewValidationFailedError(fmt.Sprintf("postings[%d].amount: must be non-zero", i))
		}
	}
	for i, r := range req.Remittances {
		if !r.Amount.IsPositive() {
			return nil, apperrors.NewValidationFailedError(fmt.Sprintf("remittances[%d].amount: must be positive", i))
		}
	}

	var out *domain.Journal
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		journal, err := s.commit(ctx, tx, journalDraft{
			journalType: req.Type,
			description: req.Description,
			postings:    req.Postings,
			remittances: req.Remittances,
			owners:      req.OwnerUserIDs,
			userID:      req.UserID,
			committedAt: req.CommittedAt,
		})
		out = journal
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to commit journal", slog.String("type", string(req.Type)))
		return nil, fmt.Errorf("failed to commit journal: %w", err)
	}
	s.LogInfo(ctx, "Journal committed",
		slog.String("journal_id", out.JournalID),
		slog.Int("postings", len(out.Postings)),
		slog.Int("remittances", len(out.Remittances)))
	return out, nil
}

// commit persists a journal inside tx. Accounts are locked before the balance
// check so the balance update works on the row state it validated.
func (s *ledgerService) commit(ctx context.Context, tx portsrepo.Store, d journalDraft) (*domain.Journal, error) {
	accountIDs := make([]string, 0, len(d.postings))
	for _, p := range d.postings {
		accountIDs = append(accountIDs, p.AccountID)
	}
	accountIDs = domain.UniqueSorted(accountIDs)
	accounts, err := tx.FindAccountsByIDsForUpdate(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range accountIDs {
		if _, ok := accounts[id]; !ok {
			return nil, apperrors.NewValidationFailedError(fmt.Sprintf("account %s does not exist", id))
		}
	}

	now := s.now()
	committedAt := d.committedAt
	if committedAt.IsZero() {
		committedAt = now
	}
	owners := domain.UniqueSorted(d.owners)
	journalID := uuid.NewString()

	postings := make([]domain.Posting, 0, len(d.postings))
	for _, p := range d.postings {
		account := accounts[p.AccountID]
		postings = append(postings, domain.Posting{
			PostingID:      uuid.NewString(),
			JournalID:      journalID,
			AccountID:      p.AccountID,
			Amount:         p.Amount,
			CurrencyCode:   account.CurrencyCode,
			CreditSystemID: account.CreditSystemID,
			Memo:           p.Memo,
			CreatedAt:      now,
			Ownership:      domain.Ownership{UserIDs: owners},
		})
	}
	if imbalances := domain.Imbalances(postings); len(imbalances) > 0 {
		parts := make([]string, 0, len(imbalances))
		for _, imb := range imbalances {
			parts = append(parts, fmt.Sprintf("%s %s", imb.BalanceGroup, imb.Sum.String()))
		}
		return nil, apperrors.NewUnbalancedJournalError("postings do not sum to zero: " + strings.Join(parts, ", "))
	}

	for _, id := range accountIDs {
		if err := s.checkVisible(ctx, accounts[id], owners); err != nil {
			return nil, err
		}
	}

	remittances, err := s.buildRemittances(d.remittances, journalID, postings, owners, now)
	if err != nil {
		return nil, err
	}

	journal := domain.Journal{
		JournalID:            journalID,
		Type:                 d.journalType,
		Description:          d.description,
		ReversesJournalID:    d.reverses,
		CommittedAt:          committedAt,
		LastModificationDate: now,
		Postings:             postings,
		Remittances:          remittances,
		AuditFields:          domain.NewAuditFields(d.userID, now),
		Ownership:            domain.Ownership{UserIDs: owners},
	}
	if err := tx.SaveJournal(ctx, journal); err != nil {
		return nil, err
	}

	edges := domain.EdgesOf(journal)
	for _, p := range postings {
		edges = append(edges, domain.EdgesOf(p)...)
	}
	for _, r := range remittances {
		edges = append(edges, domain.EdgesOf(r)...)
	}
	if err := tx.SaveOwnershipEdges(ctx, edges); err != nil {
		return nil, err
	}
	if err := tx.ApplyBalanceChanges(ctx, domain.BalanceChanges(postings), d.userID, now); err != nil {
		return nil, err
	}
	return &journal, nil
}

// checkVisible requires the account to be owned by one of the journal owners or
// reachable for one of them through a POST grant.
func (s *ledgerService) checkVisible(ctx context.Context, account domain.Account, owners []string) error {
	for _, owner := range owners {
		if account.IsOwnedBy(owner) {
			return nil
		}
	}
	resource := domain.Resource{EntityID: account.AccountID}
	if err := s.authorizer.AuthorizeAny(ctx, owners, resource, domain.PermissionPost); err != nil {
		if errors.Is(err, apperrors.ErrAuthorization) {
			return apperrors.NewAuthorizationError(fmt.Sprintf("account %s is not visible to the journal owners", account.AccountID))
		}
		return err
	}
	return nil
}

func (s *ledgerService) buildRemittances(reqs []dto.RemittanceRequest, journalID string, postings []domain.Posting, owners []string, now time.Time) ([]domain.Remittance, error) {
	defaultCurrency := ""
	if len(domain.Imbalances(postings)) == 0 && len(postings) > 0 {
		defaultCurrency = postings[0].CurrencyCode
	}
	seen := make(map[domain.RemittanceKey]struct{}, len(reqs))
	out := make([]domain.Remittance, 0, len(reqs))
	for i, r := range reqs {
		remittance := domain.Remittance{
			RemittanceID:   uuid.NewString(),
			JournalID:      journalID,
			TransactionID:  r.TransactionID,
			CreditSystemID: r.CreditSystemID,
			LineID:         r.LineID,
			Amount:         r.Amount,
			CurrencyCode:   r.CurrencyCode,
			CreatedAt:      now,
			Ownership:      domain.Ownership{UserIDs: owners},
		}
		if remittance.CurrencyCode == "" {
			remittance.CurrencyCode = defaultCurrency
		}
		key, err := s.scheme.KeyOf(remittance)
		if err != nil {
			return nil, apperrors.NewValidationFailedError(fmt.Sprintf("remittances[%d]: %v", i, err))
		}
		if _, dup := seen[key]; dup {
			return nil, apperrors.NewDuplicateRemittanceError(fmt.Sprintf("remittance %s appears twice in the journal", key))
		}
		seen[key] = struct{}{}
		remittance.Discriminator = key.Discriminator
		out = append(out, remittance)
	}
	return out, nil
}

func (s *ledgerService) ReverseJournal(ctx context.Context, req dto.ReverseJournalRequest) (*domain.Journal, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.Journal
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		original, err := tx.FindJournalByID(ctx, req.JournalID)
		if err != nil {
			return err
		}
		if original.Type == domain.JournalReversal {
			return apperrors.NewValidationFailedError(fmt.Sprintf("journal %s is a reversal and cannot be reversed", original.JournalID))
		}
		existing, err := tx.FindReversalOf(ctx, original.JournalID)
		if err == nil {
			return apperrors.NewValidationFailedError(
				fmt.Sprintf("journal %s was already reversed by %s", original.JournalID, existing.JournalID))
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		postings := make([]dto.PostingRequest, 0, len(original.Postings))
		for _, p := range original.Postings {
			postings = append(postings, dto.PostingRequest{AccountID: p.AccountID, Amount: p.Amount.Neg(), Memo: p.Memo})
		}
		description := "Reversal of " + original.JournalID
		if req.Reason != "" {
			description += ": " + req.Reason
		}
		reverses := original.JournalID
		journal, err := s.commit(ctx, tx, journalDraft{
			journalType: domain.JournalReversal,
			description: description,
			reverses:    &reverses,
			postings:    postings,
			owners:      req.OwnerUserIDs,
			userID:      req.UserID,
		})
		out = journal
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reverse journal", slog.String("journal_id", req.JournalID))
		return nil, fmt.Errorf("failed to reverse journal %s: %w", req.JournalID, err)
	}
	s.LogInfo(ctx, "Journal reversed",
		slog.String("journal_id", req.JournalID),
		slog.String("reversal_id", out.JournalID))
	return out, nil
}

func (s *ledgerService) GetJournal(ctx context.Context, journalID string) (*domain.Journal, error) {
	journal, err := s.reader(ctx).FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal %s: %w", journalID, err)
	}
	return journal, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.reader(ctx).FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

func (s *ledgerService) GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *ledgerService) ListAccountsModifiedSince(ctx context.Context, since time.Time, limit int, nextToken *string) (*dto.ListAccountsResponse, error) {
	accounts, next, err := s.reader(ctx).ListAccountsModifiedSince(ctx, since, limit, nextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified accounts: %w", err)
	}
	return &dto.ListAccountsResponse{Accounts: accounts, NextToken: next}, nil
}

func (s *ledgerService) ListJournalsByType(ctx context.Context, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	if err := dto.Validate(params); err != nil {
		return nil, err
	}
	journals, next, err := s.reader(ctx).ListJournalsByType(ctx, params.Type, params.Limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s journals: %w", params.Type, err)
	}
	return &dto.ListJournalsResponse{Journals: journals, NextToken: next}, nil
}
