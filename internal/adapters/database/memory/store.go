// Package memory is an in-process implementation of the repositories.Store port.
// Transactions work on a private copy of the committed state and replace it on
// commit; writers are serialized, readers see only committed data.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/SscSPs/ledgerflow/internal/adapters/database"
	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
)

type db struct {
	txMu      sync.Mutex   // one writer at a time
	mu        sync.RWMutex // guards the committed pointer
	committed *state
}

// Store is the in-memory persistence adapter. The zero value is not usable; call New.
type Store struct {
	db *db
	st *state // non-nil when transaction-scoped
}

var _ portsrepo.Store = (*Store)(nil)

// New creates an empty store whose unique keys are taken from domain.Schema.
func New() (*Store, error) {
	if err := domain.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema description: %w", err)
	}
	st := newState()
	for _, t := range domain.Schema.Tables {
		for _, u := range t.UniqueKeys {
			st.uniques[u.Name] = make(map[string]string)
		}
	}
	return &Store{db: &db{committed: st}}, nil
}

// RunInTransaction implements repositories.TransactionManager.
func (s *Store) RunInTransaction(ctx context.Context, fn portsrepo.TxFunc) error {
	if s.st != nil {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	work := s.db.committed.clone()
	s.db.mu.RUnlock()

	if err := fn(ctx, &Store{db: s.db, st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction rolled back: %w", err)
	}

	s.db.mu.Lock()
	s.db.committed = work
	s.db.mu.Unlock()
	return nil
}

// read runs fn against the transaction state or, outside a transaction, the committed state.
func (s *Store) read(fn func(st *state) error) error {
	if s.st != nil {
		return fn(s.st)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.committed)
}

// write runs fn inside the current transaction or an implicit single-statement one.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if s.st != nil {
		return fn(s.st)
	}
	return s.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		return fn(tx.(*Store).st)
	})
}

type state struct {
	uniques map[string]map[string]string // constraint -> key -> row id

	users         map[string]domain.User
	roles         map[string]domain.Role
	userRoles     map[domain.UserRole]struct{}
	registrations map[string]domain.Registration
	segregations  map[string]domain.Segregation
	dispositions  map[string]domain.Disposition
	aces          map[string]domain.AccessControlEntry

	graphs      map[string]domain.WorkflowGraph
	groups      map[string]domain.StateGroup
	states      map[string]domain.State
	paths       map[string]domain.StatePath
	instances   map[string]domain.WorkflowInstance
	transitions map[string][]domain.StateTransition

	creditSystems map[string]domain.CreditSystem
	accounts      map[string]domain.Account
	journals      map[string]domain.Journal

	edges map[domain.OwnershipEdge]struct{}

	requestGroups map[string]domain.FundsTransferRequestGroup
	requests      map[string]domain.FundsTransferRequest
	events        map[string][]domain.FundsTransferEvent
	batches       map[string]domain.FundsTransferBatch
	batchMessages map[string][]domain.FundsTransferBatchMessage
	collations    map[string][]domain.FundsTransferEventCollation

	invoices      map[string]domain.Invoice
	invoiceEvents map[string][]domain.InvoiceEvent
	settlements   map[string][]domain.InvoiceSettlement
}

func newState() *state {
	return &state{
		uniques:       make(map[string]map[string]string),
		users:         make(map[string]domain.User),
		roles:         make(map[string]domain.Role),
		userRoles:     make(map[domain.UserRole]struct{}),
		registrations: make(map[string]domain.Registration),
		segregations:  make(map[string]domain.Segregation),
		dispositions:  make(map[string]domain.Disposition),
		aces:          make(map[string]domain.AccessControlEntry),
		graphs:        make(map[string]domain.WorkflowGraph),
		groups:        make(map[string]domain.StateGroup),
		states:        make(map[string]domain.State),
		paths:         make(map[string]domain.StatePath),
		instances:     make(map[string]domain.WorkflowInstance),
		transitions:   make(map[string][]domain.StateTransition),
		creditSystems: make(map[string]domain.CreditSystem),
		accounts:      make(map[string]domain.Account),
		journals:      make(map[string]domain.Journal),
		edges:         make(map[domain.OwnershipEdge]struct{}),
		requestGroups: make(map[string]domain.FundsTransferRequestGroup),
		requests:      make(map[string]domain.FundsTransferRequest),
		events:        make(map[string][]domain.FundsTransferEvent),
		batches:       make(map[string]domain.FundsTransferBatch),
		batchMessages: make(map[string][]domain.FundsTransferBatchMessage),
		collations:    make(map[string][]domain.FundsTransferEventCollation),
		invoices:      make(map[string]domain.Invoice),
		invoiceEvents: make(map[string][]domain.InvoiceEvent),
		settlements:   make(map[string][]domain.InvoiceSettlement),
	}
}

// clone copies every table. Stored values are never modified in place, so a
// shallow copy of each map is enough; slice-valued maps get fresh slices so
// appends never reach a shared backing array.
func (st *state) clone() *state {
	c := &state{
		uniques:       make(map[string]map[string]string, len(st.uniques)),
		users:         maps.Clone(st.users),
		roles:         maps.Clone(st.roles),
		userRoles:     maps.Clone(st.userRoles),
		registrations: maps.Clone(st.registrations),
		segregations:  maps.Clone(st.segregations),
		dispositions:  maps.Clone(st.dispositions),
		aces:          maps.Clone(st.aces),
		graphs:        maps.Clone(st.graphs),
		groups:        maps.Clone(st.groups),
		states:        maps.Clone(st.states),
		paths:         maps.Clone(st.paths),
		instances:     maps.Clone(st.instances),
		transitions:   cloneLog(st.transitions),
		creditSystems: maps.Clone(st.creditSystems),
		accounts:      maps.Clone(st.accounts),
		journals:      maps.Clone(st.journals),
		edges:         maps.Clone(st.edges),
		requestGroups: maps.Clone(st.requestGroups),
		requests:      maps.Clone(st.requests),
		events:        cloneLog(st.events),
		batches:       maps.Clone(st.batches),
		batchMessages: cloneLog(st.batchMessages),
		collations:    cloneLog(st.collations),
		invoices:      maps.Clone(st.invoices),
		invoiceEvents: cloneLog(st.invoiceEvents),
		settlements:   cloneLog(st.settlements),
	}
	for name, idx := range st.uniques {
		c.uniques[name] = maps.Clone(idx)
	}
	return c
}

func cloneLog[V any](m map[string][]V) map[string][]V {
	out := make(map[string][]V, len(m))
	for k, v := range m {
		out[k] = append([]V(nil), v...)
	}
	return out
}

func uniqueKey(parts []string) string {
	return strings.Join(parts, "\x00")
}

// claim reserves a unique key for rowID, failing with the error declared for the
// constraint when another row holds it. Empty parts are not indexed, matching
// SQL NULL semantics for optional columns.
func (st *state) claim(constraint, rowID string, parts ...string) error {
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	idx, ok := st.uniques[constraint]
	if !ok {
		return fmt.Errorf("unknown unique constraint %s", constraint)
	}
	key := uniqueKey(parts)
	if holder, taken := idx[key]; taken && holder != rowID {
		return database.ViolationError(constraint, strings.Join(parts, "/"))
	}
	idx[key] = rowID
	return nil
}

// claimNew reserves the key of a join-table row, whose key is its identity.
// Inserting the same pair again fails like a primary key collision.
func (st *state) claimNew(constraint string, parts ...string) error {
	if _, taken := st.lookup(constraint, parts...); taken {
		return database.ViolationError(constraint, strings.Join(parts, "/"))
	}
	return st.claim(constraint, uniqueKey(parts), parts...)
}

func (st *state) release(constraint string, parts ...string) {
	delete(st.uniques[constraint], uniqueKey(parts))
}

func (st *state) lookup(constraint string, parts ...string) (string, bool) {
	id, ok := st.uniques[constraint][uniqueKey(parts)]
	return id, ok
}

func (st *state) ownersOf(kind domain.OwnedKind, entityID string) []string {
	var owners []string
	for e := range st.edges {
		if e.Kind == kind && e.EntityID == entityID {
			owners = append(owners, e.UserID)
		}
	}
	sort.Strings(owners)
	return owners
}

func (st *state) addEdges(edges []domain.OwnershipEdge) error {
	for _, e := range edges {
		if _, ok := st.users[e.UserID]; !ok {
			return apperrors.NewValidationFailedError(fmt.Sprintf("owner %s does not exist", e.UserID))
		}
		st.edges[e] = struct{}{}
	}
	return nil
}

func notFound(kind, id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s %s not found", kind, id))
}

func missingRef(kind, id string) error {
	return apperrors.NewValidationFailedError(fmt.Sprintf("referenced %s %s does not exist", kind, id))
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
