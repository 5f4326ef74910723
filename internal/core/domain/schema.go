package domain

import "fmt"

// DeleteRule is the referential action of a foreign key on parent deletion.
type DeleteRule string

const (
	DeleteRestrict DeleteRule = "RESTRICT"
	DeleteCascade  DeleteRule = "CASCADE"
)

// ViolationKind tells storage adapters which error a unique-key collision maps to.
type ViolationKind string

const (
	ViolationDuplicate           ViolationKind = "duplicate"
	ViolationDuplicateRemittance ViolationKind = "duplicate_remittance"
	ViolationDuplicateRequest    ViolationKind = "duplicate_request"
	ViolationConflict            ViolationKind = "conflict"
)

// UniqueKey is a named unique constraint over one or more columns.
type UniqueKey struct {
	Name      string
	Columns   []string
	Violation ViolationKind
}

// Index is a named non-unique lookup index.
type Index struct {
	Name    string
	Columns []string
}

// ForeignKey is a single-column reference to another table's primary key.
type ForeignKey struct {
	Column   string
	RefTable string
	OnDelete DeleteRule
}

// Table describes the storage-level constraints of one relation.
type Table struct {
	Name        string
	PrimaryKey  []string
	UniqueKeys  []UniqueKey
	Indexes     []Index
	ForeignKeys []ForeignKey
}

// SchemaDescription is the declarative constraint model consumed once at storage
// initialization by every adapter.
type SchemaDescription struct {
	Tables []Table
}

// Table returns the table with the given name.
func (s SchemaDescription) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// UniqueKey looks up a unique constraint by name across all tables.
func (s SchemaDescription) UniqueKey(name string) (UniqueKey, bool) {
	for _, t := range s.Tables {
		for _, u := range t.UniqueKeys {
			if u.Name == name {
				return u, true
			}
		}
	}
	return UniqueKey{}, false
}

// CascadeChildren returns the tables whose rows are deleted with a row of parent.
func (s SchemaDescription) CascadeChildren(parent string) []string {
	var children []string
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == parent && fk.OnDelete == DeleteCascade {
				children = append(children, t.Name)
			}
		}
	}
	return children
}

// Validate checks the description for internal consistency: unique names and
// foreign keys that point at declared tables.
func (s SchemaDescription) Validate() error {
	tables := make(map[string]struct{}, len(s.Tables))
	for _, t := range s.Tables {
		if _, dup := tables[t.Name]; dup {
			return fmt.Errorf("table %s declared twice", t.Name)
		}
		tables[t.Name] = struct{}{}
	}
	names := make(map[string]string)
	for _, t := range s.Tables {
		if len(t.PrimaryKey) == 0 {
			return fmt.Errorf("table %s has no primary key", t.Name)
		}
		for _, u := range t.UniqueKeys {
			if other, dup := names[u.Name]; dup {
				return fmt.Errorf("constraint %s declared on %s and %s", u.Name, other, t.Name)
			}
			names[u.Name] = t.Name
			if len(u.Columns) == 0 || u.Violation == "" {
				return fmt.Errorf("unique key %s is incomplete", u.Name)
			}
		}
		for _, idx := range t.Indexes {
			if other, dup := names[idx.Name]; dup {
				return fmt.Errorf("index %s declared on %s and %s", idx.Name, other, t.Name)
			}
			names[idx.Name] = t.Name
		}
		for _, fk := range t.ForeignKeys {
			if _, ok := tables[fk.RefTable]; !ok {
				return fmt.Errorf("table %s references unknown table %s", t.Name, fk.RefTable)
			}
		}
	}
	return nil
}

// Unique constraint names shared by the storage adapters.
const (
	UQUserEmail             = "users_email_key"
	UQUserUsername          = "users_username_key"
	UQRoleName              = "roles_name_key"
	UQUserRole              = "user_roles_pkey"
	UQRegistrationLogin     = "registrations_provider_key"
	UQSegregationCodename   = "segregations_codename_key"
	UQDispositionUser       = "dispositions_user_segregation_key"
	UQAccessControlEntry    = "access_control_entries_pkey"
	UQGraphCodename         = "workflow_graphs_codename_key"
	UQStateGroupCodename    = "state_groups_graph_codename_key"
	UQStateCodename         = "states_group_codename_key"
	UQStatePathCodename     = "state_paths_codename_key"
	UQTransitionSequence    = "state_transitions_instance_sequence_key"
	UQCreditSystemCodename  = "credit_systems_codename_key"
	UQJournalReversal       = "journals_reverses_journal_id_key"
	UQRemittanceKey         = "remittances_transaction_discriminator_key"
	UQOwnershipEdge         = "entity_owners_pkey"
	UQTransferRequestGUID   = "funds_transfer_requests_guid_key"
	UQTransferEventSequence = "funds_transfer_events_request_sequence_key"
	UQTransferBatchGUID     = "funds_transfer_batches_guid_key"
	UQBatchMessageSequence  = "funds_transfer_batch_messages_batch_sequence_key"
	UQInvoiceNumber         = "invoices_number_key"
	UQInvoiceLinePosition   = "invoice_lines_invoice_position_key"
	UQInvoiceEventSequence  = "invoice_events_invoice_sequence_key"
	UQInvoiceSettlement     = "invoice_settlements_pkey"
)

func restrict(column, table string) ForeignKey {
	return ForeignKey{Column: column, RefTable: table, OnDelete: DeleteRestrict}
}

// Schema is the constraint model of the whole system. Cascade deletion is
// declared only for invoice lines and their tax components.
var Schema = SchemaDescription{Tables: []Table{
	{
		Name:       "users",
		PrimaryKey: []string{"user_id"},
		UniqueKeys: []UniqueKey{
			{Name: UQUserEmail, Columns: []string{"email"}, Violation: ViolationDuplicate},
			{Name: UQUserUsername, Columns: []string{"username"}, Violation: ViolationDuplicate},
		},
		Indexes: []Index{{Name: "users_created_at_idx", Columns: []string{"created_at"}}},
	},
	{
		Name:       "roles",
		PrimaryKey: []string{"role_id"},
		UniqueKeys: []UniqueKey{{Name: UQRoleName, Columns: []string{"name"}, Violation: ViolationDuplicate}},
	},
	{
		Name:        "user_roles",
		PrimaryKey:  []string{"user_id", "role_id"},
		UniqueKeys:  []UniqueKey{{Name: UQUserRole, Columns: []string{"user_id", "role_id"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("user_id", "users"), restrict("role_id", "roles")},
	},
	{
		Name:        "registrations",
		PrimaryKey:  []string{"registration_id"},
		UniqueKeys:  []UniqueKey{{Name: UQRegistrationLogin, Columns: []string{"provider", "provider_key"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("user_id", "users")},
	},
	{
		Name:       "segregations",
		PrimaryKey: []string{"segregation_id"},
		UniqueKeys: []UniqueKey{{Name: UQSegregationCodename, Columns: []string{"codename"}, Violation: ViolationDuplicate}},
	},
	{
		Name:        "dispositions",
		PrimaryKey:  []string{"disposition_id"},
		UniqueKeys:  []UniqueKey{{Name: UQDispositionUser, Columns: []string{"user_id", "segregation_id"}, Violation: ViolationConflict}},
		ForeignKeys: []ForeignKey{restrict("user_id", "users"), restrict("segregation_id", "segregations")},
	},
	{
		Name:        "access_control_entries",
		PrimaryKey:  []string{"entity_id", "manager_user_id", "permission"},
		UniqueKeys:  []UniqueKey{{Name: UQAccessControlEntry, Columns: []string{"entity_id", "manager_user_id", "permission"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("manager_user_id", "users")},
	},
	{
		Name:       "workflow_graphs",
		PrimaryKey: []string{"graph_id"},
		UniqueKeys: []UniqueKey{{Name: UQGraphCodename, Columns: []string{"codename"}, Violation: ViolationDuplicate}},
	},
	{
		Name:        "state_groups",
		PrimaryKey:  []string{"group_id"},
		UniqueKeys:  []UniqueKey{{Name: UQStateGroupCodename, Columns: []string{"graph_id", "codename"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("graph_id", "workflow_graphs")},
	},
	{
		Name:        "states",
		PrimaryKey:  []string{"state_id"},
		UniqueKeys:  []UniqueKey{{Name: UQStateCodename, Columns: []string{"group_id", "codename"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("group_id", "state_groups"), restrict("graph_id", "workflow_graphs")},
	},
	{
		Name:       "state_paths",
		PrimaryKey: []string{"path_id"},
		UniqueKeys: []UniqueKey{{Name: UQStatePathCodename, Columns: []string{"codename"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{
			restrict("graph_id", "workflow_graphs"),
			restrict("source_state_id", "states"),
			restrict("target_state_id", "states"),
		},
	},
	{
		Name:       "workflow_instances",
		PrimaryKey: []string{"instance_id"},
		ForeignKeys: []ForeignKey{
			restrict("graph_id", "workflow_graphs"),
			restrict("segregation_id", "segregations"),
			restrict("current_state_id", "states"),
		},
	},
	{
		Name:        "state_transitions",
		PrimaryKey:  []string{"transition_id"},
		UniqueKeys:  []UniqueKey{{Name: UQTransitionSequence, Columns: []string{"instance_id", "sequence"}, Violation: ViolationConflict}},
		Indexes:     []Index{{Name: "state_transitions_executed_at_idx", Columns: []string{"executed_at"}}},
		ForeignKeys: []ForeignKey{restrict("instance_id", "workflow_instances"), restrict("path_id", "state_paths")},
	},
	{
		Name:       "credit_systems",
		PrimaryKey: []string{"credit_system_id"},
		UniqueKeys: []UniqueKey{{Name: UQCreditSystemCodename, Columns: []string{"codename"}, Violation: ViolationDuplicate}},
	},
	{
		Name:        "accounts",
		PrimaryKey:  []string{"account_id"},
		Indexes:     []Index{{Name: "accounts_last_modification_date_idx", Columns: []string{"last_modification_date"}}},
		ForeignKeys: []ForeignKey{restrict("credit_system_id", "credit_systems")},
	},
	{
		Name:        "journals",
		PrimaryKey:  []string{"journal_id"},
		UniqueKeys:  []UniqueKey{{Name: UQJournalReversal, Columns: []string{"reverses_journal_id"}, Violation: ViolationConflict}},
		Indexes:     []Index{{Name: "journals_type_committed_at_idx", Columns: []string{"journal_type", "committed_at"}}},
		ForeignKeys: []ForeignKey{restrict("reverses_journal_id", "journals")},
	},
	{
		Name:        "postings",
		PrimaryKey:  []string{"posting_id"},
		Indexes:     []Index{{Name: "postings_account_id_idx", Columns: []string{"account_id"}}},
		ForeignKeys: []ForeignKey{
			restrict("journal_id", "journals"),
			restrict("account_id", "accounts"),
			restrict("credit_system_id", "credit_systems"),
		},
	},
	{
		Name:        "remittances",
		PrimaryKey:  []string{"remittance_id"},
		UniqueKeys:  []UniqueKey{{Name: UQRemittanceKey, Columns: []string{"transaction_id", "discriminator"}, Violation: ViolationDuplicateRemittance}},
		ForeignKeys: []ForeignKey{restrict("journal_id", "journals"), restrict("credit_system_id", "credit_systems")},
	},
	{
		Name:        "entity_owners",
		PrimaryKey:  []string{"kind", "entity_id", "user_id"},
		UniqueKeys:  []UniqueKey{{Name: UQOwnershipEdge, Columns: []string{"kind", "entity_id", "user_id"}, Violation: ViolationDuplicate}},
		Indexes:     []Index{{Name: "entity_owners_user_idx", Columns: []string{"user_id", "kind"}}},
		ForeignKeys: []ForeignKey{restrict("user_id", "users")},
	},
	{
		Name:       "funds_transfer_request_groups",
		PrimaryKey: []string{"group_id"},
	},
	{
		Name:       "funds_transfer_batches",
		PrimaryKey: []string{"batch_id"},
		UniqueKeys: []UniqueKey{{Name: UQTransferBatchGUID, Columns: []string{"guid"}, Violation: ViolationDuplicate}},
	},
	{
		Name:       "funds_transfer_requests",
		PrimaryKey: []string{"request_id"},
		UniqueKeys: []UniqueKey{{Name: UQTransferRequestGUID, Columns: []string{"guid"}, Violation: ViolationDuplicateRequest}},
		Indexes: []Index{
			{Name: "funds_transfer_requests_created_at_idx", Columns: []string{"created_at"}},
			{Name: "funds_transfer_requests_state_idx", Columns: []string{"state"}},
		},
		ForeignKeys: []ForeignKey{
			restrict("group_id", "funds_transfer_request_groups"),
			restrict("batch_id", "funds_transfer_batches"),
		},
	},
	{
		Name:        "funds_transfer_events",
		PrimaryKey:  []string{"event_id"},
		UniqueKeys:  []UniqueKey{{Name: UQTransferEventSequence, Columns: []string{"request_id", "sequence"}, Violation: ViolationConflict}},
		ForeignKeys: []ForeignKey{restrict("request_id", "funds_transfer_requests")},
	},
	{
		Name:        "funds_transfer_batch_messages",
		PrimaryKey:  []string{"message_id"},
		UniqueKeys:  []UniqueKey{{Name: UQBatchMessageSequence, Columns: []string{"batch_id", "sequence"}, Violation: ViolationConflict}},
		ForeignKeys: []ForeignKey{restrict("batch_id", "funds_transfer_batches")},
	},
	{
		Name:        "funds_transfer_event_collations",
		PrimaryKey:  []string{"collation_id"},
		ForeignKeys: []ForeignKey{restrict("batch_id", "funds_transfer_batches")},
	},
	{
		Name:       "invoices",
		PrimaryKey: []string{"invoice_id"},
		UniqueKeys: []UniqueKey{{Name: UQInvoiceNumber, Columns: []string{"number"}, Violation: ViolationDuplicate}},
		Indexes: []Index{
			{Name: "invoices_issue_date_idx", Columns: []string{"issue_date"}},
			{Name: "invoices_due_date_idx", Columns: []string{"due_date"}},
		},
		ForeignKeys: []ForeignKey{restrict("journal_id", "journals")},
	},
	{
		Name:        "invoice_lines",
		PrimaryKey:  []string{"line_id"},
		UniqueKeys:  []UniqueKey{{Name: UQInvoiceLinePosition, Columns: []string{"invoice_id", "position"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{{Column: "invoice_id", RefTable: "invoices", OnDelete: DeleteCascade}},
	},
	{
		Name:        "invoice_line_tax_components",
		PrimaryKey:  []string{"tax_component_id"},
		ForeignKeys: []ForeignKey{{Column: "line_id", RefTable: "invoice_lines", OnDelete: DeleteCascade}},
	},
	{
		Name:       "invoice_events",
		PrimaryKey: []string{"event_id"},
		UniqueKeys: []UniqueKey{{Name: UQInvoiceEventSequence, Columns: []string{"invoice_id", "sequence"}, Violation: ViolationConflict}},
		Indexes: []Index{
			{Name: "invoice_events_state_idx", Columns: []string{"state"}},
			{Name: "invoice_events_occurred_at_idx", Columns: []string{"occurred_at"}},
		},
		ForeignKeys: []ForeignKey{restrict("invoice_id", "invoices")},
	},
	{
		Name:        "invoice_settlements",
		PrimaryKey:  []string{"invoice_id", "request_id"},
		UniqueKeys:  []UniqueKey{{Name: UQInvoiceSettlement, Columns: []string{"invoice_id", "request_id"}, Violation: ViolationDuplicate}},
		ForeignKeys: []ForeignKey{restrict("invoice_id", "invoices"), restrict("request_id", "funds_transfer_requests")},
	},
}}
