package domain

import (
	"sort"
	"time"
)

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

// NewAuditFields stamps creation and update fields with the same actor and time.
func NewAuditFields(userID string, now time.Time) AuditFields {
	return AuditFields{
		CreatedAt:     now,
		CreatedBy:     userID,
		LastUpdatedAt: now,
		LastUpdatedBy: userID,
	}
}

// OwnedKind names the entity family an ownership edge points at.
type OwnedKind string

const (
	OwnedAccount         OwnedKind = "ACCOUNT"
	OwnedJournal         OwnedKind = "JOURNAL"
	OwnedPosting         OwnedKind = "POSTING"
	OwnedRemittance      OwnedKind = "REMITTANCE"
	OwnedStateTransition OwnedKind = "STATE_TRANSITION"
	OwnedTransferBatch   OwnedKind = "TRANSFER_BATCH"
	OwnedInvoice         OwnedKind = "INVOICE"
)

// Owned is implemented by every entity that carries many-to-many ownership
// edges to users. Ownership is additive and used only for visibility.
type Owned interface {
	OwnedKind() OwnedKind
	OwnedID() string
	OwnerIDs() []string
}

// Ownership is embedded by owned entities.
type Ownership struct {
	UserIDs []string `json:"ownerUserIDs"`
}

// OwnerIDs returns the owning user IDs.
func (o Ownership) OwnerIDs() []string {
	return o.UserIDs
}

// IsOwnedBy reports whether userID is among the owners.
func (o Ownership) IsOwnedBy(userID string) bool {
	for _, id := range o.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OwnershipEdge is one row of the payload-free ownership join relation.
type OwnershipEdge struct {
	Kind     OwnedKind `json:"kind"`
	EntityID string    `json:"entityID"`
	UserID   string    `json:"userID"`
}

// EdgesOf expands an owned entity into its join rows.
func EdgesOf(o Owned) []OwnershipEdge {
	ids := UniqueSorted(o.OwnerIDs())
	edges := make([]OwnershipEdge, 0, len(ids))
	for _, userID := range ids {
		edges = append(edges, OwnershipEdge{Kind: o.OwnedKind(), EntityID: o.OwnedID(), UserID: userID})
	}
	return edges
}

// UniqueSorted returns the distinct non-empty strings of input in ascending order.
func UniqueSorted(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, s := range input {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			result = append(result, s)
		}
	}
	sort.Strings(result)
	return result
}
