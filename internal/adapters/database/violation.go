// Package database holds helpers shared by the storage adapters.
package database

import (
	"fmt"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// ViolationError translates a unique-constraint collision into the application
// error declared for that constraint in domain.Schema. Unknown constraints map
// to a plain duplicate.
func ViolationError(constraint, detail string) error {
	msg := fmt.Sprintf("%s violated", constraint)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	u, ok := domain.Schema.UniqueKey(constraint)
	if !ok {
		return apperrors.NewDuplicateError(msg)
	}
	switch u.Violation {
	case domain.ViolationDuplicateRemittance:
		return apperrors.NewDuplicateRemittanceError(msg)
	case domain.ViolationDuplicateRequest:
		return apperrors.NewDuplicateRequestError(msg)
	case domain.ViolationConflict:
		return apperrors.NewConflictError(msg)
	default:
		return apperrors.NewDuplicateError(msg)
	}
}
