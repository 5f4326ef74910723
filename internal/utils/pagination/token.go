package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
)

const timeFormat = time.RFC3339Nano

// DefaultLimit is used when a caller passes a non-positive page size.
const DefaultLimit = 50

// MaxLimit caps a single page.
const MaxLimit = 500

// Cursor is a keyset position: the sort timestamp of the last row returned and
// its ID as a tiebreaker for rows sharing the timestamp.
type Cursor struct {
	At time.Time
	ID string
}

// EncodeToken creates an opaque base64 token from a cursor.
func EncodeToken(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s", c.At.UTC().Format(timeFormat), c.ID)
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}
	at, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (time parse): %w", err)
	}
	return Cursor{At: at, ID: parts[1]}, nil
}

// DecodeOptional decodes nextToken when present. A nil or empty token yields a nil cursor.
// A malformed token is reported as a validation error.
func DecodeOptional(nextToken *string) (*Cursor, error) {
	if nextToken == nil || *nextToken == "" {
		return nil, nil
	}
	c, err := DecodeToken(*nextToken)
	if err != nil {
		return nil, apperrors.NewValidationFailedError(err.Error())
	}
	return &c, nil
}

// NormalizeLimit clamps limit into [1, MaxLimit], substituting DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// After reports whether the row (at, id) sorts strictly after the cursor in
// ascending (time, ID) order.
func (c Cursor) After(at time.Time, id string) bool {
	if !at.Equal(c.At) {
		return at.After(c.At)
	}
	return id > c.ID
}

// Before reports whether the row (at, id) sorts strictly after the cursor in
// descending (time, ID) order.
func (c Cursor) Before(at time.Time, id string) bool {
	if !at.Equal(c.At) {
		return at.Before(c.At)
	}
	return id < c.ID
}
