// Package semantic owns the vector index: a Qdrant-backed store for
// deployments and an in-process index for development and tests.
package semantic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Payload keys written alongside every vector.
const (
	KeyDocID     = "doc_id"
	KeyText      = "text"
	KeyTitle     = "title"
	KeyUserID    = "user_id"
	KeyCreatedAt = "created_at"
)

// ErrInvalidTopK is returned by Query when topK is not positive.
var ErrInvalidTopK = errors.New("semantic: topK must be > 0")

// ErrDimensionMismatch is returned when a vector's length differs from the index's.
var ErrDimensionMismatch = errors.New("semantic: vector dimension mismatch")

// ConflictPolicy decides what Upsert does when the id is already indexed.
type ConflictPolicy int

const (
	// Overwrite replaces the stored vector and metadata.
	Overwrite ConflictPolicy = iota
	// Reject fails with domain.ErrDuplicateID.
	Reject
)

// ParseConflictPolicy maps "overwrite" / "reject" to a ConflictPolicy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "reject":
		return Reject, nil
	default:
		return Overwrite, fmt.Errorf("semantic: unknown conflict policy %q", s)
	}
}

func (p ConflictPolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "overwrite"
}

// pointNamespace seeds name-based point ids. Qdrant only accepts UUID or
// integer ids, so doc_<ts>_<uid> keys are mapped through uuid.NewSHA1.
var pointNamespace = uuid.MustParse("6f1c2b7e-4a55-4c1e-9d0a-2f4b8c3e9a11")

// PointID returns the deterministic Qdrant point id for a document key.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}
