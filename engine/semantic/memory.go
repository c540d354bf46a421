package semantic

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/ailegalmate/legalmate/engine/domain"
)

// MemoryIndex is a brute-force cosine index held in process memory.
// Safe for concurrent use.
type MemoryIndex struct {
	mu      sync.RWMutex
	policy  ConflictPolicy
	dims    int
	entries []memEntry
	byID    map[string]int
}

type memEntry struct {
	id       string
	vector   []float32
	norm     float64
	metadata map[string]string
}

// NewMemoryIndex returns an empty index.
func NewMemoryIndex(policy ConflictPolicy) *MemoryIndex {
	return &MemoryIndex{policy: policy, byID: make(map[string]int)}
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Upsert stores vector under id. Overwrites keep the entry's original
// insertion position.
func (m *MemoryIndex) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return fmt.Errorf("semantic: upsert %s: empty vector", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dims == 0 {
		m.dims = len(vector)
	} else if len(vector) != m.dims {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), m.dims)
	}

	e := memEntry{
		id:       id,
		vector:   slices.Clone(vector),
		norm:     norm(vector),
		metadata: maps.Clone(metadata),
	}
	if i, ok := m.byID[id]; ok {
		if m.policy == Reject {
			return fmt.Errorf("semantic: upsert %s: %w", id, domain.ErrDuplicateID)
		}
		m.entries[i] = e
		return nil
	}
	m.byID[id] = len(m.entries)
	m.entries = append(m.entries, e)
	return nil
}

// Query returns up to topK matches by descending cosine similarity. Ties
// keep insertion order; negative scores are dropped.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return []domain.Match{}, nil
	}
	if len(vector) != m.dims {
		return nil, fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), m.dims)
	}

	qn := norm(vector)
	matches := make([]domain.Match, 0, len(m.entries))
	for _, e := range m.entries {
		score := cosine(vector, qn, e.vector, e.norm)
		if score < 0 {
			continue
		}
		meta := make(map[string]string, len(e.metadata))
		text := ""
		for k, v := range e.metadata {
			if k == KeyText {
				text = v
				continue
			}
			meta[k] = v
		}
		matches = append(matches, domain.Match{ID: e.id, SourceText: text, Score: score, Metadata: meta})
	}
	slices.SortStableFunc(matches, func(a, b domain.Match) int { return cmp.Compare(b.Score, a.Score) })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float32 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (an * bn))
}
