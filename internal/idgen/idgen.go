// Package idgen allocates human-facing display ids such as OPP-000001A.
//
// An id is a fixed prefix, a dash and a 7 character upper-case base36
// suffix. Suffixes come from a per-prefix monotonic sequence, so ids are
// never derived from clocks and never reused.
package idgen

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const (
	PrefixLead        = "LEAD"
	PrefixOpportunity = "OPP"
	PrefixOrderAck    = "ORD"
	PrefixQuotation   = "QUO"

	SuffixLength = 7
)

// maxSequence is the largest value that still fits in SuffixLength base36 digits.
const maxSequence int64 = 78364164095 // 36^7 - 1

// Sequencer hands out strictly increasing values per prefix.
type Sequencer interface {
	NextValue(ctx context.Context, prefix string) (int64, error)
}

type Allocator struct {
	seq Sequencer
}

func NewAllocator(seq Sequencer) *Allocator {
	return &Allocator{seq: seq}
}

// Next reserves the next id for prefix.
func (a *Allocator) Next(ctx context.Context, prefix string) (string, error) {
	n, err := a.seq.NextValue(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("allocate %s id: %w", prefix, err)
	}
	return Format(prefix, n)
}

func Format(prefix string, n int64) (string, error) {
	if n <= 0 || n > maxSequence {
		return "", fmt.Errorf("sequence value %d out of range for %s", n, prefix)
	}
	suffix := strings.ToUpper(strconv.FormatInt(n, 36))
	return prefix + "-" + strings.Repeat("0", SuffixLength-len(suffix)) + suffix, nil
}

// Valid reports whether id has the given prefix and a well-formed suffix.
func Valid(prefix, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || len(rest) != SuffixLength {
		return false
	}
	for _, r := range rest {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// MemorySequencer keeps counters in process memory.
type MemorySequencer struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{values: make(map[string]int64)}
}

func (s *MemorySequencer) NextValue(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[prefix]++
	return s.values[prefix], nil
}
