// Package memory provides an in-memory postcode set for development/testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// PostcodeSet implements catalogue.PostcodeSet with a mutex-guarded map.
// The lock makes check-then-insert atomic per call, matching the semantics
// the feed consumer relies on under concurrent delivery of the same event.
type PostcodeSet struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	lastScan  time.Time
	scanKnown bool
}

// NewPostcodeSet constructs an empty set.
func NewPostcodeSet() *PostcodeSet {
	return &PostcodeSet{
		seen: make(map[string]struct{}),
	}
}

// RecordIfNew inserts the postcode and reports whether it was new.
func (s *PostcodeSet) RecordIfNew(_ context.Context, postcode string) (bool, error) {
	if postcode == "" {
		return false, errors.New("postcode is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[postcode]; ok {
		return false, nil
	}
	s.seen[postcode] = struct{}{}
	return true, nil
}

// ListAll returns every recorded postcode in sorted order.
func (s *PostcodeSet) ListAll(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.seen))
	for pc := range s.seen {
		out = append(out, pc)
	}
	sort.Strings(out)
	return out, nil
}

// LastScanCompleted returns the zero time until a scan has been marked.
func (s *PostcodeSet) LastScanCompleted(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanKnown {
		return time.Time{}, nil
	}
	return s.lastScan, nil
}

// MarkScanCompleted records the completion time of a full re-scan.
func (s *PostcodeSet) MarkScanCompleted(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScan = at
	s.scanKnown = true
	return nil
}
