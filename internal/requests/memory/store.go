// Package memory provides an in-memory request store for development/testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jmcallister/catalogue-scraper/internal/catalogue"
)

// ErrNotFound indicates the request ID is unknown.
var ErrNotFound = errors.New("request not found")

// Store keeps user requests in a mutex-guarded map.
type Store struct {
	mu       sync.RWMutex
	requests map[string]catalogue.Request
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		requests: make(map[string]catalogue.Request),
	}
}

// Create stores a new request.
func (s *Store) Create(_ context.Context, req catalogue.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.RequestID]; exists {
		return errors.New("request already exists")
	}
	s.requests[req.RequestID] = req
	return nil
}

// List returns all requests ordered by submission time.
func (s *Store) List(_ context.Context) ([]catalogue.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalogue.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// Delete removes a request by ID.
func (s *Store) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

// Update applies the non-nil fields of upd to an existing request.
func (s *Store) Update(_ context.Context, requestID string, upd catalogue.RequestUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if upd.ProductName != nil {
		req.ProductName = *upd.ProductName
	}
	if upd.Discount != nil {
		req.Discount = *upd.Discount
	}
	if upd.PhoneNumber != nil {
		req.PhoneNumber = *upd.PhoneNumber
	}
	s.requests[requestID] = req
	return nil
}
