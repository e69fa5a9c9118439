// Package conventions implements the read-only convention store.
package conventions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wonny/bondlab/internal/contracts"
)

// MemoryStore serves convention records from memory.
// ⭐ SSOT: built-in and YAML seeded conventions are served from here
type MemoryStore struct {
	mu          sync.RWMutex
	identifiers map[string]contracts.ConventionRecord
	issuers     map[string]contracts.ConventionRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identifiers: make(map[string]contracts.ConventionRecord),
		issuers:     make(map[string]contracts.ConventionRecord),
	}
}

// NewDefaultStore creates a store seeded with the built-in issuer conventions.
func NewDefaultStore() *MemoryStore {
	s := NewMemoryStore()
	for _, def := range builtinIssuers {
		s.AddIssuer(def.record, def.aliases...)
	}
	for _, rec := range builtinIdentifiers {
		s.AddIdentifier(rec)
	}
	return s
}

func normalize(key string) string {
	return strings.ToUpper(strings.Join(strings.Fields(key), " "))
}

// AddIssuer registers rec under its key and every alias.
func (s *MemoryStore) AddIssuer(rec contracts.ConventionRecord, aliases ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issuers[normalize(rec.Key)] = rec
	for _, alias := range aliases {
		s.issuers[normalize(alias)] = rec
	}
}

// AddIdentifier registers an identifier level record.
func (s *MemoryStore) AddIdentifier(rec contracts.ConventionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identifiers[normalize(rec.Key)] = rec
}

// LookupIdentifier implements contracts.ConventionStore.
func (s *MemoryStore) LookupIdentifier(ctx context.Context, identifier string) (*contracts.ConventionRecord, error) {
	s.mu.RLock()
	rec, ok := s.identifiers[normalize(identifier)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: identifier %q", contracts.ErrNotFound, identifier)
	}
	return &rec, nil
}

// LookupIssuer implements contracts.ConventionStore.
func (s *MemoryStore) LookupIssuer(ctx context.Context, issuerPattern string) (*contracts.ConventionRecord, error) {
	s.mu.RLock()
	rec, ok := s.issuers[normalize(issuerPattern)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: issuer %q", contracts.ErrNotFound, issuerPattern)
	}
	return &rec, nil
}

// Len returns the number of identifier and issuer keys.
func (s *MemoryStore) Len() (identifiers, issuers int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identifiers), len(s.issuers)
}
