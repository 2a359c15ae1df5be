package ledger

import (
	"context"
	"fmt"
)

// Store loads and updates a ledger kept in some Storage
type Store struct {
	storage Storage
}

// NewStore creates a store backed by the given storage
func NewStore(s Storage) *Store {
	return &Store{storage: s}
}

// Location describes where the ledger lives, for log messages
func (s *Store) Location() string {
	return s.storage.String()
}

// Load reads and parses the whole ledger
func (s *Store) Load(ctx context.Context) (*Ledger, error) {
	buf, err := s.storage.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading ledger from %s: %w", s.storage, err)
	}
	l, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("error in %s: %w", s.storage, err)
	}
	return l, nil
}

// LoadPending returns the first ready record, or ErrNoPending if there is none
func (s *Store) LoadPending(ctx context.Context) (*Record, error) {
	l, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return l.Next()
}

// MarkPosted re-reads the ledger, marks the record as posted on the given
// date, and writes the entire ledger back. Returns ErrNotFound if the record
// is no longer there; in that case storage is not written.
func (s *Store) MarkPosted(ctx context.Context, id, date string) error {
	l, err := s.Load(ctx)
	if err != nil {
		return err
	}

	if err := l.MarkPosted(id, date); err != nil {
		return err
	}

	buf, err := l.Bytes()
	if err != nil {
		return err
	}

	if err := s.storage.Write(ctx, buf); err != nil {
		return fmt.Errorf("error writing ledger to %s: %w", s.storage, err)
	}
	return nil
}
