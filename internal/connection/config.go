package connection

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/ledger"
)

// configStore serves the connections declared in configuration.
// Last sync times and deactivations live in memory only.
type configStore struct {
	mu    sync.RWMutex
	conns map[string]*ledger.Connection
}

// NewConfigStore creates a Store over the configured connections
func NewConfigStore(conns []config.ConnectionConfig) Store {
	now := time.Now().UTC()
	s := &configStore{conns: make(map[string]*ledger.Connection, len(conns))}
	for _, c := range conns {
		s.conns[c.ID] = fromConfig(c, now)
	}
	return s
}

func (s *configStore) Get(_ context.Context, id string) (*ledger.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return clone(conn), nil
}

func (s *configStore) ListActive(_ context.Context) ([]*ledger.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Connection, 0, len(s.conns))
	for _, conn := range s.conns {
		if conn.Active {
			out = append(out, clone(conn))
		}
	}
	slices.SortFunc(out, func(a, b *ledger.Connection) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *configStore) MarkSynced(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}
	conn.LastSync = &at
	return nil
}

func (s *configStore) Deactivate(_ context.Context, id string, at time.Time) (*ledger.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[id]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	if conn.Active {
		conn.Active = false
		conn.UpdatedAt = at.UTC()
	}
	return clone(conn), nil
}
