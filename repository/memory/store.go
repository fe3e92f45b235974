// Package memory provides in-process implementations of the repository interfaces.
// They back the flow tests and local development without Postgres.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
)

type txMarker struct{}

// Store holds every table in memory. All repositories created from one Store
// share its lock, so a TxManager unit of work is atomic across them.
type Store struct {
	mu sync.RWMutex

	accounts      map[uint]models.Account
	profiles      map[uint]models.ProfessionalProfile
	documents     map[uint]models.VerificationDocument
	decisions     map[uint]models.ReviewDecision
	notifications map[uint]models.Notification
	auditLogs     map[uint]models.AuditLog

	seq      map[string]uint
	failures map[string]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		accounts:      make(map[uint]models.Account),
		profiles:      make(map[uint]models.ProfessionalProfile),
		documents:     make(map[uint]models.VerificationDocument),
		decisions:     make(map[uint]models.ReviewDecision),
		notifications: make(map[uint]models.Notification),
		auditLogs:     make(map[uint]models.AuditLog),
		seq:           make(map[string]uint),
		failures:      make(map[string]error),
	}
}

// FailOn makes the named operation (e.g. "profiles.UpdateStatus") return err
// until ClearFailures is called.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// ClearFailures removes every injected failure
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

func (s *Store) injected(op string) error {
	if err, ok := s.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) nextID(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

func inTx(ctx context.Context) bool {
	marked, _ := ctx.Value(txMarker{}).(bool)
	return marked
}

// read runs fn under the read lock unless ctx already holds the store lock
func (s *Store) read(ctx context.Context, fn func()) {
	if inTx(ctx) {
		fn()
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// write runs fn under the write lock unless ctx already holds the store lock
func (s *Store) write(ctx context.Context, fn func() error) error {
	if inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

type snapshot struct {
	accounts      map[uint]models.Account
	profiles      map[uint]models.ProfessionalProfile
	documents     map[uint]models.VerificationDocument
	decisions     map[uint]models.ReviewDecision
	notifications map[uint]models.Notification
	auditLogs     map[uint]models.AuditLog
	seq           map[string]uint
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		accounts:      maps.Clone(s.accounts),
		profiles:      maps.Clone(s.profiles),
		documents:     maps.Clone(s.documents),
		decisions:     maps.Clone(s.decisions),
		notifications: maps.Clone(s.notifications),
		auditLogs:     maps.Clone(s.auditLogs),
		seq:           maps.Clone(s.seq),
	}
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.profiles = snap.profiles
	s.documents = snap.documents
	s.decisions = snap.decisions
	s.notifications = snap.notifications
	s.auditLogs = snap.auditLogs
	s.seq = snap.seq
}

// TxManager implements repository.TxManager over a Store. A unit of work holds
// the store lock for its whole duration and restores the pre-transaction state
// when fn fails or panics.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store
func NewTxManager(store *Store) repository.TxManager {
	return &TxManager{store: store}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.store.restore(snap)
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// orderRows sorts rows by a gorm-style order clause ("col DESC, col2 ASC").
// Columns missing from cols are ignored.
func orderRows[T any](rows []*T, orderBy string, cols map[string]func(a, b *T) int) {
	type key struct {
		cmp  func(a, b *T) int
		desc bool
	}
	var keys []key
	for _, part := range strings.Split(orderBy, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		cmp, ok := cols[strings.ToLower(fields[0])]
		if !ok {
			continue
		}
		keys = append(keys, key{cmp: cmp, desc: len(fields) > 1 && strings.EqualFold(fields[1], "DESC")})
	}
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b *T) int {
		for _, k := range keys {
			c := k.cmp(a, b)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func paginate[T any](rows []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(rows) {
			return []*T{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
