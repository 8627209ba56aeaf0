package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/fsutil"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Notifier delivers a fire-and-forget invalidation to the front-end after a
// successful update. Implementations must not block the caller for long;
// Store calls Invalidate synchronously, after releasing its lock.
type Notifier interface {
	Invalidate(name string)
}

// NopNotifier discards invalidations; used when cache mode is disabled.
type NopNotifier struct{}

func (NopNotifier) Invalidate(string) {}

// Config configures a Store.
type Config struct {
	// DBPath is the on-disk file holding the full instrument table,
	// rewritten atomically on every successful update (spec.md §6).
	DBPath string
	// CacheMode enables the invalidation fan-out to the front-end.
	CacheMode bool
}

// Store is the catalog's single mutual-exclusion domain over the full
// instrument table, matching spec.md §4.1/§5: a single lock serializes
// lookup and update so readers and writers observe committed state only,
// and the durable write completes before the lock is released.
type Store struct {
	mu          sync.Mutex
	instruments map[string]*Instrument
	dbPath      string
	cacheMode   bool
	notifier    Notifier
	log         *logging.Logger
}

// Open loads the instrument table from dbPath (created empty if absent)
// and returns a ready Store. notifier may be NopNotifier{} when cache mode
// is disabled.
func Open(cfg Config, notifier Notifier) (*Store, error) {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &Store{
		instruments: make(map[string]*Instrument),
		dbPath:      cfg.DBPath,
		cacheMode:   cfg.CacheMode,
		notifier:    notifier,
		log:         logging.GetDefault().Component("catalog"),
	}

	raw, err := os.ReadFile(cfg.DBPath)
	switch {
	case os.IsNotExist(err):
		s.log.Warn("no existing catalog database, starting empty", "path", cfg.DBPath)
	case err != nil:
		return nil, fmt.Errorf("read catalog database: %w", err)
	default:
		var table map[string]*Instrument
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("parse catalog database: %w", err)
		}
		for name, inst := range table {
			inst.Name = name
			s.instruments[name] = inst
		}
	}
	return s, nil
}

// Lookup returns a committed snapshot of the named instrument.
func (s *Store) Lookup(name string) (Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[name]
	if !ok {
		return Instrument{}, apierr.NewNotFound("stock not found")
	}
	return inst.Snapshot(), nil
}

// Update applies a buy or sell to the named instrument, flushes the new
// table to disk, and, on success, after releasing the lock, fires an
// invalidation notification (spec.md §4.1, §4.4).
func (s *Store) Update(name string, quantity int64, txType TransactionType) error {
	s.mu.Lock()

	inst, ok := s.instruments[name]
	if !ok {
		s.mu.Unlock()
		return apierr.NewRejected("failed to update stock")
	}
	if !txType.Valid() {
		s.mu.Unlock()
		return apierr.NewRejected("failed to update stock")
	}

	next := inst.Quantity
	switch txType {
	case Sell:
		next += quantity
	case Buy:
		next -= quantity
	}
	// The one intentional deviation from the original Python source
	// (spec.md §9, §4.1): the authoritative non-negative check lives
	// here, under the catalog's own lock, not only at the order replica.
	if next < 0 {
		s.mu.Unlock()
		return apierr.NewRejected("failed to update stock")
	}

	prev := inst.Quantity
	inst.Quantity = next
	if err := s.flushLocked(); err != nil {
		inst.Quantity = prev
		s.mu.Unlock()
		return apierr.NewUpstream("failed to update stock")
	}
	s.mu.Unlock()

	if s.cacheMode {
		s.notifier.Invalidate(name)
	}
	return nil
}

// flushLocked rewrites the full table to dbPath. Caller must hold s.mu.
func (s *Store) flushLocked() error {
	if s.dbPath == "" {
		return nil
	}
	table := make(map[string]*Instrument, len(s.instruments))
	for name, inst := range s.instruments {
		table[name] = inst
	}
	buf, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.dbPath, buf)
}
