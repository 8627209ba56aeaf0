// Package orderreplica implements one of O1..O3: a replicated transaction
// ledger that accepts buy/sell trades, assigns dense monotonically
// increasing ids, persists them durably, and best-effort pushes each
// committed entry to its peers (spec.md §4.2).
package orderreplica

import (
	"sync"
	"sync/atomic"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/catalogclient"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Peer identifies another order replica this process can reach.
type Peer struct {
	ID      int
	BaseURL string
}

// Config configures a Replica.
type Config struct {
	ServerID  int
	Peers     map[int]Peer // all replicas, including self
	DBPath    string
	PushFanout int // bounded worker-pool size for push broadcast (spec.md §5, nominally 32)
}

// Replica owns one order-replica's ledger. The ledger mutex covers
// buy/sell, push, sync, and lookup-order (spec.md §5); the leader-id cell
// is a separate atomic so ping/leader-broadcast never contend with it.
type Replica struct {
	serverID int
	peers    map[int]Peer

	mu         sync.Mutex
	entries    map[int64]ledger.Transaction
	nextID     int64
	dbPath     string
	seenNonces map[string]struct{} // push-broadcast idempotency bookkeeping

	leaderID atomic.Int64 // -1 = Unknown-Leader

	catalog *catalogclient.Client
	pusher  *pushPool
	log     *logging.Logger
}

// New constructs a Replica, loading any existing on-disk ledger.
func New(cfg Config, catalog *catalogclient.Client) (*Replica, error) {
	nextID, entries, err := ledger.Load(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	fanout := cfg.PushFanout
	if fanout <= 0 {
		fanout = 32
	}

	r := &Replica{
		serverID: cfg.ServerID,
		peers:    cfg.Peers,
		entries:  entries,
		nextID:   nextID,
		dbPath:   cfg.DBPath,
		catalog:  catalog,
		log:      logging.GetDefault().Component("order-replica"),
	}
	r.leaderID.Store(-1)
	r.pusher = newPushPool(fanout, r.peers, r.serverID, r.log)
	return r, nil
}

// ServerID returns this replica's static id (1, 2, or 3).
func (r *Replica) ServerID() int { return r.serverID }

// LeaderID returns this replica's current view of who the leader is, or
// -1 if unknown.
func (r *Replica) LeaderID() int64 { return r.leaderID.Load() }

// IsLeader reports whether this replica currently believes it is the
// leader.
func (r *Replica) IsLeader() bool { return r.leaderID.Load() == int64(r.serverID) }

// Ping is how the front-end tells a replica it has been elected leader:
// receiving a ping unconditionally promotes the replica to Leader,
// regardless of its previous state (spec.md §4.2 state machine).
func (r *Replica) Ping() int {
	r.leaderID.Store(int64(r.serverID))
	return r.serverID
}

// ReceiveLeaderBroadcast records a leader announced by the front-end (or,
// during sync, inferred from a peer). leaderID == self.serverID puts the
// replica in the Leader state; any other value puts it in Follower.
func (r *Replica) ReceiveLeaderBroadcast(leaderID int) {
	r.leaderID.Store(int64(leaderID))
}

// Trade executes a buy or sell: lookup at the catalog, then under the
// ledger lock, update the catalog and persist the new entry (spec.md
// §4.2). The catalog update happens while the ledger lock is held so id
// assignment stays in lock-step with the instrument mutation, the one
// exception spec.md §5 allows to "never hold a lock across a network
// call", justified because catalog updates are short and the catalog has
// its own independent lock.
func (r *Replica) Trade(name string, quantity int64, txType ledger.TransactionType) (int64, error) {
	if quantity <= 0 {
		// spec.md §8: a buy/sell of quantity 0 (or less) is rejected so
		// id assignment always corresponds to a real transfer of shares.
		return 0, apierr.NewRejected("could not trade stock")
	}

	snap, err := r.catalog.Lookup(name)
	if err != nil {
		return 0, err
	}
	if txType == ledger.Buy && quantity > snap.Quantity {
		// Defensive check mirroring the original source; the catalog
		// enforces this authoritatively under its own lock.
		return 0, apierr.NewRejected("could not trade stock")
	}

	r.mu.Lock()
	id := r.nextID

	if err := r.catalog.Update(name, quantity, txType); err != nil {
		r.mu.Unlock()
		return 0, err
	}

	entry := ledger.Transaction{ID: id, Name: name, Quantity: quantity, Type: txType}
	r.entries[id] = entry
	r.nextID = id + 1
	if err := ledger.Save(r.dbPath, r.nextID, r.entries); err != nil {
		// The catalog mutation already committed; the entry stays in
		// memory so a later sync/push can still reconcile it, but we
		// surface the persistence failure to the caller as the original
		// Python "could not trade stock" error would if save_database
		// raised.
		r.mu.Unlock()
		return 0, apierr.NewUpstream("could not trade stock")
	}
	r.mu.Unlock()

	r.pusher.broadcast(id, entry)
	return id, nil
}

// LookupOrder returns the ledger entry for id, if present on this replica.
func (r *Replica) LookupOrder(id int64) (ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.entries[id]
	if !ok {
		return ledger.Transaction{}, apierr.NewNotFound("could not find order with number %d", id)
	}
	return tx, nil
}

// Push applies a leader-pushed entry at its own id. Idempotent: receiving
// the same id twice leaves the ledger unchanged the second time. Ids may
// arrive out of order; gaps are tolerated and repaired by Sync.
func (r *Replica) Push(id int64, entry ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushLocked(id, entry)
}

func (r *Replica) pushLocked(id int64, entry ledger.Transaction) error {
	entry.ID = id
	r.entries[id] = entry
	if id+1 > r.nextID {
		r.nextID = id + 1
	}
	return ledger.Save(r.dbPath, r.nextID, r.entries)
}

// PushWithNonce behaves like Push but first checks a replica-local set of
// push nonces, so an exact-duplicate retry of the same broadcast is logged
// as a dedupe rather than applied silently a second time.
func (r *Replica) PushWithNonce(id int64, entry ledger.Transaction, nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nonce != "" {
		if _, seen := r.seenNonces[nonce]; seen {
			r.log.Debug("duplicate push nonce, already applied", "id", id, "nonce", nonce)
			return nil
		}
		if r.seenNonces == nil {
			r.seenNonces = make(map[string]struct{})
		}
		if len(r.seenNonces) > 4096 {
			r.seenNonces = make(map[string]struct{})
		}
		r.seenNonces[nonce] = struct{}{}
	}
	return r.pushLocked(id, entry)
}

// SyncResult is what Sync returns to a catch-up caller.
type SyncResult struct {
	LeaderID     int64
	Transactions map[int64]ledger.Transaction
}

// Sync answers a boot-time catch-up query: every entry this replica holds
// with id >= lastID, plus this replica's current leader view. If lastID
// is already at or beyond this replica's next_id, Transactions is empty,
// not an error (spec.md §9, explicitly resolving the ambiguity in the
// original source).
func (r *Replica) Sync(lastID int64) SyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs := make(map[int64]ledger.Transaction)
	for id := lastID; id < r.nextID; id++ {
		if tx, ok := r.entries[id]; ok {
			txs[id] = tx
		}
	}
	return SyncResult{LeaderID: r.leaderID.Load(), Transactions: txs}
}

// NextID returns the next id this replica would assign, for use by Sync's
// caller-side bookkeeping.
func (r *Replica) NextID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}

// ApplyFromPeer merges an entry learned via sync into the local ledger,
// following the same idempotent rule as Push.
func (r *Replica) ApplyFromPeer(id int64, tx ledger.Transaction) {
	_ = r.Push(id, tx)
}

// DumpDatabase returns a copy of the full on-disk state, for test-only
// inspection (spec.md §6 "Test-only").
func (r *Replica) DumpDatabase() (int64, map[int64]ledger.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]ledger.Transaction, len(r.entries))
	for id, tx := range r.entries {
		out[id] = tx
	}
	return r.nextID, out
}

// ResetDatabase clears the ledger back to empty, id 0. Test-only.
func (r *Replica) ResetDatabase() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[int64]ledger.Transaction)
	r.nextID = 0
	return ledger.Save(r.dbPath, r.nextID, r.entries)
}
