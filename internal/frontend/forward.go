package frontend

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/internal/replicaclient"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Forwarder holds the front-end's view of who the leader is and forwards
// trade and order-lookup requests to it, re-electing on transport failure
// (spec.md §4.3). This is the send_order_request equivalent: the piece
// that told apart a domain error ("could not trade stock" from a leader
// that is alive) from a replica simply being gone.
type Forwarder struct {
	elector  *Elector
	clients  map[int]*replicaclient.Client
	peers    map[int]Peer
	leaderID atomic.Int64 // -1 = unknown, re-elect on next request

	mu          sync.Mutex // serializes election so concurrent misses don't all probe at once
	maxAttempts int
	log         *logging.Logger
}

// NewForwarder builds a Forwarder over peers. maxAttempts bounds how many
// times a single request will trigger re-election before giving up.
func NewForwarder(peers map[int]Peer, pingTimeout time.Duration, maxAttempts int) *Forwarder {
	clients := make(map[int]*replicaclient.Client, len(peers))
	for id, p := range peers {
		clients[id] = replicaclient.New(p.BaseURL, pingTimeout)
	}
	if maxAttempts <= 0 {
		maxAttempts = len(peers)
	}
	f := &Forwarder{
		elector:     NewElector(peers, pingTimeout),
		clients:     clients,
		peers:       peers,
		maxAttempts: maxAttempts,
		log:         logging.GetDefault().Component("forward"),
	}
	f.leaderID.Store(-1)
	return f
}

// CurrentLeader reports the front-end's current leader view, or -1 if
// none has been elected yet (GET /leader, spec.md §6).
func (f *Forwarder) CurrentLeader() int64 { return f.leaderID.Load() }

// CurrentLeaderAddr reports the host and port of the front-end's current
// leader view, matching the {leader-host, leader-port} shape spec.md §6
// specifies for GET /leader. Returns ok=false before the first election.
func (f *Forwarder) CurrentLeaderAddr() (host, port string, ok bool) {
	id := f.leaderID.Load()
	if id <= 0 {
		return "", "", false
	}
	peer, exists := f.peers[int(id)]
	if !exists {
		return "", "", false
	}
	u, err := url.Parse(peer.BaseURL)
	if err != nil {
		return "", "", false
	}
	return u.Hostname(), u.Port(), true
}

func (f *Forwarder) resolveLeader(ctx context.Context) (int, error) {
	if id := f.leaderID.Load(); id > 0 {
		return int(id), nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id := f.leaderID.Load(); id > 0 {
		return int(id), nil
	}
	id, err := f.elector.Elect(ctx)
	if err != nil {
		return 0, apierr.NewUpstream("election failed: %v", err)
	}
	f.leaderID.Store(int64(id))
	return id, nil
}

// EnsureLeader runs an election immediately if the front-end doesn't
// already have a leader view, matching the original's synchronous
// ping_order_servers() call made once at startup before the HTTP server
// starts accepting requests (spec.md §2, §8). Safe to call even if a
// leader is already known; it is then a no-op.
func (f *Forwarder) EnsureLeader(ctx context.Context) error {
	_, err := f.resolveLeader(ctx)
	return err
}

func (f *Forwarder) invalidateLeader() {
	f.leaderID.Store(-1)
}

// ForwardTrade sends a buy or sell to the current leader, re-electing and
// retrying on transport failure up to maxAttempts times. A domain error
// from a reachable leader (e.g. insufficient shares) is returned verbatim
// on the first attempt. It is never a reason to re-elect.
func (f *Forwarder) ForwardTrade(ctx context.Context, route, name string, quantity int64) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		leaderID, err := f.resolveLeader(ctx)
		if err != nil {
			return 0, err
		}
		id, _, err := f.clients[leaderID].Trade(ctx, route, name, quantity)
		if err == nil {
			return id, nil
		}
		if _, ok := apierr.As(err); ok {
			return 0, err
		}
		f.log.Warn("leader unreachable, re-electing", "leader", leaderID, "error", err)
		f.invalidateLeader()
		lastErr = err
	}
	return 0, apierr.NewUpstream("no leader reachable: %v", lastErr)
}

// ForwardLookupOrder resolves a transaction id against the current leader,
// following the same re-election-on-transport-failure rule as ForwardTrade.
func (f *Forwarder) ForwardLookupOrder(ctx context.Context, id int64) (ledger.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		leaderID, err := f.resolveLeader(ctx)
		if err != nil {
			return ledger.Transaction{}, err
		}
		tx, _, err := f.clients[leaderID].LookupOrder(ctx, id)
		if err == nil {
			return tx, nil
		}
		if _, ok := apierr.As(err); ok {
			return ledger.Transaction{}, err
		}
		f.log.Warn("leader unreachable, re-electing", "leader", leaderID, "error", err)
		f.invalidateLeader()
		lastErr = err
	}
	return ledger.Transaction{}, apierr.NewUpstream("no leader reachable: %v", lastErr)
}
