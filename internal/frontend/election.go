package frontend

import (
	"context"
	"sort"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/metrics"
	"github.com/klingon-exchange/tradeledger/internal/replicaclient"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Peer identifies an order replica the front-end can reach.
type Peer struct {
	ID      int
	BaseURL string
}

// Elector runs the front-end's leader election driver: probe replicas in
// strict descending id order, the first to answer /ping becomes leader,
// then broadcast that result to the rest (spec.md §4.3).
type Elector struct {
	order       []int
	clients     map[int]*replicaclient.Client
	pingTimeout time.Duration
	log         *logging.Logger
}

// NewElector builds an Elector over peers with the given per-probe timeout.
func NewElector(peers map[int]Peer, pingTimeout time.Duration) *Elector {
	clients := make(map[int]*replicaclient.Client, len(peers))
	order := make([]int, 0, len(peers))
	for id, p := range peers {
		clients[id] = replicaclient.New(p.BaseURL, pingTimeout)
		order = append(order, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))
	return &Elector{order: order, clients: clients, pingTimeout: pingTimeout, log: logging.GetDefault().Component("election")}
}

// Elect probes every peer highest-id-first and returns the first one to
// answer. The whole probe pass is the retry budget: a replica that never
// answers is simply skipped, never retried within one Elect call.
func (e *Elector) Elect(ctx context.Context) (int, error) {
	for _, id := range e.order {
		probeCtx, cancel := context.WithTimeout(ctx, e.pingTimeout)
		serverID, err := e.clients[id].Ping(probeCtx)
		cancel()
		if err != nil {
			e.log.Debug("probe failed", "replica", id, "error", err)
			continue
		}
		e.log.Info("elected leader", "replica", serverID)
		metrics.ElectionsTotal.Inc()
		e.broadcast(serverID)
		return serverID, nil
	}
	return 0, apierr.NewUpstream("no replica answered election probe")
}

// broadcast tells every non-leader replica who won, fire-and-forget so a
// slow or unreachable follower never delays the caller's response.
func (e *Elector) broadcast(leaderID int) {
	for id, client := range e.clients {
		if id == leaderID {
			continue
		}
		go func(id int, client *replicaclient.Client) {
			bctx, cancel := context.WithTimeout(context.Background(), e.pingTimeout)
			defer cancel()
			if err := client.LeaderBroadcast(bctx, leaderID); err != nil {
				e.log.Debug("leader broadcast failed", "replica", id, "error", err)
			}
		}(id, client)
	}
}
