package orderreplica

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/internal/metrics"
	"github.com/klingon-exchange/tradeledger/internal/replicaclient"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// pushPool fans a single committed transaction out to every peer in
// parallel, bounded to at most `size` concurrent outbound pushes
// (spec.md §5). It must never block the leader's response path, so
// broadcast spawns its own goroutine and returns immediately; individual
// push failures are logged and swallowed (spec.md §4.2: recovery is the
// follower's responsibility via sync).
type pushPool struct {
	sem     chan struct{}
	clients map[int]*replicaclient.Client
	selfID  int
	log     *logging.Logger
}

func newPushPool(size int, peers map[int]Peer, selfID int, log *logging.Logger) *pushPool {
	clients := make(map[int]*replicaclient.Client, len(peers))
	for id, p := range peers {
		if id == selfID {
			continue
		}
		clients[id] = replicaclient.New(p.BaseURL, 5*time.Second)
	}
	return &pushPool{
		sem:     make(chan struct{}, size),
		clients: clients,
		selfID:  selfID,
		log:     log,
	}
}

func (p *pushPool) broadcast(id int64, entry ledger.Transaction) {
	nonce := uuid.NewString()
	go func() {
		start := time.Now()
		defer func() { metrics.PushDuration.Observe(time.Since(start).Seconds()) }()

		var wg sync.WaitGroup
		for peerID, client := range p.clients {
			wg.Add(1)
			p.sem <- struct{}{}
			go func(peerID int, client *replicaclient.Client) {
				defer wg.Done()
				defer func() { <-p.sem }()

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Push(ctx, id, entry, nonce); err != nil {
					p.log.Debug("push delivery failed", "peer", peerID, "id", id, "error", err)
				}
			}(peerID, client)
		}
		wg.Wait()
	}()
}
