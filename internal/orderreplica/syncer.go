package orderreplica

import (
	"context"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/replicaclient"
)

// SyncOnStartup iterates every peer, pulling any entries this replica is
// missing and adopting the largest leader-id any peer reports (spec.md
// §4.2 "sync", §9 sync/idempotence laws). Per-peer failures are swallowed:
// a replica that cannot reach any peer simply stays in Unknown-Leader
// until the front-end pings it or broadcasts a leader.
func (r *Replica) SyncOnStartup(ctx context.Context) {
	var bestLeader int64 = -1

	for peerID, peer := range r.peers {
		if peerID == r.serverID {
			continue
		}
		client := replicaclient.New(peer.BaseURL, 5*time.Second)

		// Ask from the lowest id this replica is missing, so gaps left by
		// out-of-order pushes are filled too, not just the tail.
		nextID, held := r.DumpDatabase()
		lastID := nextID
		for id := int64(0); id < nextID; id++ {
			if _, ok := held[id]; !ok {
				lastID = id
				break
			}
		}
		res, err := client.Sync(ctx, lastID)
		if err != nil {
			r.log.Debug("sync with peer failed", "peer", peerID, "error", err)
			continue
		}

		for id, tx := range res.Transactions {
			r.ApplyFromPeer(id, tx)
		}
		if res.LeaderID > bestLeader {
			bestLeader = res.LeaderID
		}
	}

	if bestLeader > 0 {
		r.leaderID.Store(bestLeader)
		r.log.Info("adopted leader from sync", "leader-id", bestLeader)
	}
}
