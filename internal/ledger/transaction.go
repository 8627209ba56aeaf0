// Package ledger holds the transaction type and the on-disk codec shared
// by every order replica (spec.md §3, §6). Each replica owns its own
// ledger; nothing in this package is shared-mutable across replicas.
package ledger

// TransactionType is the side of a trade.
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// Transaction is one committed ledger entry. IDs are assigned densely and
// contiguously from 0 by the leader (spec.md §3); once persisted, an entry
// is never mutated.
type Transaction struct {
	ID       int64           `json:"-"`
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Type     TransactionType `json:"type"`
}
