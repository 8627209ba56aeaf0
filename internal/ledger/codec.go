package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/klingon-exchange/tradeledger/internal/fsutil"
)

// fileFormat mirrors the per-replica database file documented in spec.md
// §6: `{nextID, ledger: {id: entry}}`. Ledger keys are decimal strings
// because JSON object keys must be strings. The original Python service
// has the same constraint.
type fileFormat struct {
	NextID int64                  `json:"nextID"`
	Ledger map[string]Transaction `json:"ledger"`
}

// Load reads a replica's database file. A missing file is treated as an
// empty ledger starting at id 0, matching a freshly provisioned replica.
func Load(path string) (nextID int64, entries map[int64]Transaction, err error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, make(map[int64]Transaction), nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("read ledger file: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return 0, nil, fmt.Errorf("parse ledger file: %w", err)
	}

	entries = make(map[int64]Transaction, len(ff.Ledger))
	for idStr, tx := range ff.Ledger {
		id, convErr := strconv.ParseInt(idStr, 10, 64)
		if convErr != nil {
			return 0, nil, fmt.Errorf("parse ledger entry id %q: %w", idStr, convErr)
		}
		tx.ID = id
		entries[id] = tx
	}
	return ff.NextID, entries, nil
}

// Save rewrites the whole database file atomically (spec.md §6).
func Save(path string, nextID int64, entries map[int64]Transaction) error {
	ff := fileFormat{NextID: nextID, Ledger: make(map[string]Transaction, len(entries))}
	for id, tx := range entries {
		ff.Ledger[strconv.FormatInt(id, 10)] = tx
	}
	buf, err := json.MarshalIndent(ff, "", "    ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, buf)
}
