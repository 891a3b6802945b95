package badger

import (
	"context"
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// links returns the stored link set in key order.
func (s *BadgerStore) links(context.Context) ([]model.Edge, error) {
	gen, err := s.currentLinkGen()
	if err != nil || gen == 0 {
		return nil, err
	}
	prefix := genPrefix(gen)
	var links []model.Edge
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()[len(prefix):]
			links = append(links, model.Edge{
				Source: model.EntryID(binary.BigEndian.Uint64(k[:8])),
				Target: model.EntryID(binary.BigEndian.Uint64(k[8:16])),
			})
		}
		return nil
	})
	return links, err
}
