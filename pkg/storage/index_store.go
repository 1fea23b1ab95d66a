package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// PebbleIndexStore is an optional durable mirror of state.Index: a
// short binary key prefix per concern (state:<version> for the content map,
// one prefix per tier-last map, one for the predecessor chain) over
// JSON-encoded content values and raw 32-byte version values, so a resuming process can reconstruct an Index
// without re-deriving it from a cold chain sync.
type PebbleIndexStore struct {
	db *pebble.DB
}

func NewPebbleIndexStore(path string) (*PebbleIndexStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleIndexStore{db: db}, nil
}

func (s *PebbleIndexStore) Close() error { return s.db.Close() }

const (
	prefixState           = "state:"
	prefixPredictedLast   = "predicted:last:"
	prefixConfirmedLast   = "confirmed:last:"
	prefixUnconfirmedLast = "unconfirmed:last:"
	prefixPredictionLink  = "prediction:link:"
)

func kState(version types.ID) []byte          { return append([]byte(prefixState), version[:]...) }
func kPredictedLast(id types.ID) []byte       { return append([]byte(prefixPredictedLast), id[:]...) }
func kConfirmedLast(id types.ID) []byte       { return append([]byte(prefixConfirmedLast), id[:]...) }
func kUnconfirmedLast(id types.ID) []byte     { return append([]byte(prefixUnconfirmedLast), id[:]...) }
func kPredictionLink(version types.ID) []byte { return append([]byte(prefixPredictionLink), version[:]...) }

// SaveContent persists a version's bundled entity under state:<version>.
func (s *PebbleIndexStore) SaveContent(version types.ID, b recipe.Bundled) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("storage: marshal content %s: %w", version, err)
	}
	if err := s.db.Set(kState(version), data, pebble.Sync); err != nil {
		return fmt.Errorf("storage: save content %s: %w", version, err)
	}
	return nil
}

// LoadContent reads a version's bundled entity back. ok is false if version
// was never saved (or was never reached by write-behind, since the store is
// not consulted on the hot path - see the write-behind note in DESIGN.md).
func (s *PebbleIndexStore) LoadContent(version types.ID) (recipe.Bundled, bool, error) {
	val, closer, err := s.db.Get(kState(version))
	if err == pebble.ErrNotFound {
		return recipe.Bundled{}, false, nil
	}
	if err != nil {
		return recipe.Bundled{}, false, fmt.Errorf("storage: load content %s: %w", version, err)
	}
	defer closer.Close()
	var b recipe.Bundled
	if err := json.Unmarshal(val, &b); err != nil {
		return recipe.Bundled{}, false, fmt.Errorf("storage: unmarshal content %s: %w", version, err)
	}
	return b, true, nil
}

func (s *PebbleIndexStore) saveLast(key []byte, version types.ID) error {
	if err := s.db.Set(key, version[:], pebble.Sync); err != nil {
		return fmt.Errorf("storage: save last %s: %w", key, err)
	}
	return nil
}

func (s *PebbleIndexStore) loadLast(key []byte) (types.ID, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return types.ID{}, false, nil
	}
	if err != nil {
		return types.ID{}, false, fmt.Errorf("storage: load last %s: %w", key, err)
	}
	defer closer.Close()
	var id types.ID
	copy(id[:], val)
	return id, true, nil
}

func (s *PebbleIndexStore) SavePredictedLast(id, version types.ID) error {
	return s.saveLast(kPredictedLast(id), version)
}
func (s *PebbleIndexStore) LoadPredictedLast(id types.ID) (types.ID, bool, error) {
	return s.loadLast(kPredictedLast(id))
}

func (s *PebbleIndexStore) SaveConfirmedLast(id, version types.ID) error {
	return s.saveLast(kConfirmedLast(id), version)
}
func (s *PebbleIndexStore) LoadConfirmedLast(id types.ID) (types.ID, bool, error) {
	return s.loadLast(kConfirmedLast(id))
}

func (s *PebbleIndexStore) SaveUnconfirmedLast(id, version types.ID) error {
	return s.saveLast(kUnconfirmedLast(id), version)
}
func (s *PebbleIndexStore) LoadUnconfirmedLast(id types.ID) (types.ID, bool, error) {
	return s.loadLast(kUnconfirmedLast(id))
}

// DeleteTiers drops every tier entry for id.
func (s *PebbleIndexStore) DeleteTiers(id types.ID) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	batch.Delete(kConfirmedLast(id), nil)
	batch.Delete(kUnconfirmedLast(id), nil)
	batch.Delete(kPredictedLast(id), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("storage: delete tiers %s: %w", id, err)
	}
	return nil
}

// SavePredictionLink records version's predecessor, so Invalidate can
// walk the chain back after a restart.
func (s *PebbleIndexStore) SavePredictionLink(version, predecessor types.ID) error {
	return s.saveLast(kPredictionLink(version), predecessor)
}

func (s *PebbleIndexStore) LoadPredictionLink(version types.ID) (types.ID, bool, error) {
	return s.loadLast(kPredictionLink(version))
}

func (s *PebbleIndexStore) DeletePredictionLink(version types.ID) error {
	if err := s.db.Delete(kPredictionLink(version), pebble.Sync); err != nil {
		return fmt.Errorf("storage: delete prediction link %s: %w", version, err)
	}
	return nil
}
