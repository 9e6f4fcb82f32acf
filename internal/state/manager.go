package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/arivven/ddns-sync/internal/metrics"
)

const recordPrefix = "record:"

type Manager interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, state State) error
	Close() error
}

type badgerManager struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func New(path string, metrics *metrics.Metrics) (Manager, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	m := &badgerManager{db: db, metrics: metrics}
	return m, nil
}

func (m *badgerManager) LoadState(ctx context.Context) (State, error) {
	state := State{
		Records: make(map[string]RecordState),
	}

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			name := key[len(recordPrefix):]

			err := item.Value(func(val []byte) error {
				var record RecordState
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				state.Records[name] = record
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	m.metrics.IncStateRequest("read", err == nil)
	return state, err
}

func (m *badgerManager) SaveState(ctx context.Context, state State) error {
	txn := m.db.NewTransaction(true)
	defer txn.Discard()

	// Collect existing keys so entries for records no longer managed get removed
	existing := make(map[string]bool)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	prefix := []byte(recordPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		name := key[len(recordPrefix):]
		existing[name] = true
	}
	it.Close()

	for name, record := range state.Records {
		data, err := json.Marshal(record)
		if err != nil {
			m.metrics.IncStateRequest("update", false)
			return err
		}
		key := recordPrefix + name
		if err := txn.Set([]byte(key), data); err != nil {
			m.metrics.IncStateRequest("update", false)
			return err
		}
		delete(existing, name)
	}

	for name := range existing {
		key := recordPrefix + name
		if err := txn.Delete([]byte(key)); err != nil {
			m.metrics.IncStateRequest("update", false)
			return err
		}
	}
	err := txn.Commit()
	m.metrics.IncStateRequest("update", err == nil)
	return err
}

func (m *badgerManager) Close() error {
	return m.db.Close()
}
