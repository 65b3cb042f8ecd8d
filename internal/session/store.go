package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
)

// ResultKey is the storage key of the latest analysis result.
const ResultKey = "analysisResult"

// Store keeps session-scoped data in an in-memory badger instance. Nothing
// survives the process.
type Store struct {
	db  *badger.DB
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

func Open(log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &Store{
		db:   db,
		log:  log.With().Str("component", "session").Logger(),
		subs: make(map[int]chan struct{}),
	}, nil
}

// SaveResult replaces the stored analysis result.
func (s *Store) SaveResult(result *domain.AnalysisResult) error {
	if result == nil {
		return s.Clear()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ResultKey), data)
	}); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	s.log.Debug().Str("wavKey", result.WavKey).Int("bytes", len(data)).Msg("result stored")
	s.notify()
	return nil
}

// LoadResult returns the stored result, or false when none is stored.
func (s *Store) LoadResult() (*domain.AnalysisResult, bool, error) {
	var result domain.AnalysisResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ResultKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load result: %w", err)
	}
	return &result, true, nil
}

// Clear drops the stored result.
func (s *Store) Clear() error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ResultKey))
	}); err != nil {
		return fmt.Errorf("failed to clear result: %w", err)
	}
	s.notify()
	return nil
}

// Subscribe returns a channel signalled after every change. Signals coalesce
// when the reader is slow. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
