package gender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// Store is the durable classification cache for one logical account: a
// mapping from lower-cased normalized first name to Entry. The in-memory map
// is authoritative; Flush rewrites the full snapshot so a partial write can
// never corrupt state beyond the last complete flush.
type Store struct {
	path string
	log  *slog.Logger

	lk      sync.RWMutex
	entries map[string]Entry
}

// StorePath returns the XDG state file holding the cache for one account.
func StorePath(account string) (string, error) {
	return xdg.StateFile(fmt.Sprintf("followsync/gender-cache-%s.json", account))
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		log:     slog.Default().With("system", "gender-store"),
		entries: make(map[string]Entry),
	}
}

// Load replaces the in-memory map with the last flushed snapshot. A missing
// file is not an error: the store starts empty.
func (s *Store) Load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("reading gender cache: %w", err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("parsing gender cache (%s): %w", s.path, err)
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries = entries
	return nil
}

// Flush writes the full snapshot to disk, via a temp file and rename so
// readers never observe a partial write. On failure the in-memory contents
// are untouched and the next flush retries with then-current state.
func (s *Store) Flush() error {
	s.lk.RLock()
	b, err := json.MarshalIndent(s.entries, "", "  ")
	s.lk.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding gender cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".gender-cache-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing gender cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing gender cache: %w", err)
	}
	return nil
}

// Get looks up the entry for a raw name by its normalized key.
func (s *Store) Get(raw string) (Entry, bool) {
	return s.get(CacheKey(raw))
}

func (s *Store) get(key string) (Entry, bool) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *Store) put(key string, entry Entry) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries[key] = entry
}

func (s *Store) Len() int {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[string]Entry {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// ClassifyBatch resolves one entry per input name, in input order: cache hits
// immediately, misses through cls sequentially, storing each resolution under
// the normalized key. Cancellation stops further classifier calls and fills
// every remaining index with the unknown entry, so the output always has the
// same length as the input. The store is flushed exactly once when the batch
// ends, cancelled or not; a flush failure is logged and in-memory state kept
// for the next attempt.
func (s *Store) ClassifyBatch(ctx context.Context, cls Classifier, names []string, onProgress func(done, total int)) []Entry {
	out := make([]Entry, len(names))
	total := len(names)

	report := func(done int) {
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	for i, raw := range names {
		if ctx.Err() != nil {
			for j := i; j < len(names); j++ {
				out[j] = Unknown(CacheKey(names[j]))
			}
			break
		}

		key := CacheKey(raw)
		if key == "" {
			out[i] = Unknown("")
			report(i + 1)
			continue
		}

		if entry, ok := s.get(key); ok {
			storeHits.Inc()
			out[i] = entry
			report(i + 1)
			continue
		}
		storeMisses.Inc()

		entry, err := cls.Classify(ctx, key)
		if err != nil {
			// A single miss failing must not abort the batch, and a
			// failed prediction is not worth memoizing.
			s.log.Warn("classifier failed", "name", key, "err", err)
			out[i] = Unknown(key)
			report(i + 1)
			continue
		}
		entry.Name = key
		s.put(key, entry)
		out[i] = entry
		report(i + 1)
	}

	if err := s.Flush(); err != nil {
		s.log.Error("failed to flush gender cache", "path", s.path, "err", err)
	}
	return out
}
