package dismissal

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"go-jobcard-manager/internal/codec"
	"go-jobcard-manager/internal/metrics"
	"go-jobcard-manager/internal/storage"
)

const (
	LocalKey      = "dismissedJobIds"
	LastManualKey = "lastManualDismissal"

	DefaultChunkPrefix = "dismissed_"
	DefaultChunkBytes  = 8192
	DefaultQuota       = 8500
)

type Options struct {
	// ChunkPrefix names the synchronized chunk keys: prefix + index.
	ChunkPrefix string
	// ChunkBytes is the per-chunk ceiling, key included.
	ChunkBytes int
	// Quota caps the number of ids kept in the synchronized tier.
	Quota int
}

func (o Options) withDefaults() Options {
	if o.ChunkPrefix == "" {
		o.ChunkPrefix = DefaultChunkPrefix
	}
	if o.ChunkBytes <= 0 {
		o.ChunkBytes = DefaultChunkBytes
	}
	if o.Quota <= 0 {
		o.Quota = DefaultQuota
	}
	return o
}

// Store is the record of dismissed job cards. Memory is authoritative;
// the local tier is unbounded and the synchronized tier is chunked and capped.
type Store struct {
	local     storage.Area
	sync      storage.Area
	opts      Options
	chunkSize int

	known mapset.Set[string]

	mu         sync.Mutex
	batch      []string
	lastManual string
	lastDirty  bool

	synced atomic.Int64

	queue *queue
}

func NewStore(local, remote storage.Area, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		local:     local,
		sync:      remote,
		opts:      opts,
		chunkSize: ChunkCapacity(opts.ChunkPrefix, opts.ChunkBytes),
		known:     mapset.NewSet[string](),
		queue:     newQueue(),
	}
}

// Close stops the write queue. Pending operations are dropped.
func (s *Store) Close() {
	s.queue.close()
}

// Has reports whether id was dismissed, by code or by raw form.
func (s *Store) Has(id string) bool {
	if code, ok := codec.EncodeID(id); ok && s.known.Contains(code) {
		return true
	}
	return s.known.Contains(id)
}

// Add records id in memory and in the next flush batch. Returns false for
// ids already known or not encodable.
func (s *Store) Add(id string) bool {
	code, ok := codec.EncodeID(id)
	if !ok {
		log.Printf("⚠️ Skipping unencodable job id %q", id)
		return false
	}
	if !s.known.Add(code) {
		return false
	}
	s.mu.Lock()
	s.batch = append(s.batch, code)
	s.mu.Unlock()
	return true
}

// SetLastManual remembers the most recent manual dismissal.
func (s *Store) SetLastManual(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastManual = id
	s.lastDirty = true
}

func (s *Store) LastManual() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastManual
}

// Len is the number of dismissed ids known in memory.
func (s *Store) Len() int {
	return s.known.Cardinality()
}

// SyncedLen is the synchronized tier size as of the last flush or load.
func (s *Store) SyncedLen() int {
	return int(s.synced.Load())
}

// Dirty reports whether a flush has anything to write.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch) > 0 || s.lastDirty
}

// Load reads both tiers into memory and returns how many ids are known afterwards.
func (s *Store) Load(ctx context.Context) int {
	s.queue.do(ctx, func(ctx context.Context) {
		s.load(ctx)
	})
	return s.Len()
}

// Flush merges the pending batch into both tiers.
func (s *Store) Flush(ctx context.Context) {
	s.queue.do(ctx, func(ctx context.Context) {
		s.flush(ctx)
	})
}

// Remove forgets id in memory and rewrites every persisted key that held it.
func (s *Store) Remove(ctx context.Context, id string) {
	code, _ := codec.EncodeID(id)
	drop := func(v string) bool { return v == id || (code != "" && v == code) }

	s.known.Remove(id)
	if code != "" {
		s.known.Remove(code)
	}
	s.mu.Lock()
	s.batch, _ = without(s.batch, drop)
	if s.lastManual == id {
		s.lastManual = ""
		s.lastDirty = true
	}
	s.mu.Unlock()

	s.queue.do(ctx, func(ctx context.Context) {
		s.remove(ctx, drop)
	})
}

// Clear drops every record from memory and both tiers.
func (s *Store) Clear(ctx context.Context) {
	s.known.Clear()
	s.mu.Lock()
	s.batch = nil
	s.lastManual = ""
	s.lastDirty = false
	s.mu.Unlock()

	s.queue.do(ctx, func(ctx context.Context) {
		if err := s.local.Remove(ctx, LocalKey, LastManualKey); err != nil {
			s.storageError("local", "clear", err)
		}
		old, err := readChunks(ctx, s.sync, s.opts.ChunkPrefix)
		if err != nil {
			s.storageError("sync", "clear", err)
			return
		}
		if len(old.keys) > 0 {
			if err := s.sync.Remove(ctx, old.keys...); err != nil {
				s.storageError("sync", "clear", err)
				return
			}
		}
		s.setSynced(0)
		log.Println("🧹 Cleared all dismissal records")
	})
}

func (s *Store) load(ctx context.Context) {
	loaded := 0
	ids, err := storage.GetStrings(ctx, s.local, LocalKey)
	if err != nil {
		s.storageError("local", "load", err)
	}
	for _, id := range ids {
		if s.known.Add(id) {
			loaded++
		}
	}

	last, err := storage.GetString(ctx, s.local, LastManualKey)
	if err != nil {
		s.storageError("local", "load", err)
	} else if last != "" {
		s.mu.Lock()
		if s.lastManual == "" {
			s.lastManual = last
		}
		s.mu.Unlock()
	}

	chunks, err := readChunks(ctx, s.sync, s.opts.ChunkPrefix)
	if err != nil {
		s.storageError("sync", "load", err)
	} else {
		synced := chunks.ordered()
		for _, id := range synced {
			if s.known.Add(id) {
				loaded++
			}
		}
		s.setSynced(len(synced))
	}

	metrics.Records.WithLabelValues("local").Set(float64(len(ids)))
	log.Printf("📋 Loaded %d dismissed job ids (%d in sync tier)", loaded, s.SyncedLen())
}

func (s *Store) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	last, lastDirty := s.lastManual, s.lastDirty
	s.lastDirty = false
	s.mu.Unlock()

	if len(batch) == 0 && !lastDirty {
		return
	}

	localOK := s.flushLocal(ctx, batch, last, lastDirty)
	syncOK := s.flushSync(ctx, batch)
	if localOK && syncOK {
		log.Printf("💾 Flushed %d dismissed job ids", len(batch))
		return
	}

	// put the batch back so the next flush retries, minus ids that an undo
	// or clear-all dropped while this flush was running
	retry, _ := without(batch, func(code string) bool { return !s.known.Contains(code) })
	s.mu.Lock()
	s.batch = appendUnique(retry, s.batch)
	if !localOK && lastDirty {
		s.lastDirty = true
	}
	s.mu.Unlock()
}

func (s *Store) flushLocal(ctx context.Context, batch []string, last string, lastDirty bool) bool {
	ids, err := storage.GetStrings(ctx, s.local, LocalKey)
	if err != nil {
		s.storageError("local", "flush", err)
		return false
	}
	merged := appendUnique(ids, batch)

	if len(merged) != len(ids) {
		if err := storage.SetValue(ctx, s.local, LocalKey, merged); err != nil {
			s.storageError("local", "flush", err)
			return false
		}
	}
	if lastDirty {
		var err error
		if last == "" {
			err = s.local.Remove(ctx, LastManualKey)
		} else {
			err = storage.SetValue(ctx, s.local, LastManualKey, last)
		}
		if err != nil {
			s.storageError("local", "flush", err)
			return false
		}
	}
	metrics.Records.WithLabelValues("local").Set(float64(len(merged)))
	return true
}

func (s *Store) flushSync(ctx context.Context, batch []string) bool {
	if len(batch) == 0 {
		return true
	}
	old, err := readChunks(ctx, s.sync, s.opts.ChunkPrefix)
	if err != nil {
		s.storageError("sync", "flush", err)
		return false
	}
	merged := appendUnique(old.ordered(), batch)
	if len(merged) > s.opts.Quota {
		evicted := len(merged) - s.opts.Quota
		merged = merged[evicted:]
		log.Printf("✂️ Sync tier over quota, evicted %d oldest ids", evicted)
	}
	if err := writeChunks(ctx, s.sync, s.opts.ChunkPrefix, old, merged, s.opts.ChunkBytes, s.chunkSize); err != nil {
		s.storageError("sync", "flush", err)
		return false
	}
	s.setSynced(len(merged))
	return true
}

func (s *Store) remove(ctx context.Context, drop func(string) bool) {
	ids, err := storage.GetStrings(ctx, s.local, LocalKey)
	if err != nil {
		s.storageError("local", "remove", err)
	} else if kept, changed := without(ids, drop); changed {
		if err := storage.SetValue(ctx, s.local, LocalKey, kept); err != nil {
			s.storageError("local", "remove", err)
		}
	}

	s.mu.Lock()
	clearLast := s.lastDirty && s.lastManual == ""
	if clearLast {
		s.lastDirty = false
	}
	s.mu.Unlock()
	if clearLast {
		if err := s.local.Remove(ctx, LastManualKey); err != nil {
			s.storageError("local", "remove", err)
			s.mu.Lock()
			s.lastDirty = true
			s.mu.Unlock()
		}
	}

	old, err := readChunks(ctx, s.sync, s.opts.ChunkPrefix)
	if err != nil {
		s.storageError("sync", "remove", err)
		return
	}
	kept, changed := without(old.ordered(), drop)
	if !changed {
		return
	}
	if err := writeChunks(ctx, s.sync, s.opts.ChunkPrefix, old, kept, s.opts.ChunkBytes, s.chunkSize); err != nil {
		s.storageError("sync", "remove", err)
		return
	}
	s.setSynced(len(kept))
}

func (s *Store) setSynced(n int) {
	s.synced.Store(int64(n))
	metrics.Records.WithLabelValues("sync").Set(float64(n))
}

func (s *Store) storageError(tier, op string, err error) {
	metrics.StorageErrors.WithLabelValues(tier, op).Inc()
	log.Printf("⚠️ Dismissal store %s %s failed, keeping memory state: %v", tier, op, err)
}
