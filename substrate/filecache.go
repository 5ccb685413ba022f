package substrate

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CachedFile is one content-addressed cache entry.
type CachedFile struct {
	Path    string
	ModTime time.Time
	Hash    string
	Bytes   []byte
	storedAt time.Time
}

// DefaultFileCacheTTL bounds how long an entry is trusted before it must be
// re-read, independent of fsnotify invalidation.
const DefaultFileCacheTTL = 10 * time.Minute

// DefaultFileCacheCapBytes bounds total cache size; insertion past the cap
// evicts the oldest entries until there is room.
const DefaultFileCacheCapBytes = 64 * 1024 * 1024

// FileCache is the content-addressed store of file reads described in
// spec.md §4.6, consulted before any file-read tool executes. It is safe
// for concurrent use and invalidates entries both by TTL and by watching
// the underlying paths for external modification via fsnotify.
type FileCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	capBytes  int64
	curBytes  int64
	order     []string // insertion order of keys, oldest first
	entries   map[string]*CachedFile

	watcher *fsnotify.Watcher // nil if the platform watcher could not start
}

// NewFileCache constructs a FileCache with the given TTL and byte cap (0
// selects the package defaults). If the fsnotify watcher cannot be created
// the cache still functions, falling back to TTL-only invalidation.
func NewFileCache(ttl time.Duration, capBytes int64) *FileCache {
	if ttl <= 0 {
		ttl = DefaultFileCacheTTL
	}
	if capBytes <= 0 {
		capBytes = DefaultFileCacheCapBytes
	}
	fc := &FileCache{
		ttl:      ttl,
		capBytes: capBytes,
		entries:  make(map[string]*CachedFile),
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		fc.watcher = w
		go fc.watchLoop()
	}
	return fc
}

func (fc *FileCache) watchLoop() {
	for {
		select {
		case ev, ok := <-fc.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				fc.invalidate(ev.Name)
			}
		case _, ok := <-fc.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (fc *FileCache) invalidate(path string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if e, ok := fc.entries[path]; ok {
		fc.curBytes -= int64(len(e.Bytes))
		delete(fc.entries, path)
	}
}

// Close stops the fsnotify watcher, if one was started.
func (fc *FileCache) Close() error {
	if fc.watcher != nil {
		return fc.watcher.Close()
	}
	return nil
}

// Get returns the cached bytes for path if present, not expired, and its
// recorded mtime still matches currentModTime.
func (fc *FileCache) Get(path string, currentModTime time.Time) ([]byte, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	e, ok := fc.entries[path]
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > fc.ttl {
		return nil, false
	}
	if !e.ModTime.Equal(currentModTime) {
		return nil, false
	}
	return e.Bytes, true
}

// Put stores path's contents, evicting the oldest entries if the cache
// would exceed its byte cap. It also begins watching path for external
// changes, if a watcher is available.
func (fc *FileCache) Put(path string, modTime time.Time, content []byte) {
	sum := sha256.Sum256(content)

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if old, existed := fc.entries[path]; existed {
		fc.curBytes -= int64(len(old.Bytes))
	} else {
		fc.order = append(fc.order, path)
	}

	fc.entries[path] = &CachedFile{
		Path:     path,
		ModTime:  modTime,
		Hash:     hex.EncodeToString(sum[:]),
		Bytes:    content,
		storedAt: time.Now(),
	}
	fc.curBytes += int64(len(content))

	for fc.curBytes > fc.capBytes && len(fc.order) > 0 {
		oldest := fc.order[0]
		fc.order = fc.order[1:]
		if e, ok := fc.entries[oldest]; ok {
			fc.curBytes -= int64(len(e.Bytes))
			delete(fc.entries, oldest)
		}
	}

	if fc.watcher != nil {
		_ = fc.watcher.Add(path)
	}
}

// Invalidate forcibly drops path from the cache, e.g. right after a
// successful write/edit tool so the next read cannot observe stale bytes.
func (fc *FileCache) Invalidate(path string) {
	fc.invalidate(path)
}
