// Package store persists the favorites cache in a bbolt database with
// one bucket per record kind. Records are JSON blobs under explicit
// composite keys, so upsert-by-key replacement works the same regardless
// of the storage backend.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ajisaka/favtune/internal/domain"
)

// Bucket names
var (
	bucketFolders = []byte("folders")
	bucketItems   = []byte("items")
	bucketPlayURL = []byte("playurl")
)

var buckets = [][]byte{bucketFolders, bucketItems, bucketPlayURL}

// CacheStore implements domain.Store using bbolt. With an empty directory
// it runs memory-only, which tests rely on.
type CacheStore struct {
	db *bolt.DB

	mu  sync.RWMutex
	mem map[string][]byte // bucket-prefixed key -> JSON, memory-only mode
}

// New opens (or creates) the cache database under dir.
func New(dir string) (*CacheStore, error) {
	if dir == "" {
		return &CacheStore{mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "favtune.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CacheStore{db: db}, nil
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func memKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

// putMany writes all pairs in one atomic transaction.
func (s *CacheStore) putMany(bucket []byte, pairs map[string][]byte) error {
	if s.db == nil {
		s.mu.Lock()
		for k, v := range pairs {
			s.mem[memKey(bucket, k)] = v
		}
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		for k, v := range pairs {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// replacePrefix deletes every key under prefix and writes pairs, atomically.
func (s *CacheStore) replacePrefix(bucket []byte, prefix string, pairs map[string][]byte) error {
	if s.db == nil {
		s.mu.Lock()
		memPrefix := memKey(bucket, prefix)
		for k := range s.mem {
			if strings.HasPrefix(k, memPrefix) {
				delete(s.mem, k)
			}
		}
		for k, v := range pairs {
			s.mem[memKey(bucket, k)] = v
		}
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		c := b.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		for k, v := range pairs {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// forEachPrefix calls fn with every key/value stored under prefix.
func (s *CacheStore) forEachPrefix(bucket []byte, prefix string, fn func(key string, value []byte)) {
	if s.db == nil {
		s.mu.RLock()
		memPrefix := memKey(bucket, prefix)
		for k, v := range s.mem {
			if strings.HasPrefix(k, memPrefix) {
				fn(strings.TrimPrefix(k, string(bucket)+":"), v)
			}
		}
		s.mu.RUnlock()
		return
	}
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			fn(string(k), v)
		}
		return nil
	})
}

func (s *CacheStore) get(bucket []byte, key string, dest interface{}) bool {
	if s.db == nil {
		s.mu.RLock()
		data, ok := s.mem[memKey(bucket, key)]
		s.mu.RUnlock()
		if !ok {
			return false
		}
		return json.Unmarshal(data, dest) == nil
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *CacheStore) delete(bucket []byte, key string) error {
	if s.db == nil {
		s.mu.Lock()
		delete(s.mem, memKey(bucket, key))
		s.mu.Unlock()
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// === Favorite folders ===

func folderKey(id int64) string {
	// Zero-padded so cursor order matches numeric order
	return fmt.Sprintf("%020d", id)
}

func (s *CacheStore) GetFolders() ([]domain.FavFolder, bool) {
	var folders []domain.FavFolder
	s.forEachPrefix(bucketFolders, "", func(_ string, v []byte) {
		var f domain.FavFolder
		if json.Unmarshal(v, &f) == nil {
			folders = append(folders, f)
		}
	})
	if len(folders) == 0 {
		return nil, false
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].SortOrder < folders[j].SortOrder
	})
	return folders, true
}

func (s *CacheStore) ReplaceFolders(folders []domain.FavFolder) error {
	pairs := make(map[string][]byte, len(folders))
	for _, f := range folders {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		pairs[folderKey(f.ID)] = data
	}
	return s.replacePrefix(bucketFolders, "", pairs)
}

func (s *CacheStore) NewestFolderCachedAt() (time.Time, bool) {
	var newest time.Time
	found := false
	s.forEachPrefix(bucketFolders, "", func(_ string, v []byte) {
		var f domain.FavFolder
		if json.Unmarshal(v, &f) != nil {
			return
		}
		if !found || f.CachedAt.After(newest) {
			newest = f.CachedAt
			found = true
		}
	})
	return newest, found
}

func (s *CacheStore) CountFolders() int {
	n := 0
	s.forEachPrefix(bucketFolders, "", func(string, []byte) { n++ })
	return n
}

// === Folder contents (composite key folderID:bvid) ===

func itemScope(folderID int64) string {
	return fmt.Sprintf("%d:", folderID)
}

func itemKey(folderID int64, bvid string) string {
	return itemScope(folderID) + bvid
}

func (s *CacheStore) GetFolderItems(folderID int64) ([]domain.FavMediaItem, bool) {
	var items []domain.FavMediaItem
	s.forEachPrefix(bucketItems, itemScope(folderID), func(_ string, v []byte) {
		var it domain.FavMediaItem
		if json.Unmarshal(v, &it) == nil {
			items = append(items, it)
		}
	})
	if len(items) == 0 {
		return nil, false
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})
	return items, true
}

func (s *CacheStore) UpsertFolderItems(items []domain.FavMediaItem) error {
	pairs := make(map[string][]byte, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return err
		}
		pairs[itemKey(it.FolderID, it.BVID)] = data
	}
	return s.putMany(bucketItems, pairs)
}

func (s *CacheStore) DeleteFolderItems(folderID int64) error {
	return s.replacePrefix(bucketItems, itemScope(folderID), nil)
}

func (s *CacheStore) CountFolderItems(folderID int64) int {
	n := 0
	s.forEachPrefix(bucketItems, itemScope(folderID), func(string, []byte) { n++ })
	return n
}

// === Playback URLs ===

func (s *CacheStore) GetPlayURL(bvid string) (*domain.PlayURLEntry, bool) {
	var e domain.PlayURLEntry
	if !s.get(bucketPlayURL, bvid, &e) {
		return nil, false
	}
	return &e, true
}

func (s *CacheStore) PutPlayURL(entry domain.PlayURLEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.putMany(bucketPlayURL, map[string][]byte{entry.BVID: data})
}

func (s *CacheStore) DeletePlayURL(bvid string) error {
	return s.delete(bucketPlayURL, bvid)
}

func (s *CacheStore) PurgeExpiredPlayURLs(now time.Time) (int, error) {
	var expired []string
	s.forEachPrefix(bucketPlayURL, "", func(k string, v []byte) {
		var e domain.PlayURLEntry
		if json.Unmarshal(v, &e) != nil {
			expired = append(expired, k) // unreadable entries go too
			return
		}
		if !e.Valid(now) {
			expired = append(expired, k)
		}
	})
	for _, k := range expired {
		if err := s.delete(bucketPlayURL, k); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// === Invalidation ===

func (s *CacheStore) InvalidateAll() {
	if s.db == nil {
		s.mu.Lock()
		s.mem = make(map[string][]byte)
		s.mu.Unlock()
		return
	}
	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
