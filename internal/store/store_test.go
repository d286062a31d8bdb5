package store

import (
	"testing"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

func newTestStore(t *testing.T, persistent bool) *CacheStore {
	t.Helper()
	dir := ""
	if persistent {
		dir = t.TempDir()
	}
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testFolder(id int64, order int, cachedAt time.Time) domain.FavFolder {
	return domain.FavFolder{
		ID:         id,
		FID:        id / 100,
		Mid:        4242,
		Title:      "folder",
		MediaCount: 10,
		SortOrder:  order,
		CachedAt:   cachedAt,
	}
}

func testItem(folderID int64, bvid string, pos int) domain.FavMediaItem {
	return domain.FavMediaItem{
		FolderID: folderID,
		BVID:     bvid,
		Title:    "track " + bvid,
		Position: pos,
		CachedAt: time.Now(),
	}
}

func TestReplaceFoldersRoundTrip(t *testing.T) {
	for _, persistent := range []bool{false, true} {
		s := newTestStore(t, persistent)

		if _, ok := s.GetFolders(); ok {
			t.Fatal("empty store reported cached folders")
		}
		if n := s.CountFolders(); n != 0 {
			t.Fatalf("CountFolders() = %d, want 0", n)
		}

		now := time.Now()
		folders := []domain.FavFolder{
			testFolder(3, 2, now),
			testFolder(1, 0, now),
			testFolder(2, 1, now),
		}
		if err := s.ReplaceFolders(folders); err != nil {
			t.Fatalf("ReplaceFolders: %v", err)
		}

		got, ok := s.GetFolders()
		if !ok || len(got) != 3 {
			t.Fatalf("GetFolders() = %d folders, ok=%v, want 3", len(got), ok)
		}
		for i, f := range got {
			if f.SortOrder != i {
				t.Fatalf("folders not in SortOrder: index %d has SortOrder %d", i, f.SortOrder)
			}
		}

		// A later replace with fewer folders removes the rest
		if err := s.ReplaceFolders([]domain.FavFolder{testFolder(9, 0, now)}); err != nil {
			t.Fatalf("ReplaceFolders: %v", err)
		}
		got, _ = s.GetFolders()
		if len(got) != 1 || got[0].ID != 9 {
			t.Fatalf("replace did not clear previous scope: %+v", got)
		}

		// An empty successful result is valid and clears the cache
		if err := s.ReplaceFolders(nil); err != nil {
			t.Fatalf("ReplaceFolders(nil): %v", err)
		}
		if _, ok := s.GetFolders(); ok {
			t.Fatal("folders still cached after empty replace")
		}
	}
}

func TestNewestFolderCachedAt(t *testing.T) {
	s := newTestStore(t, false)

	if _, ok := s.NewestFolderCachedAt(); ok {
		t.Fatal("NewestFolderCachedAt reported a timestamp for empty scope")
	}

	old := time.Now().Add(-time.Hour)
	newer := time.Now()
	s.ReplaceFolders([]domain.FavFolder{
		testFolder(1, 0, old),
		testFolder(2, 1, newer),
	})

	got, ok := s.NewestFolderCachedAt()
	if !ok {
		t.Fatal("NewestFolderCachedAt() ok = false")
	}
	if !got.Equal(newer) {
		t.Fatalf("NewestFolderCachedAt() = %v, want %v", got, newer)
	}
}

func TestUpsertFolderItemsIsolation(t *testing.T) {
	s := newTestStore(t, true)

	// Page 1 for folder 42
	page1 := make([]domain.FavMediaItem, 0, 20)
	for i := 0; i < 20; i++ {
		page1 = append(page1, testItem(42, bv(i), i))
	}
	if err := s.UpsertFolderItems(page1); err != nil {
		t.Fatalf("UpsertFolderItems: %v", err)
	}

	// Writing page 2 must not remove page 1's rows
	page2 := make([]domain.FavMediaItem, 0, 20)
	for i := 20; i < 40; i++ {
		page2 = append(page2, testItem(42, bv(i), i))
	}
	if err := s.UpsertFolderItems(page2); err != nil {
		t.Fatalf("UpsertFolderItems: %v", err)
	}

	// Rows in an unrelated folder stay untouched
	other := []domain.FavMediaItem{testItem(7, "BVother", 0)}
	if err := s.UpsertFolderItems(other); err != nil {
		t.Fatalf("UpsertFolderItems: %v", err)
	}

	items, ok := s.GetFolderItems(42)
	if !ok || len(items) != 40 {
		t.Fatalf("GetFolderItems(42) = %d items, want 40", len(items))
	}
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("positions not dense: index %d has position %d", i, it.Position)
		}
	}
	if n := s.CountFolderItems(7); n != 1 {
		t.Fatalf("CountFolderItems(7) = %d, want 1", n)
	}

	if err := s.DeleteFolderItems(42); err != nil {
		t.Fatalf("DeleteFolderItems: %v", err)
	}
	if _, ok := s.GetFolderItems(42); ok {
		t.Fatal("folder 42 items still cached after delete")
	}
	if n := s.CountFolderItems(7); n != 1 {
		t.Fatalf("deleting folder 42 touched folder 7: count = %d", n)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := newTestStore(t, false)

	items := []domain.FavMediaItem{
		testItem(1, "BVaaa", 0),
		testItem(1, "BVbbb", 1),
	}
	if err := s.UpsertFolderItems(items); err != nil {
		t.Fatalf("UpsertFolderItems: %v", err)
	}
	if err := s.UpsertFolderItems(items); err != nil {
		t.Fatalf("UpsertFolderItems (second): %v", err)
	}

	got, _ := s.GetFolderItems(1)
	if len(got) != 2 {
		t.Fatalf("idempotence violated: %d items, want 2", len(got))
	}
}

func TestUpsertOverwritesByKey(t *testing.T) {
	s := newTestStore(t, false)

	s.UpsertFolderItems([]domain.FavMediaItem{testItem(1, "BVaaa", 0)})

	updated := testItem(1, "BVaaa", 0)
	updated.Title = "renamed"
	s.UpsertFolderItems([]domain.FavMediaItem{updated})

	got, _ := s.GetFolderItems(1)
	if len(got) != 1 || got[0].Title != "renamed" {
		t.Fatalf("upsert did not fully overwrite: %+v", got)
	}
}

func TestPlayURLLifecycle(t *testing.T) {
	s := newTestStore(t, true)

	now := time.Now()
	entry := domain.PlayURLEntry{
		BVID:      "BV1xx411c7mD",
		CID:       112233,
		AudioURL:  "https://upos.example.com/audio.m4s",
		Title:     "some track",
		Artist:    "some uploader",
		Duration:  3 * time.Minute,
		CachedAt:  now,
		ExpiresAt: now.Add(domain.PlayURLTTL),
	}
	if err := s.PutPlayURL(entry); err != nil {
		t.Fatalf("PutPlayURL: %v", err)
	}

	got, ok := s.GetPlayURL(entry.BVID)
	if !ok {
		t.Fatal("GetPlayURL missed a fresh entry")
	}
	if got.AudioURL != entry.AudioURL || got.CID != entry.CID {
		t.Fatalf("GetPlayURL() = %+v, want %+v", got, entry)
	}

	// GetPlayURL does not apply the validity window; that is the policy's job
	if !got.Valid(now.Add(domain.PlayURLTTL - time.Second)) {
		t.Fatal("entry invalid one second before expiry")
	}
	if got.Valid(now.Add(domain.PlayURLTTL + time.Second)) {
		t.Fatal("entry valid one second after expiry")
	}

	if err := s.DeletePlayURL(entry.BVID); err != nil {
		t.Fatalf("DeletePlayURL: %v", err)
	}
	if _, ok := s.GetPlayURL(entry.BVID); ok {
		t.Fatal("entry still present after delete")
	}
}

func TestPurgeExpiredPlayURLs(t *testing.T) {
	s := newTestStore(t, false)

	now := time.Now()
	fresh := domain.PlayURLEntry{BVID: "BVfresh", CachedAt: now, ExpiresAt: now.Add(domain.PlayURLTTL)}
	stale := domain.PlayURLEntry{BVID: "BVstale", CachedAt: now.Add(-7 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	s.PutPlayURL(fresh)
	s.PutPlayURL(stale)

	n, err := s.PurgeExpiredPlayURLs(now)
	if err != nil {
		t.Fatalf("PurgeExpiredPlayURLs: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d entries, want 1", n)
	}
	if _, ok := s.GetPlayURL("BVfresh"); !ok {
		t.Fatal("purge removed a valid entry")
	}
	if _, ok := s.GetPlayURL("BVstale"); ok {
		t.Fatal("purge left an expired entry")
	}
}

func TestInvalidateAll(t *testing.T) {
	s := newTestStore(t, true)

	s.ReplaceFolders([]domain.FavFolder{testFolder(1, 0, time.Now())})
	s.UpsertFolderItems([]domain.FavMediaItem{testItem(1, "BVaaa", 0)})
	s.PutPlayURL(domain.PlayURLEntry{BVID: "BVaaa", ExpiresAt: time.Now().Add(time.Hour)})

	s.InvalidateAll()

	if n := s.CountFolders(); n != 0 {
		t.Fatalf("CountFolders() = %d after InvalidateAll", n)
	}
	if n := s.CountFolderItems(1); n != 0 {
		t.Fatalf("CountFolderItems(1) = %d after InvalidateAll", n)
	}
	if _, ok := s.GetPlayURL("BVaaa"); ok {
		t.Fatal("playurl still cached after InvalidateAll")
	}
}

// bv builds a deterministic fake BV code for index i.
func bv(i int) string {
	return string(rune('A'+i/26)) + string(rune('A'+i%26)) + "test"
}
