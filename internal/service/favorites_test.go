package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
	"github.com/ajisaka/favtune/internal/store"
)

type fakeRepo struct {
	folders   []domain.FavFolder
	folderErr error
	listCalls int
	items     map[int64][]domain.FavMediaItem
	itemCalls int
}

func (r *fakeRepo) ListFolders(ctx context.Context, mid int64) ([]domain.FavFolder, error) {
	r.listCalls++
	if r.folderErr != nil {
		return nil, r.folderErr
	}
	out := make([]domain.FavFolder, len(r.folders))
	copy(out, r.folders)
	return out, nil
}

func (r *fakeRepo) ListFolderItems(ctx context.Context, folderID int64, pn, ps int) ([]domain.FavMediaItem, int, bool, error) {
	r.itemCalls++
	all := r.items[folderID]
	start := (pn - 1) * ps
	if start >= len(all) {
		return nil, len(all), false, nil
	}
	end := start + ps
	if end > len(all) {
		end = len(all)
	}
	page := make([]domain.FavMediaItem, end-start)
	copy(page, all[start:end])
	return page, len(all), end < len(all), nil
}

func newTestService(t *testing.T, repo *fakeRepo) (*FavoritesService, *store.CacheStore) {
	t.Helper()
	st, err := store.New("")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewFavoritesService(repo, st, 1000, nil)
	// run background tasks inline so tests see their effects
	svc.spawn = func(task func()) { task() }
	return svc, st
}

func folderFixtures(n int) []domain.FavFolder {
	out := make([]domain.FavFolder, n)
	for i := range out {
		out[i] = domain.FavFolder{
			ID:        int64(100 + i),
			Title:     fmt.Sprintf("folder %d", i),
			SortOrder: i,
		}
	}
	return out
}

func itemFixtures(n int) []domain.FavMediaItem {
	out := make([]domain.FavMediaItem, n)
	for i := range out {
		out[i] = domain.FavMediaItem{
			BVID:  fmt.Sprintf("BV%010d", i),
			Title: fmt.Sprintf("track %d", i),
		}
	}
	return out
}

func TestFoldersColdCacheFetches(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(3)}
	svc, _ := newTestService(t, repo)

	got, err := svc.Folders(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d folders, want 3", len(got))
	}
	if repo.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", repo.listCalls)
	}
	for _, f := range got {
		if f.CachedAt.IsZero() {
			t.Errorf("folder %d has zero CachedAt", f.ID)
		}
	}
}

func TestFoldersFreshCacheSkipsNetwork(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(2)}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}
	// just inside the TTL
	base := time.Now()
	svc.now = func() time.Time { return base.Add(FolderListTTL - time.Second) }

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (fresh cache must not refresh)", repo.listCalls)
	}
}

func TestFoldersStaleCacheServesAndRefreshes(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(2)}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}
	repo.folders = folderFixtures(5)

	base := time.Now()
	svc.now = func() time.Time { return base.Add(FolderListTTL + time.Second) }

	// stale read still answers, refresh runs inline via test spawn
	got, err := svc.Folders(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("stale read returned %d folders, want cached 2", len(got))
	}
	if repo.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2 (one initial, one refresh)", repo.listCalls)
	}

	got, err = svc.Folders(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("post-refresh read returned %d folders, want 5", len(got))
	}
}

func TestFoldersStaleRefreshCoalesces(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(1)}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}

	// hold the guard as if a refresh were already in flight
	svc.mu.Lock()
	svc.refreshing = true
	svc.mu.Unlock()

	base := time.Now()
	svc.now = func() time.Time { return base.Add(FolderListTTL + time.Minute) }

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (in-flight guard must suppress refresh)", repo.listCalls)
	}
}

func TestFoldersForceBypassesCache(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(2)}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}
	repo.folders = folderFixtures(4)

	got, err := svc.Folders(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("forced read returned %d folders, want 4", len(got))
	}
	if repo.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2", repo.listCalls)
	}
}

func TestFoldersEmptyResultReplacesCache(t *testing.T) {
	repo := &fakeRepo{folders: folderFixtures(3)}
	svc, st := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Folders(ctx, false); err != nil {
		t.Fatal(err)
	}

	repo.folders = nil
	got, err := svc.Folders(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d folders, want 0", len(got))
	}
	if n := st.CountFolders(); n != 0 {
		t.Errorf("store still holds %d folders after empty replace", n)
	}
}

func TestRefreshPageLeavesOtherPagesIntact(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(t, repo)

	all := itemFixtures(40)
	if err := svc.ReplaceAll(42, all); err != nil {
		t.Fatal(err)
	}

	page2 := itemFixtures(40)[20:40]
	for i := range page2 {
		page2[i].Title = "updated " + page2[i].Title
	}
	if err := svc.RefreshPage(42, page2, 2, 20); err != nil {
		t.Fatal(err)
	}

	got, ok := svc.CachedItems(42)
	if !ok || len(got) != 40 {
		t.Fatalf("got %d items, want 40", len(got))
	}
	for i, item := range got {
		if item.Position != i {
			t.Fatalf("position %d at index %d", item.Position, i)
		}
		updated := i >= 20
		if updated && item.Title != "updated track "+fmt.Sprint(i) {
			t.Errorf("page-2 item %d not updated: %q", i, item.Title)
		}
		if !updated && item.Title != "track "+fmt.Sprint(i) {
			t.Errorf("page-1 item %d was touched: %q", i, item.Title)
		}
	}
}

func TestSyncFolderWalksAllPages(t *testing.T) {
	repo := &fakeRepo{items: map[int64][]domain.FavMediaItem{7: itemFixtures(45)}}
	svc, _ := newTestService(t, repo)

	got, err := svc.SyncFolder(context.Background(), 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 45 {
		t.Fatalf("got %d items, want 45", len(got))
	}
	// three pages of 20, 20, 5
	if repo.itemCalls != 3 {
		t.Errorf("itemCalls = %d, want 3", repo.itemCalls)
	}
	for i, item := range got {
		if item.Position != i {
			t.Fatalf("position %d at index %d", item.Position, i)
		}
		if item.FolderID != 7 {
			t.Fatalf("folderID %d at index %d", item.FolderID, i)
		}
	}
}

func TestSyncFolderCacheHitSkipsNetwork(t *testing.T) {
	repo := &fakeRepo{items: map[int64][]domain.FavMediaItem{7: itemFixtures(5)}}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.SyncFolder(ctx, 7, false); err != nil {
		t.Fatal(err)
	}
	calls := repo.itemCalls

	got, err := svc.SyncFolder(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d items, want 5", len(got))
	}
	if repo.itemCalls != calls {
		t.Errorf("itemCalls grew to %d, cached sync must not hit the network", repo.itemCalls)
	}
}

func TestSyncFolderForceReplaces(t *testing.T) {
	repo := &fakeRepo{items: map[int64][]domain.FavMediaItem{7: itemFixtures(25)}}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.SyncFolder(ctx, 7, false); err != nil {
		t.Fatal(err)
	}

	// folder shrank upstream
	repo.items[7] = itemFixtures(3)
	got, err := svc.SyncFolder(ctx, 7, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d items after forced sync, want 3", len(got))
	}
}
