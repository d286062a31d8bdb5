package service

import (
	"testing"

	"github.com/ajisaka/favtune/internal/domain"
)

func searchFixtures() []domain.FavMediaItem {
	return []domain.FavMediaItem{
		{FolderID: 1, BVID: "BV1a", Title: "Night City Lights", UpName: "synthартист"},
		{FolderID: 1, BVID: "BV1b", Title: "Morning Rain", UpName: "lofi channel"},
		{FolderID: 2, BVID: "BV1c", Title: "Midnight Drive", UpName: "wave"},
	}
}

func TestFilterMatchesTitle(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())

	results := svc.Filter("night")
	if len(results) == 0 {
		t.Fatal("no results for 'night'")
	}
	for _, r := range results {
		if r.Item.BVID == "BV1b" {
			t.Errorf("unrelated item matched: %s", r.Item.Title)
		}
	}
}

func TestFilterMatchesUploader(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())

	results := svc.Filter("lofi")
	if len(results) != 1 || results[0].Item.BVID != "BV1b" {
		t.Fatalf("uploader match failed, got %d results", len(results))
	}
}

func TestFilterEmptyQuery(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())

	if got := svc.Filter(""); got != nil {
		t.Errorf("empty query returned %d results", len(got))
	}
	if got := svc.Filter("   "); got != nil {
		t.Errorf("blank query returned %d results", len(got))
	}
}

func TestIndexDeduplicates(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())
	svc.IndexItems(searchFixtures())

	if n := svc.IndexCount(); n != 3 {
		t.Errorf("index count = %d, want 3", n)
	}

	// same bvid in a different folder is a distinct entry
	svc.IndexItems([]domain.FavMediaItem{{FolderID: 9, BVID: "BV1a", Title: "Night City Lights"}})
	if n := svc.IndexCount(); n != 4 {
		t.Errorf("index count = %d, want 4", n)
	}
}

func TestClearIndex(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())
	svc.ClearIndex()

	if n := svc.IndexCount(); n != 0 {
		t.Errorf("index count = %d after clear", n)
	}
	if got := svc.Filter("night"); got != nil {
		t.Errorf("cleared index still matches: %d results", len(got))
	}
}

func TestFilterAccentFoldFallback(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())
	svc.IndexItems([]domain.FavMediaItem{
		{FolderID: 2, BVID: "BV1d", Title: "Café", UpName: "wav"},
	})

	// "é" blocks the exact subsequence match, the normalized fallback
	// must still find the item.
	results := svc.Filter("cafe")
	if len(results) != 1 {
		t.Fatalf("got %d results for 'cafe', want 1", len(results))
	}
	if results[0].Item.BVID != "BV1d" {
		t.Errorf("matched %s, want BV1d", results[0].Item.BVID)
	}
	if results[0].MatchedIndexes != nil {
		t.Error("fallback results must not carry highlight indexes")
	}
}

func TestFilterNoMatchReturnsEmpty(t *testing.T) {
	svc := NewSearchService(nil)
	svc.IndexItems(searchFixtures())

	if got := svc.Filter("zzzqqq"); len(got) != 0 {
		t.Errorf("got %d results for nonsense query", len(got))
	}
}
