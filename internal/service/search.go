package service

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ajisaka/favtune/internal/domain"
	rankfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// FilterResult is a search hit with match metadata for highlighting.
type FilterResult struct {
	Item           domain.FavMediaItem
	MatchedIndexes []int
	Score          int
}

// filterIndex implements fuzzy.Source over the indexed items.
type filterIndex struct {
	items       []domain.FavMediaItem
	lowerTitles []string
}

func (idx *filterIndex) String(i int) string { return idx.lowerTitles[i] }
func (idx *filterIndex) Len() int            { return len(idx.items) }

// SearchService performs fuzzy search across cached folder contents.
// The index is rebuilt from cached items as folders are opened.
type SearchService struct {
	logger *slog.Logger

	mu      sync.RWMutex
	index   *filterIndex
	indexed map[string]bool // bvid per folder, avoids duplicates
}

func NewSearchService(logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		logger:  logger,
		index:   &filterIndex{},
		indexed: make(map[string]bool),
	}
}

// IndexItems adds items to the filter index, deduplicating by folder and
// bvid. Lowercase titles are precomputed at index time.
func (s *SearchService) IndexItems(items []domain.FavMediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, item := range items {
		key := itemKey(item)
		if s.indexed[key] {
			continue
		}
		s.indexed[key] = true
		s.index.items = append(s.index.items, item)
		s.index.lowerTitles = append(s.index.lowerTitles, strings.ToLower(searchText(item)))
		added++
	}

	s.logger.Debug("indexed items for search", "added", added, "total", s.index.Len())
}

// Filter matches the query against indexed titles and uploader names,
// best matches first.
func (s *SearchService) Filter(query string) []FilterResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" || s.index.Len() == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, s.index)
	if len(matches) == 0 {
		return s.rankNormalized(query)
	}

	results := make([]FilterResult, len(matches))
	for i, m := range matches {
		results[i] = FilterResult{
			Item:           s.index.items[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// rankNormalized is the fallback when the exact subsequence match comes
// up empty: matches with unicode normalization folding so "cafe" still
// finds "Café". No per-rune positions, so results carry no highlight
// indexes. Callers hold s.mu.
func (s *SearchService) rankNormalized(query string) []FilterResult {
	ranks := rankfuzzy.RankFindNormalizedFold(query, s.index.lowerTitles)
	if len(ranks) == 0 {
		return nil
	}
	sort.Sort(ranks)

	results := make([]FilterResult, len(ranks))
	for i, r := range ranks {
		results[i] = FilterResult{
			Item:  s.index.items[r.OriginalIndex],
			Score: r.Distance,
		}
	}
	return results
}

// ClearIndex drops the whole index, used on logout.
func (s *SearchService) ClearIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = &filterIndex{}
	s.indexed = make(map[string]bool)
	s.logger.Debug("cleared search index")
}

// IndexCount returns the number of indexed items.
func (s *SearchService) IndexCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

func itemKey(item domain.FavMediaItem) string {
	return strconv.FormatInt(item.FolderID, 10) + ":" + item.BVID
}

// searchText is the string matched against queries: title plus uploader.
func searchText(item domain.FavMediaItem) string {
	if item.UpName == "" {
		return item.Title
	}
	return item.Title + " " + item.UpName
}
