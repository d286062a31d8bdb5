// Package sign implements the platform's WBI request-signing scheme:
// two rotating keys are mixed through a fixed character permutation, and
// each signed request carries a `wts` timestamp plus a `w_rid` MD5 digest
// of the canonical query string.
package sign

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

// mixinKeyEncTab is the published permutation table of the signing scheme:
// indices into the 64-character concatenation of imgKey+subKey. Only the
// first 32 permuted characters form the mixin key.
var mixinKeyEncTab = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35,
	27, 43, 5, 49, 33, 9, 42, 19, 29, 28, 14, 39, 12, 38, 41, 13,
	37, 48, 7, 16, 24, 55, 40, 61, 26, 17, 0, 1, 60, 51, 30, 4,
	22, 25, 54, 21, 56, 59, 6, 63, 57, 62, 11, 36, 20, 34, 44, 52,
}

// filteredChars are stripped from every parameter value before signing
const filteredChars = "!'()*"

// Wbi owns the process-wide signature key pair. The pair is empty at
// startup, populated from the navigation endpoint after login, and
// consumed read-only by every signing call until cleared or refreshed.
// Concurrent reads are safe; both keys are always swapped together.
type Wbi struct {
	mu     sync.RWMutex
	imgKey string
	subKey string
}

// New returns a Wbi with no keys. Sign fails with ErrNotInitialized
// until UpdateKeys is called.
func New() *Wbi {
	return &Wbi{}
}

// NewWithKeys returns a Wbi initialized with the given key pair.
// Intended for tests and for restoring a persisted session.
func NewWithKeys(imgKey, subKey string) *Wbi {
	return &Wbi{imgKey: imgKey, subKey: subKey}
}

// UpdateKeys swaps in a new key pair.
func (w *Wbi) UpdateKeys(imgKey, subKey string) {
	w.mu.Lock()
	w.imgKey = imgKey
	w.subKey = subKey
	w.mu.Unlock()
}

// ClearKeys forgets the key pair, e.g. on logout.
func (w *Wbi) ClearKeys() {
	w.mu.Lock()
	w.imgKey = ""
	w.subKey = ""
	w.mu.Unlock()
}

// Initialized reports whether both keys are set.
func (w *Wbi) Initialized() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.imgKey != "" && w.subKey != ""
}

// Sign returns the given parameters plus `wts` (current Unix seconds) and
// `w_rid` (the signature). Values have the filtered characters removed,
// so encoding the result transmits exactly the bytes that were signed.
func (w *Wbi) Sign(params map[string]string) (url.Values, error) {
	return w.SignAt(params, time.Now())
}

// SignAt is Sign with an explicit timestamp, so signatures are
// reproducible for a fixed key pair and time.
func (w *Wbi) SignAt(params map[string]string, now time.Time) (url.Values, error) {
	w.mu.RLock()
	imgKey, subKey := w.imgKey, w.subKey
	w.mu.RUnlock()

	if imgKey == "" || subKey == "" {
		return nil, domain.ErrNotInitialized
	}
	mixin := mixinKey(imgKey, subKey)

	signed := make(url.Values, len(params)+2)
	for k, v := range params {
		signed.Set(k, filterValue(v))
	}
	signed.Set("wts", strconv.FormatInt(now.Unix(), 10))

	query := Encode(signed)
	sum := md5.Sum([]byte(query + mixin))
	signed.Set("w_rid", hex.EncodeToString(sum[:]))
	return signed, nil
}

// Encode renders values as a canonical query string: keys in byte order,
// percent-encoded, with spaces as %20 rather than '+'. This is the exact
// string the signature covers, so callers must send it unmodified.
func Encode(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(v.Get(k)))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func filterValue(v string) string {
	if !strings.ContainsAny(v, filteredChars) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if strings.ContainsRune(filteredChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mixinKey concatenates the two keys and applies the permutation table,
// keeping the first 32 output characters.
func mixinKey(imgKey, subKey string) string {
	raw := imgKey + subKey
	var b strings.Builder
	b.Grow(32)
	for _, idx := range mixinKeyEncTab[:32] {
		if idx < len(raw) {
			b.WriteByte(raw[idx])
		}
	}
	return b.String()
}

// KeyFromURL extracts a signature key from its delivery URL: the last
// path segment with the extension stripped. Pure string manipulation.
func KeyFromURL(u string) string {
	base := path.Base(u)
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	return base
}
