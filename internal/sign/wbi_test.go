package sign

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

const (
	testImgKey = "7cd084941338484aae1ad9425b84077c"
	testSubKey = "4932caff0ff746eaa6f01bf08b70ac45"
	// Documented mixin key for the key pair above
	testMixinKey = "ea1db124af3c7062474693fa704f4ff8"
)

func TestMixinKey(t *testing.T) {
	got := mixinKey(testImgKey, testSubKey)
	if len(got) != 32 {
		t.Fatalf("mixin key length = %d, want 32", len(got))
	}
	if got != testMixinKey {
		t.Fatalf("mixinKey() = %q, want %q", got, testMixinKey)
	}
	// Deterministic for identical input
	if again := mixinKey(testImgKey, testSubKey); again != got {
		t.Fatalf("mixinKey() not deterministic: %q vs %q", again, got)
	}
}

func TestSignNotInitialized(t *testing.T) {
	w := New()
	if _, err := w.Sign(map[string]string{"foo": "bar"}); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("Sign() error = %v, want ErrNotInitialized", err)
	}

	w.UpdateKeys(testImgKey, testSubKey)
	if !w.Initialized() {
		t.Fatal("Initialized() = false after UpdateKeys")
	}
	if _, err := w.Sign(map[string]string{"foo": "bar"}); err != nil {
		t.Fatalf("Sign() after UpdateKeys: %v", err)
	}

	w.ClearKeys()
	if w.Initialized() {
		t.Fatal("Initialized() = true after ClearKeys")
	}
	if _, err := w.Sign(nil); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("Sign() after ClearKeys error = %v, want ErrNotInitialized", err)
	}
}

func TestSignAtReproducible(t *testing.T) {
	w := NewWithKeys(testImgKey, testSubKey)
	now := time.Unix(1702204169, 0)
	params := map[string]string{
		"foo": "114",
		"bar": "514",
		"zab": "1919810",
	}

	first, err := w.SignAt(params, now)
	if err != nil {
		t.Fatalf("SignAt: %v", err)
	}
	second, err := w.SignAt(params, now)
	if err != nil {
		t.Fatalf("SignAt: %v", err)
	}
	if first.Get("w_rid") != second.Get("w_rid") {
		t.Fatalf("signature not reproducible: %q vs %q", first.Get("w_rid"), second.Get("w_rid"))
	}

	// The signature must cover the sorted, encoded canonical query
	canonical := "bar=514&foo=114&wts=1702204169&zab=1919810"
	sum := md5.Sum([]byte(canonical + testMixinKey))
	want := hex.EncodeToString(sum[:])
	if got := first.Get("w_rid"); got != want {
		t.Fatalf("w_rid = %q, want %q", got, want)
	}
	if first.Get("wts") != "1702204169" {
		t.Fatalf("wts = %q, want 1702204169", first.Get("wts"))
	}
}

func TestSignFiltersValues(t *testing.T) {
	w := NewWithKeys(testImgKey, testSubKey)
	now := time.Unix(1700000000, 0)

	signed, err := w.SignAt(map[string]string{"keyword": "it's(a)!test*"}, now)
	if err != nil {
		t.Fatalf("SignAt: %v", err)
	}
	if got := signed.Get("keyword"); got != "itsatest" {
		t.Fatalf("filtered value = %q, want %q", got, "itsatest")
	}

	// Signing the pre-filtered value must yield the same signature
	clean, err := w.SignAt(map[string]string{"keyword": "itsatest"}, now)
	if err != nil {
		t.Fatalf("SignAt: %v", err)
	}
	if signed.Get("w_rid") != clean.Get("w_rid") {
		t.Fatalf("filtered and clean signatures differ: %q vs %q", signed.Get("w_rid"), clean.Get("w_rid"))
	}
}

func TestEncodeCanonical(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{
			name:   "sorted by key",
			params: map[string]string{"b": "2", "a": "1", "c": "3"},
			want:   "a=1&b=2&c=3",
		},
		{
			name:   "space as percent-20",
			params: map[string]string{"q": "hello world"},
			want:   "q=hello%20world",
		},
		{
			name:   "multibyte escaped",
			params: map[string]string{"q": "音乐"},
			want:   "q=%E9%9F%B3%E4%B9%90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := make(map[string][]string, len(tt.params))
			for k, val := range tt.params {
				v[k] = []string{val}
			}
			if got := Encode(v); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://i0.hdslb.com/bfs/wbi/7cd084941338484aae1ad9425b84077c.png", "7cd084941338484aae1ad9425b84077c"},
		{"https://i0.hdslb.com/bfs/wbi/4932caff0ff746eaa6f01bf08b70ac45.png", "4932caff0ff746eaa6f01bf08b70ac45"},
		{"noextension", "noextension"},
		{"dir/trailing.slash/key.jpg", "key"},
	}

	for _, tt := range tests {
		if got := KeyFromURL(tt.url); got != tt.want {
			t.Errorf("KeyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
