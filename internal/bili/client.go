// Package bili is the HTTP client for the upstream platform's web API:
// account navigation, favorite folders, folder contents, stream
// resolution, and QR login. Read endpoints that require WBI signing go
// through the signature engine; keys are bootstrapped lazily from the
// navigation endpoint.
package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
	"github.com/ajisaka/favtune/internal/sign"
)

const (
	defaultAPIBase      = "https://api.bilibili.com"
	defaultPassportBase = "https://passport.bilibili.com"
	defaultReferer      = "https://www.bilibili.com"
	defaultTimeout      = 30 * time.Second

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// Client implements domain.FavoriteRepository and domain.PlayURLResolver.
type Client struct {
	apiBase      string
	passportBase string
	sessdata     string
	wbi          *sign.Wbi
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates an API client. sessdata may be empty for endpoints
// that work logged-out (QR login, nav key bootstrap).
func NewClient(sessdata string, wbi *sign.Wbi, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if wbi == nil {
		wbi = sign.New()
	}
	return &Client{
		apiBase:      defaultAPIBase,
		passportBase: defaultPassportBase,
		sessdata:     sessdata,
		wbi:          wbi,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Wbi exposes the signature engine for session lifecycle management.
func (c *Client) Wbi() *sign.Wbi { return c.wbi }

// newGetRequest builds a GET request with the browser headers the
// upstream CDN and API expect.
func newGetRequest(ctx context.Context, reqURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", defaultReferer)
	return req, nil
}

// doRequest performs an authenticated GET and returns the decoded data
// payload. A nil-or-missing data field on a zero status code is an
// upstream contract violation, reported as UpstreamError rather than a
// nil dereference downstream.
func (c *Client) doRequest(ctx context.Context, base, path, rawQuery string) (json.RawMessage, error) {
	env, err := c.doRaw(ctx, base, path, rawQuery)
	if err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, &domain.UpstreamError{Code: env.Code, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &domain.UpstreamError{Code: env.Code, Message: "response data missing"}
	}
	return env.Data, nil
}

// doRaw performs the request and returns the whole envelope; some
// endpoints carry a usable data payload alongside a non-zero code.
func (c *Client) doRaw(ctx context.Context, base, path, rawQuery string) (*envelope, error) {
	reqURL := base + path
	if rawQuery != "" {
		reqURL += "?" + rawQuery
	}

	req, err := newGetRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if c.sessdata != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: c.sessdata})
	}

	c.logger.Debug("api request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("api request error", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrNetwork, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrNetwork, err)
	}
	return &env, nil
}

// signedRequest signs params, issues the request, and retries once after
// refreshing keys if the upstream rejects the signature.
func (c *Client) signedRequest(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	if err := c.ensureKeys(ctx, false); err != nil {
		return nil, err
	}

	signed, err := c.wbi.Sign(params)
	if err != nil {
		return nil, err
	}
	data, err := c.doRequest(ctx, c.apiBase, path, sign.Encode(signed))

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.IsSignatureRejected() {
		c.logger.Warn("signature rejected, refreshing keys", "path", path)
		if err := c.ensureKeys(ctx, true); err != nil {
			return nil, err
		}
		signed, err = c.wbi.Sign(params)
		if err != nil {
			return nil, err
		}
		return c.doRequest(ctx, c.apiBase, path, sign.Encode(signed))
	}
	return data, err
}

// ensureKeys initializes the signature key pair from the navigation
// endpoint. With force it refreshes even when already initialized.
func (c *Client) ensureKeys(ctx context.Context, force bool) error {
	if c.wbi.Initialized() && !force {
		return nil
	}

	nav, err := c.Nav(ctx)
	if err != nil {
		return err
	}
	if nav.ImgKey == "" || nav.SubKey == "" {
		return &domain.UpstreamError{Message: "navigation response missing wbi keys"}
	}
	c.wbi.UpdateKeys(nav.ImgKey, nav.SubKey)
	c.logger.Debug("wbi keys initialized")
	return nil
}

// NavInfo is the decoded navigation payload: signature keys plus account
// identity when logged in.
type NavInfo struct {
	LoggedIn bool
	Mid      int64
	Username string
	ImgKey   string
	SubKey   string
}

// Nav fetches navigation info. Works logged-out: the endpoint answers
// code -101 (not logged in) but still serves the key URLs in data.
func (c *Client) Nav(ctx context.Context) (*NavInfo, error) {
	env, err := c.doRaw(ctx, c.apiBase, "/x/web-interface/nav", "")
	if err != nil {
		return nil, err
	}
	if env.Code != 0 && env.Code != -101 {
		return nil, &domain.UpstreamError{Code: env.Code, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &domain.UpstreamError{Code: env.Code, Message: "response data missing"}
	}

	var nav navData
	if err := json.Unmarshal(env.Data, &nav); err != nil {
		return nil, fmt.Errorf("%w: decoding nav: %v", domain.ErrNetwork, err)
	}
	info := &NavInfo{
		LoggedIn: nav.IsLogin,
		Mid:      nav.Mid,
		Username: nav.Uname,
	}
	if nav.WbiImg != nil {
		info.ImgKey = sign.KeyFromURL(nav.WbiImg.ImgURL)
		info.SubKey = sign.KeyFromURL(nav.WbiImg.SubURL)
	}
	return info, nil
}

// ListFolders returns all favorite folders created by the account.
func (c *Client) ListFolders(ctx context.Context, mid int64) ([]domain.FavFolder, error) {
	q := url.Values{}
	q.Set("up_mid", strconv.FormatInt(mid, 10))
	data, err := c.doRequest(ctx, c.apiBase, "/x/v3/fav/folder/created/list-all", q.Encode())
	if err != nil {
		return nil, err
	}

	var payload folderListData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding folder list: %v", domain.ErrNetwork, err)
	}
	// A null list is a valid zero-folder result
	return mapFolders(payload.List), nil
}

// ListFolderItems returns one page of a folder's contents. Signed.
func (c *Client) ListFolderItems(ctx context.Context, folderID int64, pn, ps int) ([]domain.FavMediaItem, int, bool, error) {
	data, err := c.signedRequest(ctx, "/x/v3/fav/resource/list", map[string]string{
		"media_id": strconv.FormatInt(folderID, 10),
		"pn":       strconv.Itoa(pn),
		"ps":       strconv.Itoa(ps),
		"platform": "web",
	})
	if err != nil {
		return nil, 0, false, err
	}

	var payload resourceListData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, 0, false, fmt.Errorf("%w: decoding folder contents: %v", domain.ErrNetwork, err)
	}
	total := 0
	if payload.Info != nil {
		total = payload.Info.MediaCount
	}
	return mapMedias(folderID, payload.Medias), total, payload.HasMore, nil
}

// view resolves a video's stream identifier and display metadata.
func (c *Client) view(ctx context.Context, bvid string) (*viewData, error) {
	q := url.Values{}
	q.Set("bvid", bvid)
	data, err := c.doRequest(ctx, c.apiBase, "/x/web-interface/view", q.Encode())
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) && (upstream.Code == -404 || upstream.Code == 62002) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	var v viewData
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: decoding view: %v", domain.ErrNetwork, err)
	}
	if v.CID == 0 {
		return nil, &domain.UpstreamError{Message: "view response missing cid"}
	}
	return &v, nil
}

// ResolveAudio resolves the best audio stream for a video. The returned
// entry has CachedAt/ExpiresAt unset; the caching policy stamps them.
func (c *Client) ResolveAudio(ctx context.Context, bvid string) (*domain.PlayURLEntry, error) {
	v, err := c.view(ctx, bvid)
	if err != nil {
		return nil, err
	}

	data, err := c.signedRequest(ctx, "/x/player/wbi/playurl", map[string]string{
		"bvid":  bvid,
		"cid":   strconv.FormatInt(v.CID, 10),
		"qn":    "0",
		"fnval": "16", // DASH, audio and video split
		"fnver": "0",
		"fourk": "1",
	})
	if err != nil {
		return nil, err
	}

	var payload playURLData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding playurl: %v", domain.ErrNetwork, err)
	}
	audio, ok := bestAudio(&payload)
	if !ok {
		return nil, &domain.UpstreamError{Message: "playurl response has no audio stream"}
	}

	entry := &domain.PlayURLEntry{
		BVID:     bvid,
		CID:      v.CID,
		AudioURL: audio.url(),
		Title:    v.Title,
		CoverURL: v.Pic,
		Duration: time.Duration(v.Duration) * time.Second,
	}
	if v.Owner != nil {
		entry.Artist = v.Owner.Name
	}
	return entry, nil
}
