package bili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

// QR poll states reported by the passport endpoint
const (
	qrCodeClaimed   = 0
	qrCodeExpired   = 86038
	qrCodeScanned   = 86090
	qrCodeUnscanned = 86101
)

// QRState is the observable state of a pending QR login.
type QRState int

const (
	QRWaiting QRState = iota // not scanned yet
	QRScanned                // scanned, awaiting confirmation on the phone
	QRClaimed                // confirmed; credentials are available
	QRExpired                // code timed out; request a new one
)

// QRTicket identifies one pending QR login.
type QRTicket struct {
	URL string // content to render as a QR code
	Key string // poll key
}

// Credentials are the session cookies issued on a claimed QR login.
type Credentials struct {
	SESSDATA     string
	BiliJCT      string
	RefreshToken string
}

// QRGenerate requests a new login QR code.
func (c *Client) QRGenerate(ctx context.Context) (*QRTicket, error) {
	data, err := c.doRequest(ctx, c.passportBase, "/x/passport-login/web/qrcode/generate", "")
	if err != nil {
		return nil, err
	}

	var payload qrGenerateData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding qr generate: %v", domain.ErrNetwork, err)
	}
	if payload.URL == "" || payload.QRCodeKey == "" {
		return nil, &domain.UpstreamError{Message: "qr generate response incomplete"}
	}

	c.logger.Info("login QR generated")
	return &QRTicket{URL: payload.URL, Key: payload.QRCodeKey}, nil
}

// QRPoll checks the claim state of a pending QR login. On QRClaimed the
// returned credentials are taken from the poll response's cookies.
func (c *Client) QRPoll(ctx context.Context, ticket *QRTicket) (QRState, *Credentials, error) {
	q := url.Values{}
	q.Set("qrcode_key", ticket.Key)

	reqURL := c.passportBase + "/x/passport-login/web/qrcode/poll?" + q.Encode()
	req, err := newGetRequest(ctx, reqURL)
	if err != nil {
		return QRWaiting, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("qr poll failed", "error", err)
		return QRWaiting, nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return QRWaiting, nil, fmt.Errorf("%w: decoding qr poll: %v", domain.ErrNetwork, err)
	}
	if env.Code != 0 {
		return QRWaiting, nil, &domain.UpstreamError{Code: env.Code, Message: env.Message}
	}

	var payload qrPollData
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return QRWaiting, nil, fmt.Errorf("%w: decoding qr poll data: %v", domain.ErrNetwork, err)
	}

	switch payload.Code {
	case qrCodeClaimed:
		creds := &Credentials{RefreshToken: payload.RefreshToken}
		for _, cookie := range resp.Cookies() {
			switch cookie.Name {
			case "SESSDATA":
				creds.SESSDATA = cookie.Value
			case "bili_jct":
				creds.BiliJCT = cookie.Value
			}
		}
		if creds.SESSDATA == "" {
			return QRWaiting, nil, &domain.UpstreamError{Message: "claimed login carried no session cookie"}
		}
		c.logger.Info("login QR claimed")
		c.sessdata = creds.SESSDATA
		return QRClaimed, creds, nil
	case qrCodeScanned:
		return QRScanned, nil, nil
	case qrCodeExpired:
		return QRExpired, nil, domain.ErrQRExpired
	case qrCodeUnscanned:
		return QRWaiting, nil, nil
	default:
		return QRWaiting, nil, &domain.UpstreamError{Code: payload.Code, Message: payload.Message}
	}
}

// WaitForQRLogin polls the ticket every interval until it is claimed,
// expires, or ctx ends. onState is invoked on every state observation so
// callers can show progress.
func (c *Client) WaitForQRLogin(ctx context.Context, ticket *QRTicket, interval time.Duration, onState func(QRState)) (*Credentials, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	tickerC := time.NewTicker(interval)
	defer tickerC.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tickerC.C:
		}

		state, creds, err := c.QRPoll(ctx, ticket)
		if onState != nil {
			onState(state)
		}
		switch {
		case state == QRClaimed:
			return creds, nil
		case state == QRExpired:
			return nil, domain.ErrQRExpired
		case err != nil:
			// Transient poll failures are retried on the next tick
			c.logger.Warn("qr poll error, retrying", "error", err)
		}
	}
}
