// Package voice streams PCM audio to the iFlytek IAT dictation service.
package voice

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/tripkit/internal/logger"
)

const (
	DefaultEndpoint = "wss://iat-api.xfyun.cn/v2/iat"

	// 40ms of 16 kHz mono PCM16.
	frameBytes    = 1280
	frameInterval = 40 * time.Millisecond
	audioFormat   = "audio/L16;rate=16000"

	statusFirst = 0
	statusMid   = 1
	statusLast  = 2
)

var ErrNotConfigured = errors.New("speech recognition needs xunfei_app_id, xunfei_api_key and xunfei_api_secret")

// Config holds the iFlytek application credentials.
type Config struct {
	AppID     string
	APIKey    string
	APISecret string
}

// Event is a partial or final transcription. Text is the full transcript so far.
type Event struct {
	Text  string
	Final bool
}

// ServiceError is a non-zero code returned by the service.
type ServiceError struct {
	Code    int
	Message string
	SID     string
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("iflytek error %d: %s (sid %s)", e.Code, msg, e.SID)
}

// Client is a dictation client. It is safe to reuse across calls but each
// Transcribe opens its own connection.
type Client struct {
	cfg      Config
	endpoint string
	interval time.Duration
	dialer   *websocket.Dialer
	now      func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		endpoint: DefaultEndpoint,
		interval: frameInterval,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		now:      time.Now,
	}
}

// WithEndpoint overrides the service URL and frame pacing, used by tests.
func (c *Client) WithEndpoint(endpoint string, interval time.Duration) *Client {
	c.endpoint = endpoint
	c.interval = interval
	return c
}

func (c *Client) Configured() bool {
	return c.cfg.AppID != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// SignedURL returns the endpoint with the HMAC-SHA256 authorization query
// over "host date request-line".
func (c *Client) SignedURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid speech endpoint: %w", err)
	}
	date := c.now().UTC().Format(http.TimeFormat)
	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", u.Host, date, u.Path)

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		c.cfg.APIKey, signature)

	q := url.Values{}
	q.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	q.Set("date", date)
	q.Set("host", u.Host)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type frame struct {
	Common   *commonParams   `json:"common,omitempty"`
	Business *businessParams `json:"business,omitempty"`
	Data     frameData       `json:"data"`
}

type commonParams struct {
	AppID string `json:"app_id"`
}

type businessParams struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	VInfo    int    `json:"vinfo"`
	VadEOS   int    `json:"vad_eos"`
}

type frameData struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio"`
}

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	SID     string `json:"sid"`
	Data    struct {
		Status int `json:"status"`
		Result struct {
			SN int  `json:"sn"`
			LS bool `json:"ls"`
			WS []struct {
				CW []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

func (r response) text() string {
	var b strings.Builder
	for _, ws := range r.Data.Result.WS {
		for _, cw := range ws.CW {
			b.WriteString(cw.W)
		}
	}
	return b.String()
}

func (r response) final() bool {
	return r.Data.Status == statusLast || r.Data.Result.LS
}

// Transcribe streams raw 16 kHz mono PCM16 audio from pcm and returns the
// final transcript. onEvent, when non-nil, sees every interim result.
func (c *Client) Transcribe(ctx context.Context, pcm io.Reader, onEvent func(Event)) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	signed, err := c.SignedURL()
	if err != nil {
		return "", err
	}

	conn, resp, err := c.dialer.DialContext(ctx, signed, nil)
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("speech service handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("failed to connect to speech service: %w", err)
	}
	defer conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { conn.Close() })
	defer stop()

	var transcript string
	g.Go(func() error { return c.stream(gctx, conn, pcm) })
	g.Go(func() error {
		text, err := receive(conn, onEvent)
		transcript = text
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return transcript, nil
}

func (c *Client) stream(ctx context.Context, conn *websocket.Conn, pcm io.Reader) error {
	var ticker *time.Ticker
	if c.interval > 0 {
		ticker = time.NewTicker(c.interval)
		defer ticker.Stop()
	}

	buf := make([]byte, frameBytes)
	status := statusFirst
	for {
		n, readErr := io.ReadFull(pcm, buf)
		if n > 0 {
			if err := c.send(conn, status, buf[:n]); err != nil {
				return err
			}
			status = statusMid
			if ticker != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read audio: %w", readErr)
		}
	}

	if status == statusFirst {
		// No audio at all: the first frame must still carry the parameters.
		if err := c.send(conn, statusFirst, nil); err != nil {
			return err
		}
	}
	return c.send(conn, statusLast, nil)
}

func (c *Client) send(conn *websocket.Conn, status int, audio []byte) error {
	f := frame{Data: frameData{
		Status:   status,
		Format:   audioFormat,
		Encoding: "raw",
		Audio:    base64.StdEncoding.EncodeToString(audio),
	}}
	if status == statusFirst {
		f.Common = &commonParams{AppID: c.cfg.AppID}
		f.Business = &businessParams{Language: "zh_cn", Domain: "iat", Accent: "mandarin", VInfo: 1, VadEOS: 5000}
	}
	if err := conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to send audio frame: %w", err)
	}
	return nil
}

func receive(conn *websocket.Conn, onEvent func(Event)) (string, error) {
	var full strings.Builder
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return full.String(), fmt.Errorf("speech connection closed before the final result: %w", err)
		}
		var r response
		if err := json.Unmarshal(msg, &r); err != nil {
			return full.String(), fmt.Errorf("invalid speech service message: %w", err)
		}
		if r.Code != 0 {
			return full.String(), &ServiceError{Code: r.Code, Message: r.Message, SID: r.SID}
		}

		full.WriteString(r.text())
		ev := Event{Text: full.String(), Final: r.final()}
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Final {
			logger.Debug("Transcription finished", "sid", r.SID, "chars", len([]rune(ev.Text)))
			return ev.Text, nil
		}
	}
}
