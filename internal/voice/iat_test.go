package voice

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeIAT struct {
	t        *testing.T
	frames   []frame
	replies  []string
	rawQuery url.Values
}

func (f *fakeIAT) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.rawQuery = r.URL.Query()
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var fr frame
		if err := conn.ReadJSON(&fr); err != nil {
			return
		}
		f.frames = append(f.frames, fr)
		if fr.Data.Status == statusLast {
			break
		}
	}
	for _, reply := range f.replies {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return
		}
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v2/iat"
	c := NewClient(Config{AppID: "app", APIKey: "key", APISecret: "secret"}).WithEndpoint(endpoint, 0)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return c
}

func result(status int, ls bool, words ...string) string {
	ws := make([]map[string]interface{}, 0, len(words))
	for _, w := range words {
		ws = append(ws, map[string]interface{}{"cw": []map[string]string{{"w": w}}})
	}
	b, _ := json.Marshal(map[string]interface{}{
		"code":    0,
		"message": "success",
		"sid":     "iat000001",
		"data": map[string]interface{}{
			"status": status,
			"result": map[string]interface{}{"sn": 1, "ls": ls, "ws": ws},
		},
	})
	return string(b)
}

func TestSignedURL(t *testing.T) {
	c := NewClient(Config{AppID: "app", APIKey: "key", APISecret: "secret"})
	c.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	signed, err := c.SignedURL()
	if err != nil {
		t.Fatalf("SignedURL() error = %v", err)
	}
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "iat-api.xfyun.cn" || u.Path != "/v2/iat" {
		t.Errorf("unexpected url %s", signed)
	}

	q := u.Query()
	if q.Get("date") != "Sun, 01 Mar 2026 08:00:00 GMT" {
		t.Errorf("date = %q", q.Get("date"))
	}
	if q.Get("host") != "iat-api.xfyun.cn" {
		t.Errorf("host = %q", q.Get("host"))
	}

	raw, err := base64.StdEncoding.DecodeString(q.Get("authorization"))
	if err != nil {
		t.Fatalf("authorization is not base64: %v", err)
	}
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("host: iat-api.xfyun.cn\ndate: Sun, 01 Mar 2026 08:00:00 GMT\nGET /v2/iat HTTP/1.1"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	auth := string(raw)
	if !strings.Contains(auth, `api_key="key"`) || !strings.Contains(auth, `headers="host date request-line"`) {
		t.Errorf("authorization = %q", auth)
	}
	if !strings.Contains(auth, `signature="`+want+`"`) {
		t.Errorf("authorization signature mismatch: %q", auth)
	}
}

func TestTranscribe(t *testing.T) {
	fake := &fakeIAT{t: t, replies: []string{
		result(1, false, "我想", "去"),
		result(2, true, "北京"),
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	audio := bytes.Repeat([]byte{1, 2}, frameBytes) // two full frames
	var events []Event
	text, err := newTestClient(t, srv).Transcribe(context.Background(), bytes.NewReader(audio), func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "我想去北京" {
		t.Errorf("text = %q", text)
	}
	if len(events) != 2 || events[0].Final || events[0].Text != "我想去" || !events[1].Final {
		t.Errorf("events = %+v", events)
	}

	if len(fake.frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(fake.frames))
	}
	first := fake.frames[0]
	if first.Common == nil || first.Common.AppID != "app" || first.Business == nil || first.Business.Language != "zh_cn" {
		t.Errorf("first frame missing parameters: %+v", first)
	}
	if first.Data.Status != statusFirst || first.Data.Format != audioFormat {
		t.Errorf("first frame data = %+v", first.Data)
	}
	if fake.frames[1].Common != nil || fake.frames[1].Data.Status != statusMid {
		t.Errorf("second frame = %+v", fake.frames[1])
	}
	if fake.frames[2].Data.Status != statusLast || fake.frames[2].Data.Audio != "" {
		t.Errorf("last frame = %+v", fake.frames[2])
	}
	decoded, _ := base64.StdEncoding.DecodeString(first.Data.Audio)
	if len(decoded) != frameBytes {
		t.Errorf("first frame carries %d bytes", len(decoded))
	}
	if fake.rawQuery.Get("authorization") == "" {
		t.Error("handshake carried no authorization")
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	fake := &fakeIAT{t: t, replies: []string{result(2, true)}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	text, err := newTestClient(t, srv).Transcribe(context.Background(), bytes.NewReader(nil), nil)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q", text)
	}
	if len(fake.frames) != 2 || fake.frames[0].Common == nil {
		t.Errorf("frames = %+v", fake.frames)
	}
}

func TestTranscribeServiceError(t *testing.T) {
	fake := &fakeIAT{t: t, replies: []string{`{"code":10165,"message":"invalid handle","sid":"iat000002"}`}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := newTestClient(t, srv).Transcribe(context.Background(), strings.NewReader("pcm"), nil)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if svcErr.Code != 10165 || svcErr.SID != "iat000002" {
		t.Errorf("unexpected error %+v", svcErr)
	}
}

func TestTranscribeClosedEarly(t *testing.T) {
	fake := &fakeIAT{t: t, replies: []string{result(1, false, "半")}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := newTestClient(t, srv).Transcribe(context.Background(), strings.NewReader("pcm"), nil)
	if err == nil || !strings.Contains(err.Error(), "before the final result") {
		t.Errorf("expected early close error, got %v", err)
	}
}

func TestTranscribeNotConfigured(t *testing.T) {
	_, err := NewClient(Config{AppID: "app"}).Transcribe(context.Background(), strings.NewReader(""), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
