package publisher

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testPost() Post {
	return Post{
		Title:    "每日Skill精选：PDF Toolkit",
		Markdown: "# 正文\n\n内容……",
		Date:     "2026-02-10",
	}
}

func TestRelayPublish(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody relayRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"publicationId": 4711},
		})
	}))
	defer srv.Close()

	p := NewRelay(srv.URL, "secret-key", "wx123", "")
	receipt, err := p.Publish(context.Background(), testPost())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if gotPath != "/wechat-publish" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret-key" || gotContentType != "application/json" {
		t.Errorf("headers = %q / %q", gotKey, gotContentType)
	}
	if gotBody.WechatAppID != "wx123" || gotBody.ContentFormat != "markdown" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Author != DefaultAuthor {
		t.Errorf("author = %q, want default %q", gotBody.Author, DefaultAuthor)
	}
	if receipt.ID != "4711" || receipt.Channel != "wechat-relay" {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestRelayPublish_RelayReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "quota exceeded"})
	}))
	defer srv.Close()

	p := NewRelay(srv.URL, "k", "wx123", "")
	_, err := p.Publish(context.Background(), testPost())

	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("error = %v, want *PublishError", err)
	}
	if !strings.Contains(pubErr.Error(), "quota exceeded") {
		t.Errorf("error = %v, want relay message included", pubErr)
	}
}

func TestRelayPublish_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewRelay(srv.URL, "k", "wx123", "")
	_, err := p.Publish(context.Background(), testPost())

	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("error = %v, want *PublishError", err)
	}
}

func TestPublicationID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc-123", "abc-123"},
		{float64(4711), "4711"},
	}
	for _, tt := range tests {
		if got := publicationID(tt.in); got != tt.want {
			t.Errorf("publicationID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGhostPublish(t *testing.T) {
	secret := []byte("0123456789abcdef")
	adminKey := "keyid123:" + hex.EncodeToString(secret)

	var gotAuth string
	var gotBody map[string][]ghostPost

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ghost/api/admin/posts/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"posts": []map[string]string{{"id": "65f1", "url": "https://blog.example.com/p/65f1"}},
		})
	}))
	defer srv.Close()

	p, err := NewGhost(srv.URL, adminKey)
	if err != nil {
		t.Fatalf("NewGhost() error = %v", err)
	}
	p.now = func() time.Time { return time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC) }

	receipt, err := p.Publish(context.Background(), testPost())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if receipt.ID != "65f1" || receipt.Channel != "ghost" {
		t.Errorf("receipt = %+v", receipt)
	}

	tokenString, ok := strings.CutPrefix(gotAuth, "Ghost ")
	if !ok {
		t.Fatalf("Authorization = %q, want Ghost scheme", gotAuth)
	}
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time {
		return time.Date(2026, 2, 10, 8, 1, 0, 0, time.UTC)
	}))
	if err != nil || !token.Valid {
		t.Fatalf("admin token invalid: %v", err)
	}
	if kid := token.Header["kid"]; kid != "keyid123" {
		t.Errorf("kid = %v", kid)
	}
	aud, err := token.Claims.GetAudience()
	if err != nil || len(aud) != 1 || aud[0] != "/admin/" {
		t.Errorf("aud = %v, err = %v", aud, err)
	}

	posts := gotBody["posts"]
	if len(posts) != 1 {
		t.Fatalf("posts = %+v", posts)
	}
	if posts[0].Status != "published" || posts[0].Title != "每日Skill精选：PDF Toolkit" {
		t.Errorf("post = %+v", posts[0])
	}
	if !strings.Contains(posts[0].Mobiledoc, `"markdown"`) || !strings.Contains(posts[0].Mobiledoc, "正文") {
		t.Errorf("mobiledoc = %q, want markdown card with content", posts[0].Mobiledoc)
	}
}

func TestNewGhost_BadKey(t *testing.T) {
	if _, err := NewGhost("https://blog.example.com", "no-colon"); err == nil {
		t.Error("NewGhost() accepted key without id:secret shape")
	}
	if _, err := NewGhost("https://blog.example.com", "id:zz-not-hex"); err == nil {
		t.Error("NewGhost() accepted non-hex secret")
	}
	if _, err := NewGhost("", "id:abcd"); err == nil {
		t.Error("NewGhost() accepted empty URL")
	}
}

func TestMobiledocFromMarkdown(t *testing.T) {
	doc, err := mobiledocFromMarkdown("# hi")
	if err != nil {
		t.Fatal(err)
	}
	var parsed struct {
		Version  string  `json:"version"`
		Cards    [][]any `json:"cards"`
		Sections [][]any `json:"sections"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("mobiledoc is not valid JSON: %v", err)
	}
	if parsed.Version != "0.3.1" || len(parsed.Cards) != 1 || parsed.Cards[0][0] != "markdown" {
		t.Errorf("mobiledoc = %s", doc)
	}
}

func TestNew_KindSelection(t *testing.T) {
	if p, err := New(Config{Kind: "none"}); err != nil || p != nil {
		t.Errorf("New(none) = %v, %v; want nil, nil", p, err)
	}
	if p, err := New(Config{}); err != nil || p != nil {
		t.Errorf("New(empty) = %v, %v; want nil, nil", p, err)
	}
	if _, err := New(Config{Kind: "carrier-pigeon"}); err == nil {
		t.Error("New() accepted unknown kind")
	}
	if _, err := New(Config{Kind: "relay"}); err == nil {
		t.Error("New(relay) without endpoint should fail")
	}
	if _, err := New(Config{Kind: "relay", Endpoint: "https://x", APIKey: "k"}); err != nil {
		t.Errorf("New(relay) error = %v", err)
	}

	p, err := New(Config{Kind: "ghost", GhostURL: "https://blog.example.com", GhostAdminKey: "id:abcd"})
	if err != nil {
		t.Fatalf("New(ghost) error = %v", err)
	}
	if p.Name() != "ghost" {
		t.Errorf("Name() = %q", p.Name())
	}
}
