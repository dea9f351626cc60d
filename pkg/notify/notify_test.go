package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockNotifier struct {
	ch    Channel
	sent  []Message
	fail  bool
	calls int
}

func (m *mockNotifier) Send(ctx context.Context, msg Message) error {
	m.calls++
	if m.fail {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockNotifier) Channel() Channel { return m.ch }

func TestDispatcher_Dispatch(t *testing.T) {
	d := NewDispatcher()
	tg := &mockNotifier{ch: ChannelTelegram}
	d.Register(tg)

	err := d.Dispatch(context.Background(), []Channel{ChannelTelegram}, Message{Title: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tg.sent) != 1 || tg.sent[0].Title != "hi" {
		t.Fatalf("unexpected sent messages: %+v", tg.sent)
	}
}

func TestDispatcher_UnregisteredChannelSkipped(t *testing.T) {
	d := NewDispatcher()
	err := d.Dispatch(context.Background(), []Channel{ChannelWebhook}, Message{Title: "hi"})
	if err != nil {
		t.Fatalf("unregistered channel should be skipped, got: %v", err)
	}
}

func TestDispatcher_PartialFailure(t *testing.T) {
	d := NewDispatcher()
	d.Register(&mockNotifier{ch: ChannelTelegram, fail: true})
	ok := &mockNotifier{ch: ChannelWebhook}
	d.Register(ok)

	err := d.SendAll(context.Background(), Message{Title: "report"})
	if err == nil {
		t.Fatal("expected error from failing channel")
	}
	if len(ok.sent) != 1 {
		t.Fatal("healthy channel should still receive the message")
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got Message
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Token": "secret"},
	})
	err := n.Send(context.Background(), Message{Title: "t", Body: "b", Format: "markdown"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "t" || got.Body != "b" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if gotHeader != "secret" {
		t.Fatalf("expected custom header, got '%s'", gotHeader)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	if err := n.Send(context.Background(), Message{Title: "t"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/botTOKEN/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(TelegramConfig{BotToken: "TOKEN", ChannelID: "@chan"})
	n.baseURL = srv.URL
	err := n.Send(context.Background(), Message{Title: "Daily pick", Body: "body"})
	if err != nil {
		t.Fatal(err)
	}
	if payload["chat_id"] != "@chan" {
		t.Fatalf("unexpected chat_id: %v", payload["chat_id"])
	}
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "Daily pick") {
		t.Fatalf("title missing from text: %s", text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("a-b.c (d)")
	want := `a\-b\.c \(d\)`
	if got != want {
		t.Fatalf("escapeMarkdown = %q, want %q", got, want)
	}
}

func TestFormatRunReport_Failure(t *testing.T) {
	msg := FormatRunReport(RunReportData{
		Date:   "2024-03-01",
		Status: "failed",
		Stage:  "generating",
		Err:    "model unavailable",
	})
	if !strings.Contains(msg.Title, "failed") {
		t.Fatalf("expected failure title, got %q", msg.Title)
	}
	if !strings.Contains(msg.Body, "generating") {
		t.Fatalf("expected stage in body, got %q", msg.Body)
	}
}

func TestFormatRunReport_NoEligible(t *testing.T) {
	msg := FormatRunReport(RunReportData{Date: "2024-03-01", Status: "no_eligible"})
	if !strings.Contains(msg.Title, "nothing to publish") {
		t.Fatalf("unexpected title: %q", msg.Title)
	}
}

func TestFormatRunReport_Published(t *testing.T) {
	msg := FormatRunReport(RunReportData{
		Date:      "2024-03-01",
		Status:    "published",
		ItemName:  "pdf-to-markdown",
		Category:  "Document Tools",
		SourceURL: "https://github.com/x/y",
	})
	if !strings.Contains(msg.Title, "pdf-to-markdown") {
		t.Fatalf("unexpected title: %q", msg.Title)
	}
	if msg.URL != "https://github.com/x/y" {
		t.Fatalf("unexpected URL: %q", msg.URL)
	}
}
