package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fedorten/resursGraf/internal/logging"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestBot", logging.Discard())
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Log only
	s.Send(context.Background(), "hello from test")
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestBot", logging.Discard())
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send(context.Background(), "refresh failed: gas")

	if received["username"] != "TestBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if !strings.Contains(received["text"], "refresh failed: gas") {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "resursGraf", logging.Discard())
	s.Send(context.Background(), "yahoo mirrors unreachable")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "resursGraf" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestBot", logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Should not panic, just log the error
	s.Send(ctx, "this will fail gracefully")
}

func TestDefaultName(t *testing.T) {
	s := NewSender("", "", logging.Discard())
	if s.name != "resursGraf" {
		t.Fatalf("expected default name, got %s", s.name)
	}
}
