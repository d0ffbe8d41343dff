package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifySignsGenericPayload(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
	}))
	defer srv.Close()

	n := NewNotifier([]Target{{URL: srv.URL, Secret: "shh"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.Notify(context.Background(), "signature.created", map[string]any{
		"author":       "alice",
		"content_hash": "abc",
	})

	select {
	case r := <-received:
		body := <-bodies
		sig := r.Header.Get("X-OriginMark-Signature")
		if sig == "" {
			t.Fatal("missing signature header")
		}
		if !VerifySignature("shh", body, sig) {
			t.Fatal("signature does not verify")
		}
		var payload struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload.Event != "signature.created" || payload.Data["author"] != "alice" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestNotifySlackFormat(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- body
	}))
	defer srv.Close()

	n := NewNotifier([]Target{{URL: srv.URL, Kind: "slack"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.Notify(context.Background(), "document.completed", map[string]any{"document_id": "doc-1"})

	select {
	case body := <-bodies:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload.Text == "" {
			t.Fatal("slack payload must carry text")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"event":"x"}`)
	sig := Sign("secret", body)
	if !VerifySignature("secret", body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature("secret", []byte(`{"event":"y"}`), sig) {
		t.Fatal("tampered body accepted")
	}
	if VerifySignature("other", body, sig) {
		t.Fatal("wrong secret accepted")
	}
}
