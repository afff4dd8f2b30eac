package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleText(t *testing.T) {
	var gotModel, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"is_song\": false}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewOpenAi("test-key", "gpt-4o-mini", server.URL+"/v1")
	answer, err := client.HandleText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("HandleText returned error: %v", err)
	}
	if answer != `{"is_song": false}` {
		t.Errorf("answer = %q", answer)
	}
	if gotModel != "gpt-4o-mini" || gotAuth != "Bearer test-key" {
		t.Errorf("request model %q auth %q", gotModel, gotAuth)
	}
}

func TestHandleTextNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	if _, err := NewOpenAi("k", "m", server.URL).HandleText(context.Background(), "hi"); err == nil {
		t.Error("expected an error when the backend returns no choices")
	}
}
