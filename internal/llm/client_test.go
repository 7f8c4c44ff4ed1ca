package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/fault"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_API_KEY", "sk-test")
	c := New(config.ModelConfig{
		Enabled:        true,
		TimeoutSeconds: 5,
		Model:          "test-model",
		APIKeyEnv:      "TEST_API_KEY",
		BaseURL:        srv.URL,
	})
	if c == nil {
		t.Fatal("New returned nil with key set")
	}
	return c
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestGenerate_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody chatRequest

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(chatReply(`{"title": "hello"}`)))
	})

	raw, err := c.Generate(context.Background(), Request{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var out struct{ Title string }
	if err := json.Unmarshal(raw, &out); err != nil || out.Title != "hello" {
		t.Errorf("got %s, %v", raw, err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("got auth %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("got path %q", gotPath)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("got messages %+v", gotBody.Messages)
	}
	if gotBody.ResponseFormat == nil || gotBody.ResponseFormat.Type != "json_object" {
		t.Errorf("got response_format %+v", gotBody.ResponseFormat)
	}
	if gotBody.Temperature != 0.3 {
		t.Errorf("got temperature %v", gotBody.Temperature)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Generate(context.Background(), Request{User: "usr"})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestGenerate_NonJSONContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("Sure! Here is your story:")))
	})

	_, err := c.Generate(context.Background(), Request{User: "usr"})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestGenerate_APIErrorBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	})

	_, err := c.Generate(context.Background(), Request{User: "usr"})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := c.Generate(context.Background(), Request{User: "usr"})
	if !errors.Is(err, fault.ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestNew_DisabledOrKeyless(t *testing.T) {
	if c := New(config.ModelConfig{Enabled: false, APIKeyEnv: "TEST_API_KEY"}); c != nil {
		t.Error("disabled config should yield nil client")
	}

	t.Setenv("TEST_API_KEY", "")
	if c := New(config.ModelConfig{Enabled: true, APIKeyEnv: "TEST_API_KEY"}); c != nil {
		t.Error("missing key should yield nil client")
	}
}
