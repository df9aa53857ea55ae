package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	var got Request
	var auth string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model", 5*time.Second)
	res, err := c.Complete(context.Background(), "rename all walls", "sk-123")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"choices":[{"message":{"content":"{}"}}]}`, res.Body)
	assert.Equal(t, "Bearer sk-123", auth)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: SystemPrompt()}, got.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "rename all walls"}, got.Messages[1])
	assert.Contains(t, got.Messages[0].Content, `{"tool": "<name>", "file_path": "<path>"}`)
}

func TestClient_Complete_HTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json error object", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`, "No auth credentials found"},
		{"json error string", http.StatusBadRequest, `{"error":"bad model"}`, "bad model"},
		{"html gateway page", http.StatusBadGateway, "<!DOCTYPE html><html><head><title>502</title><style>p{}</style></head><body><h1>502 Bad Gateway</h1></body></html>", "502 Bad Gateway"},
		{"html title only", http.StatusServiceUnavailable, "<html><head><title>503 Service Unavailable</title></head><body></body></html>", "503 Service Unavailable"},
		{"plain text",http.StatusInternalServerError, "  upstream\n exploded ", "upstream exploded"},
		{"empty", http.StatusServiceUnavailable, "", "empty response body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := New(srv.URL, "m", 5*time.Second).Complete(context.Background(), "p", "k")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, 1, calls, "no retry")

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.status, te.Status)
			assert.Equal(t, tt.want, te.Message)
		})
	}
}

func TestClient_Complete_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "m", time.Second).Complete(context.Background(), "p", "k")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Status)
	assert.NotEmpty(t, te.Message)
	assert.NotNil(t, errors.Unwrap(te))
}

func TestClient_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, "m", 50*time.Millisecond).Complete(context.Background(), "p", "k")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, strings.Contains(te.Error(), "completion transport"))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", maxDiagnostic+10)
	got := truncate(long)
	assert.Equal(t, maxDiagnostic, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", truncate("short"))
}
