package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/italolelis/media_downloader/internal/notifier"
	"github.com/italolelis/media_downloader/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordNotifier_Notify(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &notifier.DiscordNotifier{WebhookURL: srv.URL, Client: srv.Client()}

	require.NoError(t, n.Notify(context.Background(), "hello"))
	assert.Equal(t, "hello", got["content"])
}

func TestDiscordNotifier_Truncates(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	n := &notifier.DiscordNotifier{WebhookURL: srv.URL}

	require.NoError(t, n.Notify(context.Background(), strings.Repeat("é", 1500)))
	assert.LessOrEqual(t, len(got["content"]), 2000)
	assert.True(t, strings.HasSuffix(got["content"], "..."))
	assert.NotContains(t, got["content"], "�")
}

func TestDiscordNotifier_Errors(t *testing.T) {
	assert.Error(t, (&notifier.DiscordNotifier{}).Notify(context.Background(), "x"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := (&notifier.DiscordNotifier{WebhookURL: srv.URL}).Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSummary(t *testing.T) {
	msg := notifier.Summary([]storage.DownloadRecord{
		{InputURI: "https://example.com/a", Status: storage.StatusCompleted},
		{InputURI: "https://example.com/b", Status: storage.StatusSkipped},
		{InputURI: "https://example.com/c", Status: storage.StatusFailed, Error: "timed out"},
	})

	assert.True(t, strings.HasPrefix(msg, "Batch finished: 1 completed, 1 skipped, 1 failed"))
	assert.Contains(t, msg, "✅ https://example.com/a")
	assert.Contains(t, msg, "https://example.com/c: timed out")
}
