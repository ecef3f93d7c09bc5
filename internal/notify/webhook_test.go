package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSend(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "", server.Client())
	err := webhook.Send(Summary{JobID: "job-1", Total: 10, Failed: 0, DurationMs: 42})
	require.NoError(t, err)

	assert.Equal(t, "job-1", received.JobID)
	assert.Equal(t, 10, received.Total)
	assert.Contains(t, received.Text, "job job-1")
	assert.Contains(t, received.Text, "10 tasks")
}

func TestWebhookCustomTemplate(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "done: {{ .JobID }} failed={{ .Failed }}", server.Client())
	require.NoError(t, webhook.Send(Summary{JobID: "abc", Total: 3, Failed: 2}))

	assert.Equal(t, "done: abc failed=2", received.Text)
}

func TestWebhookBadTemplateFallsBack(t *testing.T) {
	var received webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "{{ .Broken", server.Client())
	require.NoError(t, webhook.Send(Summary{JobID: "xyz", Total: 1}))
	assert.Contains(t, received.Text, "job xyz")
}

func TestWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "", server.Client())
	err := webhook.Send(Summary{JobID: "job-err"})
	assert.ErrorContains(t, err, "status 500")
}

func TestWebhookUnreachableEndpoint(t *testing.T) {
	webhook := NewWebhook("http://127.0.0.1:1/unreachable", "", nil)
	err := webhook.Send(Summary{JobID: "job-x"})
	assert.Error(t, err)
}
