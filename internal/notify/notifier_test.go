package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsupport/companion/internal/config"
	"github.com/vetsupport/companion/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(&logging.Config{Level: "error"})
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received *CrisisAlert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert CrisisAlert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		received = &alert
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifyConfig{
		WebhookURL: server.URL,
		Channel:    "admin-alerts",
		TimeoutSec: 2,
	}, testLog())

	n.Notify(context.Background(), &CrisisAlert{
		UserID:       7,
		Confidence:   0.4,
		MatchedTerms: []string{"hopeless", "want to die"},
		Excerpt:      "it all feels hopeless",
	})

	require.NotNil(t, received)
	assert.Equal(t, int64(7), received.UserID)
	assert.Equal(t, "admin-alerts", received.Channel, "channel is stamped from config")
	assert.Len(t, received.MatchedTerms, 2)
}

func TestWebhookNotifierSwallowsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifyConfig{
		WebhookURL: server.URL,
		Channel:    "admin-alerts",
		TimeoutSec: 2,
	}, testLog())

	// Must not panic or block; delivery failure is logged only.
	n.Notify(context.Background(), &CrisisAlert{UserID: 1})
}

func TestFromConfig(t *testing.T) {
	log := testLog()

	n := FromConfig(config.NotifyConfig{Channel: "x", TimeoutSec: 1}, log)
	assert.IsType(t, &LogNotifier{}, n)

	n = FromConfig(config.NotifyConfig{WebhookURL: "http://localhost:1/hook", Channel: "x", TimeoutSec: 1}, log)
	assert.IsType(t, &WebhookNotifier{}, n)
}
