package results

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJetStreamPublisher_Subject(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		reason models.FinishReason
		want   string
	}{
		{name: "all finished", prefix: "race.results", reason: models.FinishReasonAllFinished, want: "race.results.all_finished"},
		{name: "timeout", prefix: "race.results", reason: models.FinishReasonTimeout, want: "race.results.timeout"},
		{name: "custom prefix", prefix: "staging.races", reason: models.FinishReasonTimeout, want: "staging.races.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultJetStreamConfig()
			cfg.SubjectPrefix = tt.prefix
			p := &JetStreamPublisher{config: cfg}

			result := testResult("alpha")
			result.Reason = tt.reason
			assert.Equal(t, tt.want, p.Subject(result))
		})
	}
}

func TestJetStreamPublisher_Message(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	result := testResult("alpha")

	msg, err := p.message(result)
	require.NoError(t, err)

	assert.Equal(t, "race.results.all_finished", msg.Subject)
	assert.Equal(t, result.ID.String(), msg.Header.Get("Race-ID"))
	assert.Equal(t, "alpha", msg.Header.Get("Room"))
	assert.Equal(t, result.ID.String(), msgID(result))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, result.ID.String(), body["id"])
	assert.EqualValues(t, 2, body["textId"])
	assert.Contains(t, body, "startedAt")
	assert.Contains(t, body, "finishedAt")

	var decoded models.RaceResult
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "alice", decoded.Winner())
}

// Runs against a live JetStream server when TEST_NATS_URL is set.
func TestJetStreamPublisher_SaveDeduplicates(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := DefaultJetStreamConfig()
	cfg.URL = url
	cfg.StreamName = "RACE_RESULTS_TEST_" + uuid.NewString()[:8]
	cfg.SubjectPrefix = "test." + uuid.NewString()[:8]
	cfg.Storage = jetstream.MemoryStorage

	p, err := NewJetStreamPublisher(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = p.js.DeleteStream(context.Background(), cfg.StreamName)
		_ = p.Close()
	})

	result := testResult("alpha")
	require.NoError(t, p.Save(ctx, result))
	require.NoError(t, p.Save(ctx, result))
	other := testResult("beta")
	other.Reason = models.FinishReasonTimeout
	require.NoError(t, p.Save(ctx, other))

	stream, err := p.js.Stream(ctx, cfg.StreamName)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(ctx, p.Subject(result))
	require.NoError(t, err)
	assert.Equal(t, "alpha", msg.Header.Get("Room"))
}
