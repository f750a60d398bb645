//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/match-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/match-forecast-service/internal/domain"
	"github.com/couchcryptid/match-forecast-service/internal/observability"
	"github.com/couchcryptid/match-forecast-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-enriched-events"

// publishedMessage holds a deserialized message read from the topic.
type publishedMessage struct {
	Event   domain.EnrichedEvent
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.EnrichedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal message")

	return publishedMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

type staticSource struct {
	events []domain.SportsEvent
}

func (s staticSource) NextEvents(context.Context) ([]domain.SportsEvent, error) {
	return s.events, nil
}

// TestPipelinePublishesToKafka wires RunOnce with a real Kafka publisher and
// checks keys, headers, and payloads on the topic.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	source := staticSource{events: []domain.SportsEvent{
		{ID: "100", HomeTeam: "Athletic Bilbao", AwayTeam: "Celta Vigo", LeagueID: "4335"},
		{ID: "101", HomeTeam: "Sevilla", AwayTeam: "Real Betis", LeagueID: "4335"},
	}}
	metrics := observability.NewMetricsForTesting()
	enricher := pipeline.NewEnricher(nil, nil, metrics, discardLogger())
	p := pipeline.New(source, enricher, nil, publisher, discardLogger(), metrics)

	_, err := p.RunOnce(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byKey := map[string]publishedMessage{}
	for range 2 {
		m := readPublished(ctx, t, consumer)
		byKey[m.Key] = m
	}

	require.Contains(t, byKey, "100")
	require.Contains(t, byKey, "101")

	m := byKey["100"]
	assert.Equal(t, "Athletic Bilbao", m.Event.HomeTeam)
	assert.Equal(t, domain.SourceNone, m.Event.WeatherSource)
	assert.Equal(t, "4335", m.Headers["league_id"])
	_, err = time.Parse(time.RFC3339, m.Headers["enriched_at"])
	assert.NoError(t, err, "enriched_at should be valid RFC3339")
}
