//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("facing-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fakeNominatim answers every search with one house-level match at 40,-75,
// except queries containing "nowhere", which return no places.
func fakeNominatim(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(strings.ToLower(r.URL.Query().Get("q")), "nowhere") {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{
			"place_id": 1,
			"lat": "40.0",
			"lon": "-75.0",
			"display_name": "1 Main Street, Springfield",
			"importance": 0.2,
			"type": "house",
			"address": {"house_number": "1", "road": "Main Street"}
		}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeOverpass returns a small square building at 40,-75 and an east-west road
// just north of it.
func fakeOverpass(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.PostForm.Get("data"), `way["building"]`) {
			_, _ = w.Write([]byte(`{"elements":[{"type":"way","id":1,"geometry":[
				{"lat":40.0001,"lon":-75.0001},{"lat":40.0001,"lon":-74.9999},
				{"lat":39.9999,"lon":-74.9999},{"lat":39.9999,"lon":-75.0001},
				{"lat":40.0001,"lon":-75.0001}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"elements":[{"type":"way","id":2,"geometry":[
			{"lat":40.0005,"lon":-75.001},{"lat":40.0005,"lon":-74.999}]}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}
