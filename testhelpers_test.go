//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/kafka"
	routingEvents "github.com/Kilat-Pet-Delivery/service-routing/internal/events"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/osrm"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/summarizer"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// routingStack holds wired-up routing service components.
type routingStack struct {
	Planning        *application.PlanningService
	Summary         *application.SummaryService
	Consumer        *routingEvents.RouteSetEventConsumer
	SummaryCalls    *atomic.Int32
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_routing",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_routing sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(&repository.SessionModel{}))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, "routing.events")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRoutingStack wires the routing service against fake upstreams.
func setupRoutingStack(t *testing.T, db *gorm.DB, brokers []string) *routingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	routingServer := httptest.NewServer(fakeOSRM())
	t.Cleanup(routingServer.Close)

	calls := &atomic.Int32{}
	summaryServer := httptest.NewServer(fakeSummarizer(calls, "Route 2 avoids the ring road.\nroute_index = 1"))
	t.Cleanup(summaryServer.Close)

	routingClient := osrm.NewClient(osrm.Config{BaseURL: routingServer.URL, Timeout: 5 * time.Second}, nil, logger)
	summaryClient := summarizer.NewClient(summarizer.Config{BaseURL: summaryServer.URL, APIKey: "test", Model: "test"}, nil, logger)

	sessionRepo := repository.NewGormSessionRepository(db)
	producer := kafka.NewProducer(brokers, logger)

	summarySvc := application.NewSummaryService(sessionRepo, summaryClient, producer,
		application.SummaryConfig{SessionTTL: time.Hour}, nil, logger)
	planningSvc := application.NewPlanningService(
		sessionRepo,
		application.NewGeocodeSnapper(routingClient, time.Second, logger),
		application.NewRouteFetcher(routingClient, 5*time.Second, nil, logger),
		producer,
		application.PlanningConfig{SessionTTL: time.Hour},
		logger,
	)

	groupID := fmt.Sprintf("test-routing-%s", uuid.New().String()[:8])
	consumer := routingEvents.NewRouteSetEventConsumer(brokers, groupID, summarySvc, logger)

	return &routingStack{
		Planning:        planningSvc,
		Summary:         summarySvc,
		Consumer:        consumer,
		SummaryCalls:    calls,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// fakeOSRM serves nearest and route requests. Every route passes through the
// requested waypoints, and alternatives add a detour north of the midpoint,
// so each distinct request yields a distinct route.
func fakeOSRM() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/nearest/v1/driving/", func(w http.ResponseWriter, r *http.Request) {
		coord := strings.TrimPrefix(r.URL.Path, "/nearest/v1/driving/")
		p := parseLngLat(coord)
		writeJSON(w, map[string]interface{}{
			"code": "Ok",
			"waypoints": []map[string]interface{}{
				{"location": p, "hint": "hint-" + coord, "name": "Test Street"},
			},
		})
	})
	mux.HandleFunc("/route/v1/driving/", func(w http.ResponseWriter, r *http.Request) {
		var points [][2]float64
		for _, c := range strings.Split(strings.TrimPrefix(r.URL.Path, "/route/v1/driving/"), ";") {
			points = append(points, parseLngLat(c))
		}
		routes := []map[string]interface{}{fakeRoute(points, 600)}
		if r.URL.Query().Get("alternatives") == "true" {
			first, last := points[0], points[len(points)-1]
			detour := [2]float64{(first[0] + last[0]) / 2, (first[1]+last[1])/2 + 0.01}
			routes = append(routes, fakeRoute([][2]float64{first, detour, last}, 650))
		}
		writeJSON(w, map[string]interface{}{"code": "Ok", "routes": routes})
	})
	return mux
}

func fakeRoute(points [][2]float64, duration float64) map[string]interface{} {
	last := points[len(points)-1]
	return map[string]interface{}{
		"geometry": map[string]interface{}{"type": "LineString", "coordinates": points},
		"distance": float64(len(points)) * 1000,
		"duration": duration + float64(len(points)),
		"legs": []map[string]interface{}{{
			"distance": float64(len(points)) * 1000,
			"duration": duration,
			"steps": []map[string]interface{}{
				{"name": "Start Road", "distance": 500.0, "duration": 60.0,
					"maneuver": map[string]interface{}{"type": "depart", "location": points[0]}},
				{"name": "Main Street", "distance": 400.0, "duration": 50.0,
					"maneuver": map[string]interface{}{"type": "turn", "modifier": "left", "location": points[0]}},
				{"name": "", "distance": 0.0, "duration": 0.0,
					"maneuver": map[string]interface{}{"type": "arrive", "location": last}},
			},
		}},
	}
}

// fakeSummarizer answers every messages request with text and counts calls.
func fakeSummarizer(calls *atomic.Int32, text string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": text}},
		})
	})
}

func parseLngLat(s string) [2]float64 {
	parts := strings.SplitN(s, ",", 2)
	lng, _ := strconv.ParseFloat(parts[0], 64)
	var lat float64
	if len(parts) == 2 {
		lat, _ = strconv.ParseFloat(parts[1], 64)
	}
	return [2]float64{lng, lat}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType, key string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEventWithKey(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForSummary polls the sessions table until a summary is stored.
func waitForSummary(t *testing.T, db *gorm.DB, sessionID uuid.UUID, timeout time.Duration) repository.SessionModel {
	t.Helper()
	var result repository.SessionModel
	require.Eventually(t, func() bool {
		var model repository.SessionModel
		if err := db.Where("id = ?", sessionID).First(&model).Error; err != nil {
			return false
		}
		if len(model.Summary) > 0 && string(model.Summary) != "null" {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "session %s never received a summary", sessionID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
