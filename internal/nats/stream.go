package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/model"
	"github.com/capitalize-ai/journey-analytics/internal/storage"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

const (
	// StreamName is the name of the analytics artifact stream.
	StreamName = "ANALYTICS"

	// SubjectPrefix is the prefix for all artifact subjects.
	SubjectPrefix = "analytics"
)

// MetricSubject returns the subject a metric artifact is published on.
func MetricSubject(runID, metric string) string {
	return fmt.Sprintf("%s.%s.metric.%s", SubjectPrefix, runID, metric)
}

// ReportSubject returns the subject of a run's compiled report.
func ReportSubject(runID string) string {
	return fmt.Sprintf("%s.%s.report", SubjectPrefix, runID)
}

// Location formats the address of a stored message.
func Location(subject string, seq uint64) string {
	return fmt.Sprintf("nats://%s/%s#%d", StreamName, subject, seq)
}

// StreamManager stores run artifacts in JetStream. It implements
// storage.ArtifactStore.
type StreamManager struct {
	client *Client
	logger *logger.Logger
}

var _ storage.ArtifactStore = (*StreamManager)(nil)

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, log *logger.Logger) *StreamManager {
	return &StreamManager{client: client, logger: log}
}

// Kind returns "nats".
func (m *StreamManager) Kind() string { return "nats" }

// EnsureStream ensures the artifact stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:              StreamName,
		Subjects:          []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:         jetstream.LimitsPolicy,
		MaxAge:            90 * 24 * time.Hour,
		MaxBytes:          10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgsPerSubject: 1,
		Storage:           jetstream.FileStorage,
		Replicas:          1,
		Compression:       jetstream.S2Compression,
		AllowDirect:       true,
		Description:       "Per-metric artifacts and compiled reports of analytics runs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	m.logger.Info("created JetStream stream", zap.String("stream", StreamName))
	return nil
}

// SaveMetric publishes one metric artifact.
func (m *StreamManager) SaveMetric(ctx context.Context, artifact *model.MetricArtifact) (string, error) {
	return m.publish(ctx, MetricSubject(artifact.RunID, artifact.Metric), artifact)
}

// SaveReport publishes the compiled report. The stored payload does not
// carry its own location; LoadReport fills it in from the message sequence.
func (m *StreamManager) SaveReport(ctx context.Context, report *model.CompiledReport) (string, error) {
	loc, err := m.publish(ctx, ReportSubject(report.RunID), report)
	if err != nil {
		return "", err
	}
	report.ReportLocation = loc
	return loc, nil
}

// LoadMetric returns the artifact stored for metric in runID.
func (m *StreamManager) LoadMetric(ctx context.Context, runID, metric string) (*model.MetricArtifact, error) {
	var a model.MetricArtifact
	if _, err := m.last(ctx, MetricSubject(runID, metric), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadReport returns the compiled report of runID.
func (m *StreamManager) LoadReport(ctx context.Context, runID string) (*model.CompiledReport, error) {
	var r model.CompiledReport
	loc, err := m.last(ctx, ReportSubject(runID), &r)
	if err != nil {
		return nil, err
	}
	r.ReportLocation = loc
	return &r, nil
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}

	return Location(subject, ack.Sequence), nil
}

func (m *StreamManager) last(ctx context.Context, subject string, v any) (string, error) {
	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return "", fmt.Errorf("failed to open stream: %w", err)
	}

	msg, err := stream.GetLastMsgForSubject(ctx, subject)
	if errors.Is(err, jetstream.ErrMsgNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get artifact: %w", err)
	}

	if err := json.Unmarshal(msg.Data, v); err != nil {
		return "", fmt.Errorf("failed to decode artifact: %w", err)
	}
	return Location(subject, msg.Sequence), nil
}
