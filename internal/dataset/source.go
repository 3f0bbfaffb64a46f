// Package dataset loads raw event logs from the configured source.
package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/capitalize-ai/journey-analytics/internal/config"
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// ErrEmptyDataset is returned when a source yields no usable rows.
var ErrEmptyDataset = errors.New("dataset contains no events")

// Source yields the full event log for one run.
type Source interface {
	Load(ctx context.Context) ([]model.Event, error)
	// Describe names the source for logs and the dataset summary.
	Describe() string
}

// Closer is implemented by sources holding a connection.
type Closer interface {
	Close() error
}

// Open returns the source selected by EVENT_SOURCE. An empty path
// override keeps the configured dataset path.
func Open(ctx context.Context, cfg *config.Config, path string) (Source, error) {
	switch cfg.EventSource {
	case "", "csv":
		if path == "" {
			path = cfg.DatasetPath
		}
		return NewCSVSource(path), nil
	case "clickhouse":
		return NewClickHouseSource(ctx, ClickHouseOptions{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
			Table:    cfg.ClickHouseTable,
		})
	default:
		return nil, fmt.Errorf("unknown event source %q", cfg.EventSource)
	}
}
