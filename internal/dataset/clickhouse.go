package dataset

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseOptions are the connection settings for a ClickHouseSource.
type ClickHouseOptions struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouseSource reads application events from a ClickHouse table with
// columns user_uuid, event_name, event_time and category.
type ClickHouseSource struct {
	conn  driver.Conn
	table string
}

// NewClickHouseSource connects over the native protocol and pings the server.
func NewClickHouseSource(ctx context.Context, opts ClickHouseOptions) (*ClickHouseSource, error) {
	if opts.Host == "" || opts.Port == "" || opts.Database == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT and CLICKHOUSE_DB_NAME must be set")
	}
	if !identRe.MatchString(opts.Table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", opts.Table)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "journey-analytics", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseSource{conn: conn, table: opts.Table}, nil
}

// Describe names the table.
func (s *ClickHouseSource) Describe() string {
	return "clickhouse:" + s.table
}

// Load selects the application events. The category filter is pushed down
// to the server; the analytics layer applies it again regardless.
func (s *ClickHouseSource) Load(ctx context.Context) ([]model.Event, error) {
	rows, err := s.conn.Query(ctx, selectEventsQuery(s.table), model.ApplicationCategory)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.UserID, &ev.Name, &ev.Time, &ev.Category); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Time = ev.Time.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrEmptyDataset
	}
	return events, nil
}

// Close releases the connection.
func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}

func selectEventsQuery(table string) string {
	return fmt.Sprintf(`
		SELECT
			toString(user_uuid) AS user_uuid,
			event_name,
			event_time,
			category
		FROM %s
		WHERE category = ?
		ORDER BY user_uuid, event_time`, table)
}
