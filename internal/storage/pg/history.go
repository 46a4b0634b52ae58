package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/power-gateway/internal/ingest"
)

// HistorySink 把采样写入 telemetry_history 历史表
type HistorySink struct {
	pool *pgxpool.Pool
}

func NewHistorySink(pool *pgxpool.Pool) *HistorySink {
	return &HistorySink{pool: pool}
}

func (s *HistorySink) Name() string { return "pg-history" }

// Write 实现 ingest.Sink。主键为样本ID，重复投递按幂等处理。
func (s *HistorySink) Write(ctx context.Context, sm ingest.Sample) error {
	values, err := json.Marshal(sm.Values)
	if err != nil {
		return fmt.Errorf("marshal sample values: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO telemetry_history
        (id, device, device_type, command, data, sampled_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`,
		sm.ID, sm.Device, sm.DeviceType, sm.Command, values, sm.At)
	if err != nil {
		return fmt.Errorf("insert telemetry history: %w", err)
	}
	return nil
}

// History 按时间倒序取一台设备某命令的历史采样
func (s *HistorySink) History(ctx context.Context, device, command string, since time.Time, limit int) ([]ingest.Sample, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT id, device, device_type, command, data, sampled_at
        FROM telemetry_history
        WHERE device=$1 AND command=$2 AND sampled_at>=$3
        ORDER BY sampled_at DESC LIMIT $4`,
		device, command, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query telemetry history: %w", err)
	}
	defer rows.Close()

	var out []ingest.Sample
	for rows.Next() {
		var sm ingest.Sample
		var values []byte
		if err := rows.Scan(&sm.ID, &sm.Device, &sm.DeviceType, &sm.Command, &values, &sm.At); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(values, &sm.Values); err != nil {
			return nil, fmt.Errorf("decode stored values: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
