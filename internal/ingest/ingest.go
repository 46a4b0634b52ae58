package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
)

// Sample 一次采集命令的完整结果
type Sample struct {
	ID         uuid.UUID         `json:"id"`
	Device     string            `json:"device"`
	DeviceType string            `json:"deviceType"`
	Command    string            `json:"command"`
	Values     record.Projection `json:"values"`
	At         time.Time         `json:"at"`
}

// NewSample 填充ID与时间戳
func NewSample(device, deviceType, command string, values record.Projection) Sample {
	return Sample{
		ID:         uuid.New(),
		Device:     device,
		DeviceType: deviceType,
		Command:    command,
		Values:     values,
		At:         time.Now(),
	}
}

// Sink 样本消费端。实现方自行保证幂等，Write失败不会重试。
type Sink interface {
	Name() string
	Write(ctx context.Context, s Sample) error
}

// FanOut 把样本广播到多个Sink。单个Sink失败只记日志，
// 不影响其余Sink，也不中断采集循环。
type FanOut struct {
	sinks []Sink
	log   *zap.Logger
}

func NewFanOut(log *zap.Logger, sinks ...Sink) *FanOut {
	if log == nil {
		log = zap.NewNop()
	}
	return &FanOut{sinks: sinks, log: log}
}

func (f *FanOut) Write(ctx context.Context, s Sample) {
	for _, sink := range f.sinks {
		if err := sink.Write(ctx, s); err != nil {
			f.log.Warn("sample sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("device", s.Device),
				zap.String("command", s.Command),
				zap.Error(err))
		}
	}
}

// LogSink 把样本打进结构化日志，开发与排障用
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(_ context.Context, sm Sample) error {
	s.log.Info("sample",
		zap.String("device", sm.Device),
		zap.String("command", sm.Command),
		zap.Any("values", sm.Values.Map()),
		zap.Time("at", sm.At))
	return nil
}
