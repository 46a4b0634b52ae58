package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/power-gateway/internal/config"
	"github.com/taoyao-code/power-gateway/internal/engine"
	"github.com/taoyao-code/power-gateway/internal/ingest"
	"github.com/taoyao-code/power-gateway/internal/metrics"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
	"github.com/taoyao-code/power-gateway/internal/transport"
)

// Caller 轮询器需要的引擎能力
type Caller interface {
	SendCommand(ctx context.Context, key string, data any) (record.Projection, error)
}

// Poller 单台设备的采集循环：按固定周期跑命令清单，
// 单条命令失败只记账，不中断本周期剩余命令。
type Poller struct {
	dev     config.DeviceConfig
	eng     Caller
	fan     *ingest.FanOut
	limiter *rate.Limiter
	met     *metrics.AppMetrics
	log     *zap.Logger

	mu     sync.Mutex
	online bool
}

func New(dev config.DeviceConfig, eng Caller, fan *ingest.FanOut, met *metrics.AppMetrics, log *zap.Logger) *Poller {
	var limiter *rate.Limiter
	if dev.RequestRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(dev.RequestRate), 1)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		dev:     dev,
		eng:     eng,
		fan:     fan,
		limiter: limiter,
		met:     met,
		log:     log.With(zap.String("device", dev.Name)),
	}
}

// Online 上个周期是否有任何命令成功
func (p *Poller) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Run 阻塞运行直到 ctx 取消。启动后立即跑第一个周期，
// 之后按 PollInterval 推进。
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.dev.PollInterval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	var ok, failed int

	for _, key := range p.dev.Commands {
		if ctx.Err() != nil {
			return
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
		}
		if err := p.poll(ctx, key); err != nil {
			failed++
			p.log.Warn("poll command failed",
				zap.String("command", key), zap.Error(err))
		} else {
			ok++
		}
	}

	result := "ok"
	switch {
	case ok == 0 && failed > 0:
		result = "error"
	case failed > 0:
		result = "partial"
	}
	p.mu.Lock()
	p.online = ok > 0
	p.mu.Unlock()

	if p.met != nil {
		p.met.PollCycles.WithLabelValues(p.dev.Name, result).Inc()
		p.met.PollDuration.WithLabelValues(p.dev.Name).Observe(time.Since(start).Seconds())
		if ok > 0 {
			p.met.DeviceOnline.WithLabelValues(p.dev.Name).Set(1)
		} else {
			p.met.DeviceOnline.WithLabelValues(p.dev.Name).Set(0)
		}
	}
}

func (p *Poller) poll(ctx context.Context, key string) error {
	cctx, cancel := context.WithTimeout(ctx, p.dev.RequestTimeout)
	defer cancel()

	values, err := p.eng.SendCommand(cctx, key, nil)
	if p.met != nil {
		p.met.FramesSent.WithLabelValues(p.dev.Name).Inc()
	}
	if err != nil {
		if p.met != nil {
			p.met.CommandTotal.WithLabelValues(p.dev.Name, key, "error").Inc()
			p.met.FrameErrors.WithLabelValues(p.dev.Name, errorKind(err)).Inc()
		}
		return err
	}
	if p.met != nil {
		p.met.FramesReceived.WithLabelValues(p.dev.Name).Inc()
		p.met.CommandTotal.WithLabelValues(p.dev.Name, key, "ok").Inc()
	}

	if p.fan != nil {
		p.fan.Write(ctx, ingest.NewSample(p.dev.Name, p.dev.Type, key, values))
	}
	return nil
}

// errorKind 把一次失败归入指标维度
func errorKind(err error) string {
	var devErr *ydt.DeviceError
	switch {
	case errors.As(err, &devErr):
		return "device_rtn"
	case errors.Is(err, engine.ErrNoResponse), errors.Is(err, transport.ErrReceiveTimeout):
		return "timeout"
	case errors.Is(err, ydt.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, ydt.ErrLengthChecksum):
		return "length"
	case errors.Is(err, ydt.ErrMalformedMarker), errors.Is(err, ydt.ErrVersionMismatch):
		return "format"
	default:
		return "transport"
	}
}
