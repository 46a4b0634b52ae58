package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FramesSent     *prometheus.CounterVec // labels: device
	FramesReceived *prometheus.CounterVec // labels: device
	FrameErrors    *prometheus.CounterVec // labels: device, kind=timeout|checksum|length|format|device_rtn|transport
	CommandTotal   *prometheus.CounterVec // labels: device, command, result=ok|error
	PollCycles     *prometheus.CounterVec // labels: device, result=ok|partial|error
	PollDuration   *prometheus.HistogramVec
	DeviceOnline   *prometheus.GaugeVec // labels: device，1在线0失联
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serial_frames_sent_total",
			Help: "Total frames written to the serial link.",
		}, []string{"device"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serial_frames_received_total",
			Help: "Total frames read from the serial link.",
		}, []string{"device"}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serial_frame_errors_total",
			Help: "Frame exchange failures by kind.",
		}, []string{"device", "kind"}),
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protocol_command_total",
			Help: "Protocol commands issued by result.",
		}, []string{"device", "command", "result"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Completed poll cycles by result.",
		}, []string{"device", "result"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_seconds",
			Help:    "Wall time of a full poll cycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"device"}),
		DeviceOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "device_online",
			Help: "Whether the device answered its last poll cycle.",
		}, []string{"device"}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.FrameErrors, m.CommandTotal, m.PollCycles, m.PollDuration, m.DeviceOnline)
	return m
}
