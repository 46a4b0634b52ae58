package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/power-gateway/internal/config"
	"github.com/taoyao-code/power-gateway/internal/ingest"
)

// LatestStore 设备最新采样的读取端
type LatestStore interface {
	Latest(ctx context.Context, device string) (map[string]ingest.Sample, error)
}

// HistoryStore 历史采样的读取端
type HistoryStore interface {
	History(ctx context.Context, device, command string, since time.Time, limit int) ([]ingest.Sample, error)
}

// Server HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server，注册健康检查、指标与查询路由。
// latest/history 任一为nil时对应路由不注册。
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler,
	readyFn func() bool, latest LatestStore, history HistoryStore) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if readyFn == nil || readyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1")
	if latest != nil {
		api.GET("/devices/:name/latest", func(c *gin.Context) {
			samples, err := latest.Latest(c.Request.Context(), c.Param("name"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if len(samples) == 0 {
				c.JSON(http.StatusNotFound, gin.H{"error": "no samples for device"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"device": c.Param("name"), "samples": samples})
		})
	}
	if history != nil {
		api.GET("/devices/:name/history/:command", func(c *gin.Context) {
			since := time.Now().Add(-24 * time.Hour)
			if raw := c.Query("since"); raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
					return
				}
				since = t
			}
			limit := 100
			if raw := c.Query("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
					return
				}
				limit = n
			}
			samples, err := history.History(c.Request.Context(),
				c.Param("name"), c.Param("command"), since, limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"device":  c.Param("name"),
				"command": c.Param("command"),
				"samples": samples,
			})
		})
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler 暴露底层路由，测试用
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
