package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: power-gateway
  env: prod
logging:
  level: debug
redis:
  enabled: true
  latestTTL: 5m
devices:
  - name: mu-a
    address: 1
    serial:
      address: /dev/ttyS0
      baudRate: 9600
    commands: [getDeviceAddress, getEnvData]
    pollInterval: 15s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.App.Env != "prod" || cfg.Logging.Level != "debug" {
		t.Fatalf("文件值未生效: %+v", cfg.App)
	}
	if !cfg.Redis.Enabled || cfg.Redis.LatestTTL != 5*time.Minute {
		t.Fatalf("redis配置错位: %+v", cfg.Redis)
	}
	// 未写的键落到默认值
	if cfg.HTTP.Addr != ":8080" || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("默认值未生效")
	}

	if len(cfg.Devices) != 1 {
		t.Fatalf("期望1台设备，得到%d", len(cfg.Devices))
	}
	d := cfg.Devices[0]
	if d.Serial.Address != "/dev/ttyS0" || d.PollInterval != 15*time.Second {
		t.Fatalf("设备配置错位: %+v", d)
	}
	// 未填的设备字段走校验补的默认
	if d.RequestTimeout != 2*time.Second || d.Type != "mu4801" {
		t.Fatalf("设备默认值未生效: %+v", d)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"缺设备名", "devices:\n  - address: 1\n    serial:\n      address: /dev/ttyS0\n"},
		{"缺串口地址", "devices:\n  - name: a\n    address: 1\n"},
		{"设备名重复", `devices:
  - name: a
    serial: {address: /dev/ttyS0}
  - name: a
    serial: {address: /dev/ttyS1}
`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, c.body)); err == nil {
				t.Fatalf("期望校验失败")
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POWER_LOGGING_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "app:\n  name: power-gateway\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("环境变量未覆盖: %q", cfg.Logging.Level)
	}
}
