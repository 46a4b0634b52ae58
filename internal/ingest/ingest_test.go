package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
)

type countSink struct {
	name  string
	got   []Sample
	fail  bool
}

func (c *countSink) Name() string { return c.name }

func (c *countSink) Write(_ context.Context, s Sample) error {
	if c.fail {
		return errors.New("sink down")
	}
	c.got = append(c.got, s)
	return nil
}

func TestFanOutIsolation(t *testing.T) {
	good := &countSink{name: "good"}
	bad := &countSink{name: "bad", fail: true}
	tail := &countSink{name: "tail"}
	f := NewFanOut(nil, good, bad, tail)

	s := NewSample("dev-1", "mu4801", "getEnvData",
		record.Projection{{Key: "temperature", Value: 24.5}})
	f.Write(context.Background(), s)

	// 坏Sink不能挡住排在后面的Sink
	if len(good.got) != 1 || len(tail.got) != 1 {
		t.Fatalf("好Sink收到 %d/%d 条，期望各1条", len(good.got), len(tail.got))
	}
	if good.got[0].ID != s.ID {
		t.Fatalf("样本ID不一致")
	}
}

func TestNewSampleFields(t *testing.T) {
	s := NewSample("dev-2", "mu4801", "getDeviceAddress", nil)
	if s.ID == uuid.Nil {
		t.Fatalf("样本应分配非零ID")
	}
	if s.At.IsZero() {
		t.Fatalf("样本应带时间戳")
	}
	if s.Device != "dev-2" || s.Command != "getDeviceAddress" {
		t.Fatalf("样本字段错位: %+v", s)
	}
}
