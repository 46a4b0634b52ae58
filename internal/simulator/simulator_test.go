package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/power-gateway/internal/engine"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
)

func startPair(t *testing.T) (*engine.Engine, *State) {
	t.Helper()
	reg, err := registry.Build(registry.DefaultTable())
	require.NoError(t, err)

	hostEnd, devEnd := NewPipe()
	t.Cleanup(func() {
		hostEnd.Close()
		devEnd.Close()
	})

	st := NewState(0x01)
	dev := NewDevice(st, reg, devEnd, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go dev.Serve(ctx)

	caller := engine.New(0x01, reg, hostEnd, engine.WithTimeout(time.Second))
	return caller, st
}

func TestSimulatorScenarios(t *testing.T) {
	caller, st := startPair(t)
	ctx := context.Background()

	t.Run("查询设备地址", func(t *testing.T) {
		p, err := caller.SendCommand(ctx, "getDeviceAddress", nil)
		require.NoError(t, err)
		addr, ok := p.Get("address")
		require.True(t, ok)
		require.EqualValues(t, 1, addr)
	})

	t.Run("查询厂家信息", func(t *testing.T) {
		p, err := caller.SendCommand(ctx, "getManufacturerInfo", nil)
		require.NoError(t, err)
		name, _ := p.Get("deviceName")
		require.Equal(t, "MU4801", name)
	})

	t.Run("多模块整流器模拟量", func(t *testing.T) {
		p, err := caller.SendCommand(ctx, "getRectAnalogData", nil)
		require.NoError(t, err)
		count, ok := p.Get("moduleCount")
		require.True(t, ok)
		require.EqualValues(t, 3, count)
	})

	t.Run("整流模块遥控关机", func(t *testing.T) {
		_, err := caller.SendCommand(ctx, "controlRectModule", map[string]any{
			"moduleId":  1,
			"operation": "off",
		})
		require.NoError(t, err)

		p, err := caller.SendCommand(ctx, "getRectSwitchStatus", nil)
		require.NoError(t, err)
		mods, ok := p.Get("modules")
		require.True(t, ok)
		require.Equal(t, []string{"on", "off", "on"}, mods)
	})

	t.Run("遥控越界模块号返回无效数据", func(t *testing.T) {
		_, err := caller.SendCommand(ctx, "controlRectModule", map[string]any{
			"moduleId":  9,
			"operation": "off",
		})
		var devErr *ydt.DeviceError
		require.ErrorAs(t, err, &devErr)
		require.Equal(t, byte(ydt.RTNInvalidData), devErr.Code)
	})

	t.Run("校时后读回", func(t *testing.T) {
		want := time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local)
		_, err := caller.SendCommand(ctx, "setDateTime", map[string]any{
			"year": 2026, "month": 8, "day": 29,
			"hour": 10, "minute": 30, "second": 0,
		})
		require.NoError(t, err)

		p, err := caller.SendCommand(ctx, "getDateTime", nil)
		require.NoError(t, err)
		year, _ := p.Get("year")
		require.EqualValues(t, want.Year(), year)
	})

	t.Run("环境量查询", func(t *testing.T) {
		st.Env.Temperature = 31.5
		p, err := caller.SendCommand(ctx, "getEnvData", nil)
		require.NoError(t, err)
		temp, _ := p.Get("temperature")
		require.InDelta(t, 31.5, temp, 0.001)
	})
}

func TestSimulatorUnknownCommand(t *testing.T) {
	reg, err := registry.Build(registry.DefaultTable())
	require.NoError(t, err)

	// 主机侧多注册一条设备不认识的命令
	extended := append(registry.DefaultTable(), registry.Entry{
		CID1: 0x4F, CID2: 0x41, Key: "getBatteryData", Name: "获取电池组模拟量",
	})
	hostReg, err := registry.Build(extended)
	require.NoError(t, err)

	hostEnd, devEnd := NewPipe()
	defer hostEnd.Close()
	defer devEnd.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDevice(NewState(0x01), reg, devEnd, nil).Serve(ctx)

	caller := engine.New(0x01, hostReg, hostEnd, engine.WithTimeout(time.Second))
	_, err = caller.SendCommand(ctx, "getBatteryData", nil)
	var devErr *ydt.DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, byte(ydt.RTNInvalidCID), devErr.Code)
}
