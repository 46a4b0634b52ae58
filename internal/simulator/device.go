package simulator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/power-gateway/internal/engine"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
	"github.com/taoyao-code/power-gateway/internal/transport"
)

// State 仿真设备的全部可变状态。显式持有、由处理器读写，
// 不放任何包级全局。
type State struct {
	Address      byte
	ClockOffset  time.Duration // 设备时钟与主机时钟的偏差
	Manufacturer record.ManufacturerInfo
	Ac           record.AcAnalogData
	AcAlarm      record.AcAlarmStatus
	AcConfig     record.AcConfigParams
	Dc           record.DcAnalogData
	DcAlarm      record.DcAlarmStatus
	Rect         record.RectAnalogData
	RectAlarm    record.RectAlarmStatus
	RectSwitch   record.RectSwitchStatus
	Env          record.EnvData
}

// NewState 一台3模块整流器监控单元的出厂状态
func NewState(address byte) *State {
	return &State{
		Address: address,
		Manufacturer: record.ManufacturerInfo{
			DeviceName: "MU4801", VersionMajor: 2, VersionMinor: 1, Manufacturer: "SIM",
		},
		Ac: record.AcAnalogData{
			VoltageA: 220, VoltageB: 221, VoltageC: 219,
			CurrentA: 10, CurrentB: 9.8, CurrentC: 10.2, Frequency: 50,
		},
		Dc: record.DcAnalogData{
			BusVoltage: 53.5, LoadCurrent: 40, BatteryCurrent: -2,
			BranchCurrents: []float32{12, 14, 14},
		},
		DcAlarm: record.DcAlarmStatus{
			FuseAlarms: []record.AlarmStatus{record.AlarmNormal, record.AlarmNormal},
		},
		Rect: record.RectAnalogData{
			OutputVoltage: 53.5,
			Modules: []record.RectModule{
				{Voltage: 53.4, Current: 13.2, Temperature: 36.5},
				{Voltage: 53.5, Current: 13.5, Temperature: 37.0},
				{Voltage: 53.6, Current: 13.3, Temperature: 36.8},
			},
		},
		RectAlarm: record.RectAlarmStatus{
			Modules: make([]record.RectModuleAlarm, 3),
		},
		RectSwitch: record.RectSwitchStatus{
			Modules: []record.SwitchStatus{record.SwitchOn, record.SwitchOn, record.SwitchOn},
		},
		Env: record.EnvData{Temperature: 24.5, Humidity: 55},
	}
}

// Handler 单条命令的处理器：读写state，返回应答记录与RTN码
type Handler func(st *State, req record.Record) (record.Record, byte)

// Device 设备角色仿真器：在一条传输上循环
// ReceiveCommand -> handler -> SendResponse。
type Device struct {
	eng      *engine.Engine
	state    *State
	handlers map[string]Handler
	log      *zap.Logger
}

// NewDevice 构造仿真设备并安装缺省处理器集
func NewDevice(st *State, reg *registry.Registry, tr engine.Transport, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Device{
		eng:      engine.New(st.Address, reg, tr, engine.WithTimeout(200*time.Millisecond), engine.WithLogger(log)),
		state:    st,
		handlers: make(map[string]Handler),
		log:      log,
	}
	d.installDefaults()
	return d
}

// Handle 注册或覆盖一条命令的处理器
func (d *Device) Handle(key string, h Handler) {
	d.handlers[key] = h
}

func (d *Device) installDefaults() {
	d.Handle("getDateTime", func(st *State, _ record.Record) (record.Record, byte) {
		var dt record.DateTime
		dt.FromTime(time.Now().Add(st.ClockOffset))
		return &dt, ydt.RTNOk
	})
	d.Handle("setDateTime", func(st *State, req record.Record) (record.Record, byte) {
		dt := req.(*record.DateTime)
		st.ClockOffset = time.Until(dt.Time())
		return nil, ydt.RTNOk
	})
	d.Handle("getProtocolVersion", func(*State, record.Record) (record.Record, byte) {
		return nil, ydt.RTNOk
	})
	d.Handle("getDeviceAddress", func(st *State, _ record.Record) (record.Record, byte) {
		return &record.DeviceAddress{Address: st.Address}, ydt.RTNOk
	})
	d.Handle("getManufacturerInfo", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.Manufacturer, ydt.RTNOk
	})
	d.Handle("getAcAnalogData", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.Ac, ydt.RTNOk
	})
	d.Handle("getAcAlarmStatus", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.AcAlarm, ydt.RTNOk
	})
	d.Handle("getAcConfigParams", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.AcConfig, ydt.RTNOk
	})
	d.Handle("setAcConfigParams", func(st *State, req record.Record) (record.Record, byte) {
		st.AcConfig = *req.(*record.AcConfigParams)
		return nil, ydt.RTNOk
	})
	d.Handle("getDcAnalogData", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.Dc, ydt.RTNOk
	})
	d.Handle("getDcAlarmStatus", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.DcAlarm, ydt.RTNOk
	})
	d.Handle("getRectAnalogData", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.Rect, ydt.RTNOk
	})
	d.Handle("getRectAlarmStatus", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.RectAlarm, ydt.RTNOk
	})
	d.Handle("getRectSwitchStatus", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.RectSwitch, ydt.RTNOk
	})
	d.Handle("controlRectModule", func(st *State, req record.Record) (record.Record, byte) {
		ctl := req.(*record.RectModuleControl)
		idx := int(ctl.ModuleID)
		if idx >= len(st.RectSwitch.Modules) {
			return nil, ydt.RTNInvalidData
		}
		if ctl.Operation == record.ControlOpOn {
			st.RectSwitch.Modules[idx] = record.SwitchOn
		} else {
			st.RectSwitch.Modules[idx] = record.SwitchOff
		}
		return nil, ydt.RTNOk
	})
	d.Handle("getEnvData", func(st *State, _ record.Record) (record.Record, byte) {
		return &st.Env, ydt.RTNOk
	})
}

// Serve 循环处理请求直到ctx取消。单次处理失败只记日志，
// 错误应答已由引擎回发，循环不中断。
func (d *Device) Serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := d.serveOne(ctx); err != nil {
			if errors.Is(err, transport.ErrReceiveTimeout) || errors.Is(err, ErrPipeClosed) {
				continue
			}
			d.log.Debug("simulated device rejected request", zap.Error(err))
		}
	}
}

func (d *Device) serveOne(ctx context.Context) error {
	cmd, req, err := d.eng.ReceiveCommand(ctx)
	if err != nil {
		return err
	}
	h, ok := d.handlers[cmd.Key]
	if !ok {
		return d.eng.SendResponse(cmd, ydt.RTNInvalidCID, nil)
	}
	resp, rtn := h(d.state, req)
	return d.eng.SendResponse(cmd, rtn, resp)
}
