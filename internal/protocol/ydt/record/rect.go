package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 整流器记录。多模块设备：定长头携带模块数，其后严格跟随
// N个等长的模块子块。线上格式为准：头 + N*子块长，无填充字节。

// RectModule 单个整流模块的模拟量子记录，10字节:
// 输出电压(f32) + 输出电流(f32) + 温度(i16, 0.1℃)
//
// Temperature 以0.1℃整数存储，往返编解码会截断到一位小数，
// 这是协议规定的有损边界。
type RectModule struct {
	Voltage     float32 // V
	Current     float32 // A
	Temperature float64 // ℃，线上为0.1℃整数
}

const rectModuleLen = 4 + 4 + 2

func (m *RectModule) marshalTo(w *writer) {
	w.f32(m.Voltage)
	w.f32(m.Current)
	w.i16(int16(math.Round(m.Temperature * 10)))
}

func (m *RectModule) unmarshalFrom(r *reader) {
	m.Voltage = r.f32()
	m.Current = r.f32()
	m.Temperature = float64(r.i16()) / 10
}

func (m *RectModule) projection() Projection {
	return Projection{
		{Key: "voltage", Value: m.Voltage},
		{Key: "current", Value: m.Current},
		{Key: "temperature", Value: m.Temperature},
	}
}

// RectAnalogData 整流器模拟量（getRectAnalogData应答）。
// 输出母排电压(f32) + 模块数(u8) + 模块子块*N。
// 载荷必须恰好为 5 + N*10 字节。
type RectAnalogData struct {
	OutputVoltage float32 // V
	Modules       []RectModule
}

const rectAnalogHeaderLen = 4 + 1

func (d *RectAnalogData) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, rectAnalogHeaderLen+rectModuleLen*len(d.Modules))
	w.f32(d.OutputVoltage)
	w.u8(uint8(len(d.Modules)))
	for i := range d.Modules {
		d.Modules[i].marshalTo(w)
	}
	return w.buf, nil
}

func (d *RectAnalogData) UnmarshalRecord(data []byte) error {
	r := newReader("RectAnalogData", data, binary.LittleEndian)
	d.OutputVoltage = r.f32()
	n := int(r.u8())
	if r.err != nil {
		return r.err
	}
	if want := rectAnalogHeaderLen + rectModuleLen*n; len(data) < want {
		return &TruncatedError{Type: "RectAnalogData", Need: want, Got: len(data)}
	}
	d.Modules = make([]RectModule, n)
	for i := range d.Modules {
		d.Modules[i].unmarshalFrom(r)
	}
	return r.err
}

func (d *RectAnalogData) Projection() Projection {
	mods := make([]Projection, len(d.Modules))
	for i := range d.Modules {
		mods[i] = d.Modules[i].projection()
	}
	return Projection{
		{Key: "outputVoltage", Value: d.OutputVoltage},
		{Key: "moduleCount", Value: uint8(len(d.Modules))},
		{Key: "modules", Value: mods},
	}
}

func (d *RectAnalogData) ApplyProjection(p map[string]any) error {
	v, err := pickFloat(p, "outputVoltage")
	if err != nil {
		return err
	}
	d.OutputVoltage = float32(v)

	d.Modules = d.Modules[:0]
	raw, ok := p["modules"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("%w: modules has type %T", ErrBadProjection, raw)
	}
	for _, it := range items {
		mp, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: modules element %T", ErrBadProjection, it)
		}
		var m RectModule
		voltage, err := pickFloat(mp, "voltage")
		if err != nil {
			return err
		}
		current, err := pickFloat(mp, "current")
		if err != nil {
			return err
		}
		temp, err := pickFloat(mp, "temperature")
		if err != nil {
			return err
		}
		m.Voltage = float32(voltage)
		m.Current = float32(current)
		m.Temperature = temp
		d.Modules = append(d.Modules, m)
	}
	return nil
}

// RectAlarmStatus 整流器告警状态（getRectAlarmStatus应答）。
// 模块数(u8) + 每模块3字节: 模块故障 + 风扇告警 + 过温告警
type RectModuleAlarm struct {
	ModuleFault AlarmStatus
	FanAlarm    AlarmStatus
	TempAlarm   AlarmStatus
}

type RectAlarmStatus struct {
	Modules []RectModuleAlarm
}

const rectAlarmModuleLen = 3

func (d *RectAlarmStatus) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 1+rectAlarmModuleLen*len(d.Modules))
	w.u8(uint8(len(d.Modules)))
	for _, m := range d.Modules {
		w.u8(byte(m.ModuleFault))
		w.u8(byte(m.FanAlarm))
		w.u8(byte(m.TempAlarm))
	}
	return w.buf, nil
}

func (d *RectAlarmStatus) UnmarshalRecord(data []byte) error {
	r := newReader("RectAlarmStatus", data, binary.LittleEndian)
	n := int(r.u8())
	if r.err != nil {
		return r.err
	}
	if want := 1 + rectAlarmModuleLen*n; len(data) < want {
		return &TruncatedError{Type: "RectAlarmStatus", Need: want, Got: len(data)}
	}
	d.Modules = make([]RectModuleAlarm, n)
	for i := range d.Modules {
		d.Modules[i].ModuleFault = readEnum(r, ParseAlarmStatus)
		d.Modules[i].FanAlarm = readEnum(r, ParseAlarmStatus)
		d.Modules[i].TempAlarm = readEnum(r, ParseAlarmStatus)
	}
	return r.err
}

func (d *RectAlarmStatus) Projection() Projection {
	mods := make([]Projection, len(d.Modules))
	for i, m := range d.Modules {
		mods[i] = Projection{
			{Key: "moduleFault", Value: m.ModuleFault.String()},
			{Key: "fanAlarm", Value: m.FanAlarm.String()},
			{Key: "tempAlarm", Value: m.TempAlarm.String()},
		}
	}
	return Projection{
		{Key: "moduleCount", Value: uint8(len(d.Modules))},
		{Key: "modules", Value: mods},
	}
}

func (d *RectAlarmStatus) ApplyProjection(p map[string]any) error {
	d.Modules = d.Modules[:0]
	raw, ok := p["modules"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("%w: modules has type %T", ErrBadProjection, raw)
	}
	alarms := []AlarmStatus{AlarmNormal, AlarmActive}
	for _, it := range items {
		mp, ok := it.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: modules element %T", ErrBadProjection, it)
		}
		var m RectModuleAlarm
		for _, f := range []struct {
			key string
			dst *AlarmStatus
		}{
			{"moduleFault", &m.ModuleFault},
			{"fanAlarm", &m.FanAlarm},
			{"tempAlarm", &m.TempAlarm},
		} {
			name, err := pickString(mp, f.key)
			if err != nil {
				return err
			}
			v, err := enumByName(name, f.key, alarms)
			if err != nil {
				return err
			}
			*f.dst = v
		}
		d.Modules = append(d.Modules, m)
	}
	return nil
}

// RectSwitchStatus 整流模块开关机状态（getRectSwitchStatus应答）。
// 模块数(u8) + 开关机状态(1)*N
type RectSwitchStatus struct {
	Modules []SwitchStatus
}

func (d *RectSwitchStatus) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 1+len(d.Modules))
	w.u8(uint8(len(d.Modules)))
	for _, s := range d.Modules {
		w.u8(byte(s))
	}
	return w.buf, nil
}

func (d *RectSwitchStatus) UnmarshalRecord(data []byte) error {
	r := newReader("RectSwitchStatus", data, binary.LittleEndian)
	n := int(r.u8())
	if r.err != nil {
		return r.err
	}
	if want := 1 + n; len(data) < want {
		return &TruncatedError{Type: "RectSwitchStatus", Need: want, Got: len(data)}
	}
	d.Modules = make([]SwitchStatus, n)
	for i := range d.Modules {
		d.Modules[i] = readEnum(r, ParseSwitchStatus)
	}
	return r.err
}

func (d *RectSwitchStatus) Projection() Projection {
	mods := make([]string, len(d.Modules))
	for i, s := range d.Modules {
		mods[i] = s.String()
	}
	return Projection{
		{Key: "moduleCount", Value: uint8(len(d.Modules))},
		{Key: "modules", Value: mods},
	}
}

func (d *RectSwitchStatus) ApplyProjection(p map[string]any) error {
	d.Modules = d.Modules[:0]
	raw, ok := p["modules"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("%w: modules has type %T", ErrBadProjection, raw)
	}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return fmt.Errorf("%w: modules element %T", ErrBadProjection, it)
		}
		v, err := enumByName(s, "modules", []SwitchStatus{SwitchOn, SwitchOff})
		if err != nil {
			return err
		}
		d.Modules = append(d.Modules, v)
	}
	return nil
}

// RectModuleControl 整流模块遥控命令（controlRectModule请求），
// 2字节: 模块号(u8) + 操作码(0x20开机/0x2F关机)
type RectModuleControl struct {
	ModuleID  uint8
	Operation ControlOp
}

func (c *RectModuleControl) MarshalRecord() ([]byte, error) {
	return []byte{c.ModuleID, byte(c.Operation)}, nil
}

func (c *RectModuleControl) UnmarshalRecord(data []byte) error {
	r := newReader("RectModuleControl", data, binary.LittleEndian)
	c.ModuleID = r.u8()
	c.Operation = readEnum(r, ParseControlOp)
	return r.err
}

func (c *RectModuleControl) Projection() Projection {
	return Projection{
		{Key: "moduleId", Value: c.ModuleID},
		{Key: "operation", Value: c.Operation.String()},
	}
}

func (c *RectModuleControl) ApplyProjection(p map[string]any) error {
	id, err := pickUint(p, "moduleId", 0xFF)
	if err != nil {
		return err
	}
	name, err := pickString(p, "operation")
	if err != nil {
		return err
	}
	op, err := enumByName(name, "operation", []ControlOp{ControlOpOn, ControlOpOff})
	if err != nil {
		return err
	}
	c.ModuleID = uint8(id)
	c.Operation = op
	return nil
}
