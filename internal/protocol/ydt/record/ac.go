package record

import "encoding/binary"

// 交流屏记录，设备侧布局为小端。

// AcAnalogData 交流模拟量（getAcAnalogData应答），28字节:
// 三相电压(f32*3) + 三相电流(f32*3) + 频率(f32)
type AcAnalogData struct {
	VoltageA  float32 // V
	VoltageB  float32 // V
	VoltageC  float32 // V
	CurrentA  float32 // A
	CurrentB  float32 // A
	CurrentC  float32 // A
	Frequency float32 // Hz
}

func (a *AcAnalogData) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 28)
	w.f32(a.VoltageA)
	w.f32(a.VoltageB)
	w.f32(a.VoltageC)
	w.f32(a.CurrentA)
	w.f32(a.CurrentB)
	w.f32(a.CurrentC)
	w.f32(a.Frequency)
	return w.buf, nil
}

func (a *AcAnalogData) UnmarshalRecord(data []byte) error {
	r := newReader("AcAnalogData", data, binary.LittleEndian)
	a.VoltageA = r.f32()
	a.VoltageB = r.f32()
	a.VoltageC = r.f32()
	a.CurrentA = r.f32()
	a.CurrentB = r.f32()
	a.CurrentC = r.f32()
	a.Frequency = r.f32()
	return r.err
}

func (a *AcAnalogData) Projection() Projection {
	return Projection{
		{Key: "voltageA", Value: a.VoltageA},
		{Key: "voltageB", Value: a.VoltageB},
		{Key: "voltageC", Value: a.VoltageC},
		{Key: "currentA", Value: a.CurrentA},
		{Key: "currentB", Value: a.CurrentB},
		{Key: "currentC", Value: a.CurrentC},
		{Key: "frequency", Value: a.Frequency},
	}
}

func (a *AcAnalogData) ApplyProjection(p map[string]any) error {
	fields := []struct {
		key string
		dst *float32
	}{
		{"voltageA", &a.VoltageA},
		{"voltageB", &a.VoltageB},
		{"voltageC", &a.VoltageC},
		{"currentA", &a.CurrentA},
		{"currentB", &a.CurrentB},
		{"currentC", &a.CurrentC},
		{"frequency", &a.Frequency},
	}
	for _, f := range fields {
		v, err := pickFloat(p, f.key)
		if err != nil {
			return err
		}
		*f.dst = float32(v)
	}
	return nil
}

// AcAlarmStatus 交流告警状态（getAcAlarmStatus应答），5字节枚举:
// 三相电压状态 + 频率告警 + 防雷器告警
type AcAlarmStatus struct {
	VoltageAStatus VoltageStatus
	VoltageBStatus VoltageStatus
	VoltageCStatus VoltageStatus
	FrequencyAlarm AlarmStatus
	ArresterAlarm  AlarmStatus
}

func (a *AcAlarmStatus) MarshalRecord() ([]byte, error) {
	return []byte{
		byte(a.VoltageAStatus),
		byte(a.VoltageBStatus),
		byte(a.VoltageCStatus),
		byte(a.FrequencyAlarm),
		byte(a.ArresterAlarm),
	}, nil
}

func (a *AcAlarmStatus) UnmarshalRecord(data []byte) error {
	r := newReader("AcAlarmStatus", data, binary.LittleEndian)
	a.VoltageAStatus = readEnum(r, ParseVoltageStatus)
	a.VoltageBStatus = readEnum(r, ParseVoltageStatus)
	a.VoltageCStatus = readEnum(r, ParseVoltageStatus)
	a.FrequencyAlarm = readEnum(r, ParseAlarmStatus)
	a.ArresterAlarm = readEnum(r, ParseAlarmStatus)
	return r.err
}

func (a *AcAlarmStatus) Projection() Projection {
	return Projection{
		{Key: "voltageAStatus", Value: a.VoltageAStatus.String()},
		{Key: "voltageBStatus", Value: a.VoltageBStatus.String()},
		{Key: "voltageCStatus", Value: a.VoltageCStatus.String()},
		{Key: "frequencyAlarm", Value: a.FrequencyAlarm.String()},
		{Key: "arresterAlarm", Value: a.ArresterAlarm.String()},
	}
}

func (a *AcAlarmStatus) ApplyProjection(p map[string]any) error {
	voltages := []VoltageStatus{VoltageNormal, VoltageLow, VoltageHigh}
	alarms := []AlarmStatus{AlarmNormal, AlarmActive}

	for _, f := range []struct {
		key string
		dst *VoltageStatus
	}{
		{"voltageAStatus", &a.VoltageAStatus},
		{"voltageBStatus", &a.VoltageBStatus},
		{"voltageCStatus", &a.VoltageCStatus},
	} {
		name, err := pickString(p, f.key)
		if err != nil {
			return err
		}
		v, err := enumByName(name, f.key, voltages)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	for _, f := range []struct {
		key string
		dst *AlarmStatus
	}{
		{"frequencyAlarm", &a.FrequencyAlarm},
		{"arresterAlarm", &a.ArresterAlarm},
	} {
		name, err := pickString(p, f.key)
		if err != nil {
			return err
		}
		v, err := enumByName(name, f.key, alarms)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

// AcConfigParams 交流配置参数（getAcConfigParams/setAcConfigParams），
// 16字节: 过压/欠压阈值 + 频率上/下限，均为f32小端
type AcConfigParams struct {
	VoltageUpper   float32 // V
	VoltageLower   float32 // V
	FrequencyUpper float32 // Hz
	FrequencyLower float32 // Hz
}

func (c *AcConfigParams) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 16)
	w.f32(c.VoltageUpper)
	w.f32(c.VoltageLower)
	w.f32(c.FrequencyUpper)
	w.f32(c.FrequencyLower)
	return w.buf, nil
}

func (c *AcConfigParams) UnmarshalRecord(data []byte) error {
	r := newReader("AcConfigParams", data, binary.LittleEndian)
	c.VoltageUpper = r.f32()
	c.VoltageLower = r.f32()
	c.FrequencyUpper = r.f32()
	c.FrequencyLower = r.f32()
	return r.err
}

func (c *AcConfigParams) Projection() Projection {
	return Projection{
		{Key: "voltageUpper", Value: c.VoltageUpper},
		{Key: "voltageLower", Value: c.VoltageLower},
		{Key: "frequencyUpper", Value: c.FrequencyUpper},
		{Key: "frequencyLower", Value: c.FrequencyLower},
	}
}

func (c *AcConfigParams) ApplyProjection(p map[string]any) error {
	for _, f := range []struct {
		key string
		dst *float32
	}{
		{"voltageUpper", &c.VoltageUpper},
		{"voltageLower", &c.VoltageLower},
		{"frequencyUpper", &c.FrequencyUpper},
		{"frequencyLower", &c.FrequencyLower},
	} {
		v, err := pickFloat(p, f.key)
		if err != nil {
			return err
		}
		*f.dst = float32(v)
	}
	return nil
}
