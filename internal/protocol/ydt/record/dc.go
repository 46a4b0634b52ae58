package record

import (
	"encoding/binary"
	"fmt"
)

// 直流屏记录，小端布局。

// DcAnalogData 直流模拟量（getDcAnalogData应答）。
// 定长头 + 计数前缀的分路电流组:
// 母排电压(f32) + 总负载电流(f32) + 电池电流(f32) + 分路数(u8) + 分路电流(f32)*N
// 载荷必须恰好为 13 + N*4 字节，不足报TruncatedError。
type DcAnalogData struct {
	BusVoltage     float32   // V
	LoadCurrent    float32   // A
	BatteryCurrent float32   // A
	BranchCurrents []float32 // A，分路电流
}

const dcAnalogHeaderLen = 4 + 4 + 4 + 1

func (d *DcAnalogData) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, dcAnalogHeaderLen+4*len(d.BranchCurrents))
	w.f32(d.BusVoltage)
	w.f32(d.LoadCurrent)
	w.f32(d.BatteryCurrent)
	w.u8(uint8(len(d.BranchCurrents)))
	for _, c := range d.BranchCurrents {
		w.f32(c)
	}
	return w.buf, nil
}

func (d *DcAnalogData) UnmarshalRecord(data []byte) error {
	r := newReader("DcAnalogData", data, binary.LittleEndian)
	d.BusVoltage = r.f32()
	d.LoadCurrent = r.f32()
	d.BatteryCurrent = r.f32()
	n := int(r.u8())
	if r.err != nil {
		return r.err
	}
	d.BranchCurrents = make([]float32, 0, n)
	for i := 0; i < n; i++ {
		d.BranchCurrents = append(d.BranchCurrents, r.f32())
	}
	return r.err
}

func (d *DcAnalogData) Projection() Projection {
	branches := make([]float32, len(d.BranchCurrents))
	copy(branches, d.BranchCurrents)
	return Projection{
		{Key: "busVoltage", Value: d.BusVoltage},
		{Key: "loadCurrent", Value: d.LoadCurrent},
		{Key: "batteryCurrent", Value: d.BatteryCurrent},
		{Key: "branchCount", Value: uint8(len(d.BranchCurrents))},
		{Key: "branchCurrents", Value: branches},
	}
}

func (d *DcAnalogData) ApplyProjection(p map[string]any) error {
	for _, f := range []struct {
		key string
		dst *float32
	}{
		{"busVoltage", &d.BusVoltage},
		{"loadCurrent", &d.LoadCurrent},
		{"batteryCurrent", &d.BatteryCurrent},
	} {
		v, err := pickFloat(p, f.key)
		if err != nil {
			return err
		}
		*f.dst = float32(v)
	}
	d.BranchCurrents = d.BranchCurrents[:0]
	if raw, ok := p["branchCurrents"]; ok {
		switch items := raw.(type) {
		case []float32:
			d.BranchCurrents = append(d.BranchCurrents, items...)
		case []any:
			for _, it := range items {
				f, ok := it.(float64)
				if !ok {
					return fmt.Errorf("%w: branchCurrents element %T", ErrBadProjection, it)
				}
				d.BranchCurrents = append(d.BranchCurrents, float32(f))
			}
		default:
			return fmt.Errorf("%w: branchCurrents has type %T", ErrBadProjection, raw)
		}
	}
	return nil
}

// DcAlarmStatus 直流告警状态（getDcAlarmStatus应答）。
// 母排电压状态(1) + 防雷器告警(1) + 熔丝数(u8) + 熔丝告警(1)*N
type DcAlarmStatus struct {
	VoltageStatus VoltageStatus
	ArresterAlarm AlarmStatus
	FuseAlarms    []AlarmStatus
}

func (d *DcAlarmStatus) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 3+len(d.FuseAlarms))
	w.u8(byte(d.VoltageStatus))
	w.u8(byte(d.ArresterAlarm))
	w.u8(uint8(len(d.FuseAlarms)))
	for _, a := range d.FuseAlarms {
		w.u8(byte(a))
	}
	return w.buf, nil
}

func (d *DcAlarmStatus) UnmarshalRecord(data []byte) error {
	r := newReader("DcAlarmStatus", data, binary.LittleEndian)
	d.VoltageStatus = readEnum(r, ParseVoltageStatus)
	d.ArresterAlarm = readEnum(r, ParseAlarmStatus)
	n := int(r.u8())
	if r.err != nil {
		return r.err
	}
	d.FuseAlarms = make([]AlarmStatus, 0, n)
	for i := 0; i < n; i++ {
		d.FuseAlarms = append(d.FuseAlarms, readEnum(r, ParseAlarmStatus))
	}
	return r.err
}

func (d *DcAlarmStatus) Projection() Projection {
	fuses := make([]string, len(d.FuseAlarms))
	for i, a := range d.FuseAlarms {
		fuses[i] = a.String()
	}
	return Projection{
		{Key: "voltageStatus", Value: d.VoltageStatus.String()},
		{Key: "arresterAlarm", Value: d.ArresterAlarm.String()},
		{Key: "fuseCount", Value: uint8(len(d.FuseAlarms))},
		{Key: "fuseAlarms", Value: fuses},
	}
}

func (d *DcAlarmStatus) ApplyProjection(p map[string]any) error {
	name, err := pickString(p, "voltageStatus")
	if err != nil {
		return err
	}
	vs, err := enumByName(name, "voltageStatus", []VoltageStatus{VoltageNormal, VoltageLow, VoltageHigh})
	if err != nil {
		return err
	}
	d.VoltageStatus = vs

	name, err = pickString(p, "arresterAlarm")
	if err != nil {
		return err
	}
	aa, err := enumByName(name, "arresterAlarm", []AlarmStatus{AlarmNormal, AlarmActive})
	if err != nil {
		return err
	}
	d.ArresterAlarm = aa

	d.FuseAlarms = d.FuseAlarms[:0]
	if raw, ok := p["fuseAlarms"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return ErrBadProjection
		}
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return ErrBadProjection
			}
			fa, err := enumByName(s, "fuseAlarms", []AlarmStatus{AlarmNormal, AlarmActive})
			if err != nil {
				return err
			}
			d.FuseAlarms = append(d.FuseAlarms, fa)
		}
	}
	return nil
}
