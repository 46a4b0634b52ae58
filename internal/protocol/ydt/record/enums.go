package record

import "fmt"

// 告警/开关/电压状态字节都是闭集：解码遇到集外值直接报
// UnknownEnumError，尽早暴露设备固件与协议表的不一致。

// AlarmStatus 告警状态字节
type AlarmStatus byte

const (
	AlarmNormal AlarmStatus = 0x00 // 正常
	AlarmActive AlarmStatus = 0x01 // 告警
)

func (s AlarmStatus) String() string {
	switch s {
	case AlarmNormal:
		return "normal"
	case AlarmActive:
		return "alarm"
	}
	return fmt.Sprintf("AlarmStatus(0x%02X)", byte(s))
}

// ParseAlarmStatus 闭集解析
func ParseAlarmStatus(b byte) (AlarmStatus, error) {
	switch AlarmStatus(b) {
	case AlarmNormal, AlarmActive:
		return AlarmStatus(b), nil
	}
	return 0, &UnknownEnumError{Field: "alarmStatus", Value: b}
}

// VoltageStatus 电压状态字节
type VoltageStatus byte

const (
	VoltageNormal VoltageStatus = 0x00 // 正常
	VoltageLow    VoltageStatus = 0x01 // 欠压
	VoltageHigh   VoltageStatus = 0x02 // 过压
)

func (s VoltageStatus) String() string {
	switch s {
	case VoltageNormal:
		return "normal"
	case VoltageLow:
		return "low"
	case VoltageHigh:
		return "high"
	}
	return fmt.Sprintf("VoltageStatus(0x%02X)", byte(s))
}

// ParseVoltageStatus 闭集解析
func ParseVoltageStatus(b byte) (VoltageStatus, error) {
	switch VoltageStatus(b) {
	case VoltageNormal, VoltageLow, VoltageHigh:
		return VoltageStatus(b), nil
	}
	return 0, &UnknownEnumError{Field: "voltageStatus", Value: b}
}

// SwitchStatus 开关机状态字节
type SwitchStatus byte

const (
	SwitchOn  SwitchStatus = 0x00 // 开机
	SwitchOff SwitchStatus = 0x01 // 关机
)

func (s SwitchStatus) String() string {
	switch s {
	case SwitchOn:
		return "on"
	case SwitchOff:
		return "off"
	}
	return fmt.Sprintf("SwitchStatus(0x%02X)", byte(s))
}

// ParseSwitchStatus 闭集解析
func ParseSwitchStatus(b byte) (SwitchStatus, error) {
	switch SwitchStatus(b) {
	case SwitchOn, SwitchOff:
		return SwitchStatus(b), nil
	}
	return 0, &UnknownEnumError{Field: "switchStatus", Value: b}
}

// ControlOp 整流模块遥控操作码
type ControlOp byte

const (
	ControlOpOn  ControlOp = 0x20 // 开机
	ControlOpOff ControlOp = 0x2F // 关机
)

func (s ControlOp) String() string {
	switch s {
	case ControlOpOn:
		return "on"
	case ControlOpOff:
		return "off"
	}
	return fmt.Sprintf("ControlOp(0x%02X)", byte(s))
}

// ParseControlOp 闭集解析
func ParseControlOp(b byte) (ControlOp, error) {
	switch ControlOp(b) {
	case ControlOpOn, ControlOpOff:
		return ControlOp(b), nil
	}
	return 0, &UnknownEnumError{Field: "controlOp", Value: b}
}

// enumByName 投影回填时用符号名反查枚举值
func enumByName[T fmt.Stringer](name string, field string, all []T) (T, error) {
	for _, v := range all {
		if v.String() == name {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: field %q has unknown enum name %q", ErrBadProjection, field, name)
}
