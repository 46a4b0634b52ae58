package record

import (
	"fmt"
	"sort"
)

// directory 记录类型目录：类型名 -> 构造函数。
// 命令表在注册期按名解析记录类型，未知类型名在启动时失败，
// 而不是在第一次使用时。
var directory = map[string]func() Record{
	"DateTime":          func() Record { return &DateTime{} },
	"DeviceAddress":     func() Record { return &DeviceAddress{} },
	"ManufacturerInfo":  func() Record { return &ManufacturerInfo{} },
	"AcAnalogData":      func() Record { return &AcAnalogData{} },
	"AcAlarmStatus":     func() Record { return &AcAlarmStatus{} },
	"AcConfigParams":    func() Record { return &AcConfigParams{} },
	"DcAnalogData":      func() Record { return &DcAnalogData{} },
	"DcAlarmStatus":     func() Record { return &DcAlarmStatus{} },
	"RectAnalogData":    func() Record { return &RectAnalogData{} },
	"RectAlarmStatus":   func() Record { return &RectAlarmStatus{} },
	"RectSwitchStatus":  func() Record { return &RectSwitchStatus{} },
	"RectModuleControl": func() Record { return &RectModuleControl{} },
	"EnvData":           func() Record { return &EnvData{} },
}

// New 按类型名构造一个零值记录
func New(name string) (Record, error) {
	ctor, ok := directory[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return ctor(), nil
}

// Resolve 按类型名返回构造函数，注册期用
func Resolve(name string) (func() Record, error) {
	ctor, ok := directory[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return ctor, nil
}

// Types 返回全部已知类型名（字典序）
func Types() []string {
	names := make([]string, 0, len(directory))
	for n := range directory {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
