package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MU4801监控单元命令表。CID1: 0x40系统/整流器, 0x41交流屏,
// 0x42直流屏。遥测/遥信/遥控命令对照YD/T 1363.3附表。
var defaultTable = []Entry{
	{CID1: 0x40, CID2: 0x4D, Key: "getDateTime", Name: "获取系统时间", Response: "DateTime"},
	{CID1: 0x40, CID2: 0x4E, Key: "setDateTime", Name: "设置系统时间", Request: "DateTime"},
	{CID1: 0x40, CID2: 0x4F, Key: "getProtocolVersion", Name: "获取协议版本号"},
	{CID1: 0x40, CID2: 0x50, Key: "getDeviceAddress", Name: "获取设备地址", Response: "DeviceAddress"},
	{CID1: 0x40, CID2: 0x51, Key: "getManufacturerInfo", Name: "获取厂家信息", Response: "ManufacturerInfo"},

	{CID1: 0x40, CID2: 0x41, Key: "getRectAnalogData", Name: "获取整流器模拟量", Response: "RectAnalogData"},
	{CID1: 0x40, CID2: 0x43, Key: "getRectSwitchStatus", Name: "获取整流模块开关机状态", Response: "RectSwitchStatus"},
	{CID1: 0x40, CID2: 0x44, Key: "getRectAlarmStatus", Name: "获取整流器告警状态", Response: "RectAlarmStatus"},
	{CID1: 0x40, CID2: 0x45, Key: "controlRectModule", Name: "整流模块遥控", Request: "RectModuleControl"},

	{CID1: 0x41, CID2: 0x41, Key: "getAcAnalogData", Name: "获取交流模拟量", Response: "AcAnalogData"},
	{CID1: 0x41, CID2: 0x44, Key: "getAcAlarmStatus", Name: "获取交流告警状态", Response: "AcAlarmStatus"},
	{CID1: 0x41, CID2: 0x46, Key: "getAcConfigParams", Name: "获取交流配置参数", Response: "AcConfigParams"},
	{CID1: 0x41, CID2: 0x48, Key: "setAcConfigParams", Name: "设置交流配置参数", Request: "AcConfigParams"},

	{CID1: 0x42, CID2: 0x41, Key: "getDcAnalogData", Name: "获取直流模拟量", Response: "DcAnalogData"},
	{CID1: 0x42, CID2: 0x44, Key: "getDcAlarmStatus", Name: "获取直流告警状态", Response: "DcAlarmStatus"},

	{CID1: 0x43, CID2: 0x41, Key: "getEnvData", Name: "获取机房环境量", Response: "EnvData"},
}

// DefaultTable 返回内置MU4801命令表的副本
func DefaultTable() []Entry {
	out := make([]Entry, len(defaultTable))
	copy(out, defaultTable)
	return out
}

// tableFile 命令表YAML文件结构
type tableFile struct {
	Commands []Entry `yaml:"commands"`
}

// LoadTable 从YAML文件加载命令表条目。文件只声明条目，
// 合法性由Build统一校验。
func LoadTable(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read table %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("registry: parse table %s: %w", path, err)
	}
	if len(f.Commands) == 0 {
		return nil, fmt.Errorf("%w: table %s has no commands", ErrConfig, path)
	}
	return f.Commands, nil
}
