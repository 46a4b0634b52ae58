package record

import "encoding/binary"

// DeviceAddress 设备地址记录（getDeviceAddress应答），1字节
type DeviceAddress struct {
	Address uint8
}

func (d *DeviceAddress) MarshalRecord() ([]byte, error) {
	return []byte{d.Address}, nil
}

func (d *DeviceAddress) UnmarshalRecord(data []byte) error {
	r := newReader("DeviceAddress", data, binary.LittleEndian)
	d.Address = r.u8()
	return r.err
}

func (d *DeviceAddress) Projection() Projection {
	return Projection{{Key: "address", Value: d.Address}}
}

func (d *DeviceAddress) ApplyProjection(p map[string]any) error {
	v, err := pickUint(p, "address", 0xFF)
	if err != nil {
		return err
	}
	d.Address = uint8(v)
	return nil
}

// ManufacturerInfo 厂家信息记录（getManufacturerInfo应答）。
// 32字节: 设备名称 ASCII(10) + 软件版本主/次(2) + 厂商名称 ASCII(20)
type ManufacturerInfo struct {
	DeviceName   string // 定长10，右侧0x00填充
	VersionMajor uint8
	VersionMinor uint8
	Manufacturer string // 定长20，右侧0x00填充
}

const manufacturerInfoLen = 10 + 2 + 20

func (m *ManufacturerInfo) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, manufacturerInfoLen)
	w.str(m.DeviceName, 10)
	w.u8(m.VersionMajor)
	w.u8(m.VersionMinor)
	w.str(m.Manufacturer, 20)
	return w.buf, nil
}

func (m *ManufacturerInfo) UnmarshalRecord(data []byte) error {
	r := newReader("ManufacturerInfo", data, binary.LittleEndian)
	m.DeviceName = r.str(10)
	m.VersionMajor = r.u8()
	m.VersionMinor = r.u8()
	m.Manufacturer = r.str(20)
	return r.err
}

func (m *ManufacturerInfo) Projection() Projection {
	return Projection{
		{Key: "deviceName", Value: m.DeviceName},
		{Key: "versionMajor", Value: m.VersionMajor},
		{Key: "versionMinor", Value: m.VersionMinor},
		{Key: "manufacturer", Value: m.Manufacturer},
	}
}

func (m *ManufacturerInfo) ApplyProjection(p map[string]any) error {
	name, err := pickString(p, "deviceName")
	if err != nil {
		return err
	}
	major, err := pickUint(p, "versionMajor", 0xFF)
	if err != nil {
		return err
	}
	minor, err := pickUint(p, "versionMinor", 0xFF)
	if err != nil {
		return err
	}
	vendor, err := pickString(p, "manufacturer")
	if err != nil {
		return err
	}
	m.DeviceName = name
	m.VersionMajor = uint8(major)
	m.VersionMinor = uint8(minor)
	m.Manufacturer = vendor
	return nil
}
