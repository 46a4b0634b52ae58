package record

import (
	"encoding/binary"
	"time"
)

// DateTime 系统时间记录（getDateTime/setDateTime）。
// 7字节，通用记录中唯一的大端布局：
// year(u16 BE) month(1) day(1) hour(1) minute(1) second(1)
type DateTime struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// FromTime 从time.Time构造（秒以下精度丢弃）
func (d *DateTime) FromTime(t time.Time) {
	d.Year = uint16(t.Year())
	d.Month = uint8(t.Month())
	d.Day = uint8(t.Day())
	d.Hour = uint8(t.Hour())
	d.Minute = uint8(t.Minute())
	d.Second = uint8(t.Second())
}

// Time 转time.Time（本地时区）
func (d *DateTime) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), 0, time.Local)
}

func (d *DateTime) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.BigEndian, 7)
	w.u16(d.Year)
	w.u8(d.Month)
	w.u8(d.Day)
	w.u8(d.Hour)
	w.u8(d.Minute)
	w.u8(d.Second)
	return w.buf, nil
}

func (d *DateTime) UnmarshalRecord(data []byte) error {
	r := newReader("DateTime", data, binary.BigEndian)
	d.Year = r.u16()
	d.Month = r.u8()
	d.Day = r.u8()
	d.Hour = r.u8()
	d.Minute = r.u8()
	d.Second = r.u8()
	return r.err
}

func (d *DateTime) Projection() Projection {
	return Projection{
		{Key: "year", Value: d.Year},
		{Key: "month", Value: d.Month},
		{Key: "day", Value: d.Day},
		{Key: "hour", Value: d.Hour},
		{Key: "minute", Value: d.Minute},
		{Key: "second", Value: d.Second},
	}
}

func (d *DateTime) ApplyProjection(p map[string]any) error {
	year, err := pickUint(p, "year", 0xFFFF)
	if err != nil {
		return err
	}
	month, err := pickUint(p, "month", 12)
	if err != nil {
		return err
	}
	day, err := pickUint(p, "day", 31)
	if err != nil {
		return err
	}
	hour, err := pickUint(p, "hour", 23)
	if err != nil {
		return err
	}
	minute, err := pickUint(p, "minute", 59)
	if err != nil {
		return err
	}
	second, err := pickUint(p, "second", 59)
	if err != nil {
		return err
	}
	d.Year = uint16(year)
	d.Month = uint8(month)
	d.Day = uint8(day)
	d.Hour = uint8(hour)
	d.Minute = uint8(minute)
	d.Second = uint8(second)
	return nil
}
