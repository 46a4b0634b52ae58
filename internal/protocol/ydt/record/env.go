package record

import (
	"encoding/binary"
	"math"
)

// EnvData 机房环境量（getEnvData应答），4字节小端:
// 温度(i16, 0.1℃) + 湿度(u16, 0.1%RH)
//
// 两个字段都以0.1为步长的整数存储，往返编解码截断到一位
// 小数，这是协议规定的有损边界。
type EnvData struct {
	Temperature float64 // ℃
	Humidity    float64 // %RH
}

func (e *EnvData) MarshalRecord() ([]byte, error) {
	w := newWriter(binary.LittleEndian, 4)
	w.i16(int16(math.Round(e.Temperature * 10)))
	w.u16(uint16(math.Round(e.Humidity * 10)))
	return w.buf, nil
}

func (e *EnvData) UnmarshalRecord(data []byte) error {
	r := newReader("EnvData", data, binary.LittleEndian)
	e.Temperature = float64(r.i16()) / 10
	e.Humidity = float64(r.u16()) / 10
	return r.err
}

func (e *EnvData) Projection() Projection {
	return Projection{
		{Key: "temperature", Value: e.Temperature},
		{Key: "humidity", Value: e.Humidity},
	}
}

func (e *EnvData) ApplyProjection(p map[string]any) error {
	t, err := pickFloat(p, "temperature")
	if err != nil {
		return err
	}
	h, err := pickFloat(p, "humidity")
	if err != nil {
		return err
	}
	e.Temperature = t
	e.Humidity = h
	return nil
}
