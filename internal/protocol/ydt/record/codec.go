package record

import (
	"encoding/binary"
	"math"
	"strings"
)

// Record 一条设备数据块的类型化二进制结构。
// MarshalRecord 与 UnmarshalRecord 互为精确逆运算；带标度系数的
// 字段（如0.1℃存储）在各自类型处注明有损边界。
type Record interface {
	// MarshalRecord 按记录布局序列化
	MarshalRecord() ([]byte, error)
	// UnmarshalRecord 从载荷字节解析，长度不足返回 TruncatedError
	UnmarshalRecord(data []byte) error
	// Projection 字段名到标量/枚举名/嵌套投影的有序映射
	Projection() Projection
	// ApplyProjection 下行方向：用人类可读参数填充记录
	ApplyProjection(p map[string]any) error
}

// reader 游标式读取器。越界后置错，后续读取返回零值，
// 调用方在末尾统一检查 err。
type reader struct {
	typ   string
	buf   []byte
	pos   int
	order binary.ByteOrder
	err   error
}

func newReader(typ string, data []byte, order binary.ByteOrder) *reader {
	return &reader{typ: typ, buf: data, order: order}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = &TruncatedError{Type: r.typ, Need: r.pos + n, Got: len(r.buf)}
		return false
	}
	return true
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) i16() int16 { return int16(r.u16()) }

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

// str 定长ASCII字段，右侧填充0x00或空格，解码时剔除
func (r *reader) str(n int) string {
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return strings.TrimRight(s, "\x00 ")
}

// readEnum 读一个枚举字节并用闭集解析函数校验
func readEnum[T any](r *reader, parse func(byte) (T, error)) T {
	var zero T
	b := r.u8()
	if r.err != nil {
		return zero
	}
	v, err := parse(b)
	if err != nil {
		r.err = err
		return zero
	}
	return v
}

// writer 按同一字节序追加写入
type writer struct {
	buf   []byte
	order binary.AppendByteOrder
}

func newWriter(order binary.AppendByteOrder, capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity), order: order}
}

func (w *writer) u8(v byte) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	w.buf = w.order.AppendUint16(w.buf, v)
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) u32(v uint32) {
	w.buf = w.order.AppendUint32(w.buf, v)
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

// str 定长ASCII，超长截断、不足补0x00
func (w *writer) str(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf = append(w.buf, b...)
}
