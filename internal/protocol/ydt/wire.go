package ydt

import (
	"encoding/binary"
	"fmt"
)

// YD/T 1363.3 帧格式常量
const (
	// SOI / EOI 帧起止标志
	SOI = 0x7E
	EOI = 0x0D

	// Version 协议版本字节（YD/T 1363.3 修订版 2.1）
	Version = 0x21

	// MaxPayloadLen 长度字段为12位，载荷最大4095字节
	MaxPayloadLen = 0x0FFF

	// MinFrameLen 最小帧长度 soi+ver+adr+cid1+cid2+len(2)+chk(2)+eoi
	MinFrameLen = 10
)

// Frame 表示一个完整的YD/T 1363.3帧。
// 编码产生、解码消费，构造后不再修改。
type Frame struct {
	Version byte   // 协议版本
	Address byte   // 设备地址 0-255
	CID1    byte   // 设备类型标识
	CID2    byte   // 命令标识（应答帧中为RTN状态码）
	Payload []byte // 数据信息 INFO
}

// EncodeLength 将载荷长度编码为带LCHKSUM校验半字节的2字节长度字段。
// 格式: byte0 = (lchksum << 4) | lenid_high, byte1 = lenid_low
func EncodeLength(n int) (byte, byte, error) {
	if n < 0 || n > MaxPayloadLen {
		return 0, 0, fmt.Errorf("ydt: payload length %d out of range [0,%d]", n, MaxPayloadLen)
	}
	low := n & 0xFF
	high := (n >> 8) & 0x0F
	lchksum := (^(low + high + n) + 1) & 0x0F
	return byte(lchksum<<4 | high), byte(low), nil
}

// DecodeLength 解析长度字段并校验LCHKSUM半字节。
func DecodeLength(b0, b1 byte) (int, error) {
	high := int(b0 & 0x0F)
	low := int(b1)
	n := high<<8 | low
	want := (^(low + high + n) + 1) & 0x0F
	if got := int(b0 >> 4); got != want {
		return 0, fmt.Errorf("%w: got 0x%X, want 0x%X", ErrLengthChecksum, got, want)
	}
	return n, nil
}

// RawLength 只取长度值、不校验LCHKSUM。串口层组帧时使用，
// 完整校验由 Decode 完成。
func RawLength(b0, b1 byte) int {
	return int(b0&0x0F)<<8 | int(b1)
}

// Checksum 计算16位累加校验和：从VER到INFO末尾逐字节求和
// （模65536），再取补码。
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return ^sum + 1
}

// Encode 构造一个完整帧的线上字节序列。
// 布局: SOI VER ADR CID1 CID2 LEN(2) INFO CHKSUM(2,BE) EOI
func Encode(address, cid1, cid2 byte, payload []byte) ([]byte, error) {
	lb0, lb1, err := EncodeLength(len(payload))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, MinFrameLen+len(payload))
	buf = append(buf, SOI, Version, address, cid1, cid2, lb0, lb1)
	buf = append(buf, payload...)

	// 校验和覆盖 VER..INFO末尾（不含SOI）
	chk := Checksum(buf[1:])
	buf = append(buf, byte(chk>>8), byte(chk))
	buf = append(buf, EOI)
	return buf, nil
}

// Decode 校验并拆解一个完整接收的帧。
// 校验顺序：起止标志 -> 版本 -> 长度字段 -> 总长 -> 校验和。
// 任何一步失败都不会让载荷进入记录解码层。
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < MinFrameLen {
		return nil, fmt.Errorf("%w: frame too short (%d bytes)", ErrMalformedMarker, len(raw))
	}
	if raw[0] != SOI {
		return nil, fmt.Errorf("%w: bad SOI 0x%02X", ErrMalformedMarker, raw[0])
	}
	if raw[len(raw)-1] != EOI {
		return nil, fmt.Errorf("%w: bad EOI 0x%02X", ErrMalformedMarker, raw[len(raw)-1])
	}
	if raw[1] != Version {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrVersionMismatch, raw[1], Version)
	}

	n, err := DecodeLength(raw[5], raw[6])
	if err != nil {
		return nil, err
	}
	if len(raw) != MinFrameLen+n {
		return nil, fmt.Errorf("%w: payload length %d disagrees with frame size %d",
			ErrLengthChecksum, n, len(raw))
	}

	body := raw[1 : 7+n] // VER..INFO末尾
	want := Checksum(body)
	got := binary.BigEndian.Uint16(raw[7+n : 9+n])
	if got != want {
		return nil, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrChecksumMismatch, got, want)
	}

	payload := make([]byte, n)
	copy(payload, raw[7:7+n])
	return &Frame{
		Version: raw[1],
		Address: raw[2],
		CID1:    raw[3],
		CID2:    raw[4],
		Payload: payload,
	}, nil
}
