package ydt

import (
	"errors"
	"fmt"
)

// 帧层错误：对单次交互而言都是致命的，不做静默纠正。
var (
	// ErrMalformedMarker SOI/EOI起止标志错误或帧长不足
	ErrMalformedMarker = errors.New("ydt: malformed frame marker")
	// ErrVersionMismatch 协议版本字节不匹配
	ErrVersionMismatch = errors.New("ydt: protocol version mismatch")
	// ErrLengthChecksum 长度字段LCHKSUM校验失败或总长不一致
	ErrLengthChecksum = errors.New("ydt: length checksum mismatch")
	// ErrChecksumMismatch 16位累加校验和不匹配
	ErrChecksumMismatch = errors.New("ydt: checksum mismatch")
)

// RTN 应答帧CID2位置携带的返回码
const (
	RTNOk             = 0x00 // 正常
	RTNVersionError   = 0x01 // 版本不匹配
	RTNChecksumError  = 0x02 // CHKSUM错误
	RTNLengthError    = 0x03 // LCHKSUM错误
	RTNInvalidCID     = 0x04 // CID2无效（无此命令）
	RTNFormatError    = 0x05 // 命令格式错误
	RTNInvalidData    = 0x06 // 无效数据
	RTNUserDefinedMin = 0x80 // 用户自定义错误码下界
	RTNUserDefinedMax = 0xEF // 用户自定义错误码上界
)

// rtnText 固定返回码语义表
var rtnText = map[byte]string{
	RTNVersionError:  "version mismatch",
	RTNChecksumError: "checksum error",
	RTNLengthError:   "length checksum error",
	RTNInvalidCID:    "invalid command id",
	RTNFormatError:   "command format error",
	RTNInvalidData:   "invalid data",
}

// DeviceError 设备应答帧携带的非零RTN返回码。
// 0x80-0xEF 为用户自定义区间，原始码保留给调用方
// 对照设备文档解读。
type DeviceError struct {
	Code byte
}

func (e *DeviceError) Error() string {
	if t, ok := rtnText[e.Code]; ok {
		return fmt.Sprintf("ydt: device returned 0x%02X (%s)", e.Code, t)
	}
	if e.UserDefined() {
		return fmt.Sprintf("ydt: device returned user-defined code 0x%02X", e.Code)
	}
	return fmt.Sprintf("ydt: device returned unknown code 0x%02X", e.Code)
}

// UserDefined 返回码是否落在用户自定义区间
func (e *DeviceError) UserDefined() bool {
	return e.Code >= RTNUserDefinedMin && e.Code <= RTNUserDefinedMax
}

// RTNFor 将本端解码失败映射为应答给对端的RTN返回码。
// 设备角色收到坏帧/坏命令时用它构造错误应答。
func RTNFor(err error) byte {
	switch {
	case errors.Is(err, ErrVersionMismatch):
		return RTNVersionError
	case errors.Is(err, ErrChecksumMismatch):
		return RTNChecksumError
	case errors.Is(err, ErrLengthChecksum):
		return RTNLengthError
	default:
		return RTNFormatError
	}
}
