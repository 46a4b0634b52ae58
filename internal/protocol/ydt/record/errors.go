package record

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedData 缓冲区短于记录布局要求的长度
	ErrTruncatedData = errors.New("record: truncated data")
	// ErrUnknownEnumValue 枚举字段出现闭集之外的字节值
	ErrUnknownEnumValue = errors.New("record: unknown enum value")
	// ErrUnknownType 类型目录中不存在该记录类型名
	ErrUnknownType = errors.New("record: unknown record type")
	// ErrBadProjection 投影缺字段或字段值无法转换
	ErrBadProjection = errors.New("record: bad projection value")
)

// TruncatedError 解码时数据不足。Need为布局要求的最小字节数。
type TruncatedError struct {
	Type string
	Need int
	Got  int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("record: %s truncated: need %d bytes, got %d", e.Type, e.Need, e.Got)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncatedData }

// UnknownEnumError 枚举字段值越界。出现它通常意味着设备固件
// 与本端协议表不一致，宁可失败也不放行原始整数。
type UnknownEnumError struct {
	Field string
	Value byte
}

func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("record: field %s: unexpected enum byte 0x%02X", e.Field, e.Value)
}

func (e *UnknownEnumError) Unwrap() error { return ErrUnknownEnumValue }
