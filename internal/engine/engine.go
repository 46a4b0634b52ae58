package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
)

var (
	// ErrUnknownCommand 命令键未注册，或入站帧的命令标识无法匹配
	ErrUnknownCommand = errors.New("engine: unknown command")
	// ErrNoResponse 限定时间内设备无应答
	ErrNoResponse = errors.New("engine: no response from device")
	// ErrCommandFormat 请求参数类型或载荷形态不符合命令声明
	ErrCommandFormat = errors.New("engine: command format error")
)

// Transport 引擎对底层传输的全部要求。串口实现见
// internal/transport；测试用内存管道实现同一接口。
type Transport interface {
	SendFrame(frame []byte) error
	ReceiveFrame(timeout time.Duration) ([]byte, error)
}

// Engine 组织一次完整的命令/应答交互。
// 每次调用独立完整地走 发送->等待->解码 流程，调用间不保留
// 任何状态；协议层错误原样上抛，由调用方决定记录或升级。
type Engine struct {
	address byte // 目标设备地址
	reg     *registry.Registry
	tr      Transport
	log     *zap.Logger
	timeout time.Duration // 应答等待缺省值
}

// Option 引擎可选参数
type Option func(*Engine)

// WithTimeout 设置应答等待缺省超时
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger 设置日志器
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New 创建协议引擎
func New(address byte, reg *registry.Registry, tr Transport, opts ...Option) *Engine {
	e := &Engine{
		address: address,
		reg:     reg,
		tr:      tr,
		log:     zap.NewNop(),
		timeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// receiveTimeout 取ctx截止时间与缺省超时中较小者
func (e *Engine) receiveTimeout(ctx context.Context) time.Duration {
	d := e.timeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < d {
			d = rem
		}
	}
	return d
}

// encodeRequest 把调用方数据转成请求载荷。
// data 可以是已类型化的记录，也可以是投影map；命令声明无请求
// 载荷时忽略data。
func encodeRequest(cmd *registry.Command, data any) ([]byte, error) {
	if cmd.NewRequest == nil {
		return nil, nil
	}
	switch v := data.(type) {
	case record.Record:
		return v.MarshalRecord()
	case map[string]any:
		rec := cmd.NewRequest()
		if err := rec.ApplyProjection(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCommandFormat, err)
		}
		return rec.MarshalRecord()
	case nil:
		return nil, fmt.Errorf("%w: command %q requires request data", ErrCommandFormat, cmd.Key)
	default:
		return nil, fmt.Errorf("%w: command %q got request data of type %T", ErrCommandFormat, cmd.Key, data)
	}
}

// SendCommand 发起一次命令并返回解码后的应答投影。
// 失败路径：未知key、参数编码失败、传输失败、超时、帧校验
// 失败、设备返回非零RTN、应答载荷解码失败，均为该次交互的
// 终点，不做内部重试。
func (e *Engine) SendCommand(ctx context.Context, key string, data any) (record.Projection, error) {
	cmd, ok := e.reg.ByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, key)
	}

	payload, err := encodeRequest(cmd, data)
	if err != nil {
		return nil, err
	}

	frame, err := ydt.Encode(e.address, cmd.CID1, cmd.CID2, payload)
	if err != nil {
		return nil, err
	}
	if err := e.tr.SendFrame(frame); err != nil {
		return nil, err
	}

	raw, err := e.tr.ReceiveFrame(e.receiveTimeout(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: command %q: %v", ErrNoResponse, key, err)
	}

	// 帧校验失败原样上抛：校验和/格式错误意味着信道损坏，
	// 调用方可能要区别于逻辑错误处理
	resp, err := ydt.Decode(raw)
	if err != nil {
		return nil, err
	}

	// 应答帧的CID2兼作RTN返回码
	if resp.CID2 != ydt.RTNOk {
		return nil, &ydt.DeviceError{Code: resp.CID2}
	}

	if cmd.NewResponse == nil {
		return nil, nil
	}
	rec := cmd.NewResponse()
	if err := rec.UnmarshalRecord(resp.Payload); err != nil {
		return nil, err
	}
	e.log.Debug("command completed",
		zap.String("key", key),
		zap.Int("payloadLen", len(resp.Payload)))
	return rec.Projection(), nil
}

// ReceiveCommand 设备角色：等待一帧请求，解析出命令与请求
// 记录。任何一步失败都会先给对端回发对应RTN错误应答再上抛，
// 不让对端干等。
func (e *Engine) ReceiveCommand(ctx context.Context) (*registry.Command, record.Record, error) {
	raw, err := e.tr.ReceiveFrame(e.receiveTimeout(ctx))
	if err != nil {
		return nil, nil, err
	}

	f, err := ydt.Decode(raw)
	if err != nil {
		e.replyError(rawCID1(raw), ydt.RTNFor(err))
		return nil, nil, err
	}

	cmd, ok := e.reg.ByWire(f.CID1, f.CID2)
	if !ok {
		e.replyError(f.CID1, ydt.RTNInvalidCID)
		return nil, nil, fmt.Errorf("%w: wire id (0x%02X,0x%02X)", ErrUnknownCommand, f.CID1, f.CID2)
	}

	if cmd.NewRequest == nil {
		if len(f.Payload) != 0 {
			e.replyError(cmd.CID1, ydt.RTNFormatError)
			return nil, nil, fmt.Errorf("%w: command %q expects empty payload, got %d bytes",
				ErrCommandFormat, cmd.Key, len(f.Payload))
		}
		return cmd, nil, nil
	}

	rec := cmd.NewRequest()
	if err := rec.UnmarshalRecord(f.Payload); err != nil {
		if errors.Is(err, record.ErrTruncatedData) {
			e.replyError(cmd.CID1, ydt.RTNFormatError)
		} else {
			e.replyError(cmd.CID1, ydt.RTNInvalidData)
		}
		return nil, nil, err
	}
	return cmd, rec, nil
}

// SendResponse 设备角色发送应答帧：CID2槽位携带RTN状态码，
// 载荷仅在成功应答且命令声明了应答记录时存在。
func (e *Engine) SendResponse(cmd *registry.Command, rtn byte, rec record.Record) error {
	var payload []byte
	if rtn == ydt.RTNOk && rec != nil {
		var err error
		payload, err = rec.MarshalRecord()
		if err != nil {
			return err
		}
	}
	frame, err := ydt.Encode(e.address, cmd.CID1, rtn, payload)
	if err != nil {
		return err
	}
	return e.tr.SendFrame(frame)
}

// replyError 尽力回发错误应答；失败只记日志，原错误优先
func (e *Engine) replyError(cid1 byte, rtn byte) {
	frame, err := ydt.Encode(e.address, cid1, rtn, nil)
	if err != nil {
		return
	}
	if err := e.tr.SendFrame(frame); err != nil {
		e.log.Warn("error reply not delivered", zap.Uint8("rtn", rtn), zap.Error(err))
	}
}

// rawCID1 从未通过校验的原始帧里尽力取CID1，用于构造错误应答
func rawCID1(raw []byte) byte {
	if len(raw) > 3 {
		return raw[3]
	}
	return 0
}
