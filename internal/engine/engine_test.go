package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/registry"
	"github.com/taoyao-code/power-gateway/internal/transport"
)

// scriptTransport 脚本化传输：记录发出的帧，按预置应答回帧
type scriptTransport struct {
	sent    [][]byte
	replies [][]byte
	recvErr error
}

func (s *scriptTransport) SendFrame(frame []byte) error {
	s.sent = append(s.sent, frame)
	return nil
}

func (s *scriptTransport) ReceiveFrame(timeout time.Duration) ([]byte, error) {
	if s.recvErr != nil {
		return nil, s.recvErr
	}
	if len(s.replies) == 0 {
		return nil, transport.ErrReceiveTimeout
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptTransport) reply(t *testing.T, address, cid1, rtn byte, payload []byte) {
	t.Helper()
	raw, err := ydt.Encode(address, cid1, rtn, payload)
	require.NoError(t, err)
	s.replies = append(s.replies, raw)
}

func newTestEngine(t *testing.T, tr Transport) *Engine {
	t.Helper()
	reg, err := registry.Build(registry.DefaultTable())
	require.NoError(t, err)
	return New(0x01, reg, tr, WithTimeout(50*time.Millisecond))
}

func TestSendCommandSuccess(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, ydt.RTNOk, []byte{0x01})
	e := newTestEngine(t, tr)

	proj, err := e.SendCommand(context.Background(), "getDeviceAddress", nil)
	require.NoError(t, err)

	addr, ok := proj.Get("address")
	require.True(t, ok)
	assert.Equal(t, uint8(1), addr)

	// 请求帧：无载荷，CID来自命令表
	require.Len(t, tr.sent, 1)
	f, err := ydt.Decode(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, byte(0x40), f.CID1)
	assert.Equal(t, byte(0x50), f.CID2)
	assert.Empty(t, f.Payload)
}

func TestSendCommandDeviceError(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, ydt.RTNInvalidCID, nil)
	e := newTestEngine(t, tr)

	_, err := e.SendCommand(context.Background(), "getDeviceAddress", nil)
	var de *ydt.DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, byte(ydt.RTNInvalidCID), de.Code)
}

func TestSendCommandUserDefinedError(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, 0x8A, nil)
	e := newTestEngine(t, tr)

	_, err := e.SendCommand(context.Background(), "getDeviceAddress", nil)
	var de *ydt.DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, byte(0x8A), de.Code)
	assert.True(t, de.UserDefined())
}

func TestSendCommandNoResponse(t *testing.T) {
	tr := &scriptTransport{recvErr: transport.ErrReceiveTimeout}
	e := newTestEngine(t, tr)

	_, err := e.SendCommand(context.Background(), "getDeviceAddress", nil)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSendCommandUnknownKey(t *testing.T) {
	e := newTestEngine(t, &scriptTransport{})
	_, err := e.SendCommand(context.Background(), "doesNotExist", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

// 帧校验错误不被吞掉，原样上抛
func TestSendCommandCorruptResponse(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, ydt.RTNOk, []byte{0x01})
	tr.replies[0][8] ^= 0x01 // 破坏校验和
	e := newTestEngine(t, tr)

	_, err := e.SendCommand(context.Background(), "getDeviceAddress", nil)
	assert.ErrorIs(t, err, ydt.ErrChecksumMismatch)
}

func TestSendCommandWithRequestRecord(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, ydt.RTNOk, nil)
	e := newTestEngine(t, tr)

	// 投影map形式的参数
	_, err := e.SendCommand(context.Background(), "setDateTime", map[string]any{
		"year": 2024, "month": 7, "day": 30, "hour": 16, "minute": 45, "second": 0,
	})
	require.NoError(t, err)

	require.Len(t, tr.sent, 1)
	f, err := ydt.Decode(tr.sent[0])
	require.NoError(t, err)
	var dt record.DateTime
	require.NoError(t, dt.UnmarshalRecord(f.Payload))
	assert.Equal(t, uint16(2024), dt.Year)
	assert.Equal(t, uint8(7), dt.Month)
}

func TestSendCommandTypedRequest(t *testing.T) {
	tr := &scriptTransport{}
	tr.reply(t, 0x01, 0x40, ydt.RTNOk, nil)
	e := newTestEngine(t, tr)

	ctl := &record.RectModuleControl{ModuleID: 2, Operation: record.ControlOpOn}
	_, err := e.SendCommand(context.Background(), "controlRectModule", ctl)
	require.NoError(t, err)
}

func TestSendCommandMissingRequestData(t *testing.T) {
	e := newTestEngine(t, &scriptTransport{})
	_, err := e.SendCommand(context.Background(), "setDateTime", nil)
	assert.ErrorIs(t, err, ErrCommandFormat)
}

func TestReceiveCommand(t *testing.T) {
	t.Run("有请求载荷", func(t *testing.T) {
		tr := &scriptTransport{}
		dt := &record.DateTime{Year: 2024, Month: 7, Day: 30}
		payload, err := dt.MarshalRecord()
		require.NoError(t, err)
		tr.reply(t, 0x01, 0x40, 0x4E, payload) // setDateTime请求
		e := newTestEngine(t, tr)

		cmd, rec, err := e.ReceiveCommand(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "setDateTime", cmd.Key)
		got, ok := rec.(*record.DateTime)
		require.True(t, ok)
		assert.Equal(t, uint16(2024), got.Year)
	})

	t.Run("未知命令自动回错误应答", func(t *testing.T) {
		tr := &scriptTransport{}
		tr.reply(t, 0x01, 0x7F, 0x7F, nil)
		e := newTestEngine(t, tr)

		_, _, err := e.ReceiveCommand(context.Background())
		assert.ErrorIs(t, err, ErrUnknownCommand)
		require.Len(t, tr.sent, 1)
		f, err := ydt.Decode(tr.sent[0])
		require.NoError(t, err)
		assert.Equal(t, byte(ydt.RTNInvalidCID), f.CID2)
	})

	t.Run("坏校验和自动回错误应答", func(t *testing.T) {
		tr := &scriptTransport{}
		tr.reply(t, 0x01, 0x40, 0x50, nil)
		tr.replies[0][7] ^= 0xFF
		e := newTestEngine(t, tr)

		_, _, err := e.ReceiveCommand(context.Background())
		assert.ErrorIs(t, err, ydt.ErrChecksumMismatch)
		require.Len(t, tr.sent, 1)
		f, err := ydt.Decode(tr.sent[0])
		require.NoError(t, err)
		assert.Equal(t, byte(ydt.RTNChecksumError), f.CID2)
	})

	t.Run("截断载荷回格式错误", func(t *testing.T) {
		tr := &scriptTransport{}
		tr.reply(t, 0x01, 0x40, 0x4E, []byte{0x07}) // setDateTime载荷过短
		e := newTestEngine(t, tr)

		_, _, err := e.ReceiveCommand(context.Background())
		assert.ErrorIs(t, err, record.ErrTruncatedData)
		require.Len(t, tr.sent, 1)
		f, err := ydt.Decode(tr.sent[0])
		require.NoError(t, err)
		assert.Equal(t, byte(ydt.RTNFormatError), f.CID2)
	})
}

func TestSendResponse(t *testing.T) {
	tr := &scriptTransport{}
	reg, err := registry.Build(registry.DefaultTable())
	require.NoError(t, err)
	e := New(0x01, reg, tr)

	cmd, _ := reg.ByKey("getDeviceAddress")
	require.NoError(t, e.SendResponse(cmd, ydt.RTNOk, &record.DeviceAddress{Address: 1}))

	f, err := ydt.Decode(tr.sent[0])
	require.NoError(t, err)
	assert.Equal(t, byte(ydt.RTNOk), f.CID2)
	assert.Equal(t, []byte{0x01}, f.Payload)

	// 错误应答不带载荷
	require.NoError(t, e.SendResponse(cmd, ydt.RTNInvalidData, &record.DeviceAddress{Address: 1}))
	f, err = ydt.Decode(tr.sent[1])
	require.NoError(t, err)
	assert.Equal(t, byte(ydt.RTNInvalidData), f.CID2)
	assert.Empty(t, f.Payload)
}

func TestReceiveTimeoutPropagates(t *testing.T) {
	tr := &scriptTransport{recvErr: transport.ErrReceiveTimeout}
	e := newTestEngine(t, tr)
	_, _, err := e.ReceiveCommand(context.Background())
	assert.ErrorIs(t, err, transport.ErrReceiveTimeout)
	assert.Empty(t, tr.sent, "timeout should not trigger an error reply")
}

func TestContextDeadlineShortensTimeout(t *testing.T) {
	tr := &scriptTransport{}
	e := newTestEngine(t, tr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.SendCommand(ctx, "getDeviceAddress", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResponse)
}
