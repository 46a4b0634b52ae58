package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"go.uber.org/zap"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
)

// 传输层错误：可通过重连恢复，上抛给轮询循环做退避重试。
var (
	// ErrCannotOpen 串口打开失败（路径错误、权限、被占用）
	ErrCannotOpen = errors.New("transport: cannot open serial port")
	// ErrReceiveTimeout 限定时间内没有收到完整帧
	ErrReceiveTimeout = errors.New("transport: receive timeout")
	// ErrWriteFailure 串口写入失败
	ErrWriteFailure = errors.New("transport: write failure")
	// ErrReadFailure 串口读取失败
	ErrReadFailure = errors.New("transport: read failure")
	// ErrNotConnected 连接断开且未到重连间隔
	ErrNotConnected = errors.New("transport: not connected")
	// ErrClosed 传输已显式关闭
	ErrClosed = errors.New("transport: closed")
)

// Config 串口参数
type Config struct {
	Address  string `mapstructure:"address"`  // 设备路径，如 /dev/ttyUSB0
	BaudRate int    `mapstructure:"baudRate"` // 默认9600
	DataBits int    `mapstructure:"dataBits"` // 默认8
	StopBits int    `mapstructure:"stopBits"` // 默认1
	Parity   string `mapstructure:"parity"`   // N/E/O，默认N

	// ChunkTimeout 驱动级单次读超时，ReceiveFrame在自身截止
	// 时间内以它为步长轮询
	ChunkTimeout time.Duration `mapstructure:"chunkTimeout"`
	// ReconnectInterval I/O故障后重连的最小间隔
	ReconnectInterval time.Duration `mapstructure:"reconnectInterval"`
	// ScanRetries 整个超时窗口内未见SOI时的重试次数上限
	ScanRetries int `mapstructure:"scanRetries"`
}

func (c *Config) fillDefaults() {
	if c.BaudRate <= 0 {
		c.BaudRate = 9600
	}
	if c.DataBits <= 0 {
		c.DataBits = 8
	}
	if c.StopBits <= 0 {
		c.StopBits = 1
	}
	if c.Parity == "" {
		c.Parity = "N"
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = 100 * time.Millisecond
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = 3 * time.Second
	}
	if c.ScanRetries <= 0 {
		c.ScanRetries = 3
	}
}

// Serial 独占一条串行连接的传输层。
// 发送与接收各有一把互斥锁：并发调用方排队而不是交错；
// 读写可以并行，命令/应答的不重叠由上层协定保证。
type Serial struct {
	cfg Config
	log *zap.Logger

	// 测试注入点，缺省为 serial.Open
	openFn func(*serial.Config) (serial.Port, error)

	mu          sync.Mutex // 保护 port/closed/lastAttempt
	port        serial.Port
	closed      bool
	lastAttempt time.Time

	sendMu sync.Mutex
	recvMu sync.Mutex
}

// New 创建传输实例，不会打开串口
func New(cfg Config, log *zap.Logger) *Serial {
	cfg.fillDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Serial{cfg: cfg, log: log, openFn: serial.Open}
}

// Connect 打开串口。失败由调用方决定重试策略。
func (t *Serial) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.openLocked()
}

func (t *Serial) openLocked() error {
	if t.port != nil {
		return nil
	}
	t.lastAttempt = time.Now()
	port, err := t.openFn(&serial.Config{
		Address:  t.cfg.Address,
		BaudRate: t.cfg.BaudRate,
		DataBits: t.cfg.DataBits,
		StopBits: t.cfg.StopBits,
		Parity:   t.cfg.Parity,
		Timeout:  t.cfg.ChunkTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotOpen, t.cfg.Address, err)
	}
	t.port = port
	t.log.Info("serial port opened",
		zap.String("address", t.cfg.Address),
		zap.Int("baud", t.cfg.BaudRate))
	return nil
}

// Close 关闭串口，幂等
func (t *Serial) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Connected 当前是否持有打开的串口
func (t *Serial) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// getPort 取当前端口；断开状态下到达重连间隔后自动重开。
// 状态机 Disconnected -> Connecting -> Connected 无限循环，
// 只有显式Close是终态。
func (t *Serial) getPort() (serial.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if t.port != nil {
		return t.port, nil
	}
	if time.Since(t.lastAttempt) < t.cfg.ReconnectInterval {
		return nil, ErrNotConnected
	}
	if err := t.openLocked(); err != nil {
		return nil, err
	}
	return t.port, nil
}

// dropPort I/O故障后丢弃端口，进入Disconnected
func (t *Serial) dropPort(cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return
	}
	_ = t.port.Close()
	t.port = nil
	t.lastAttempt = time.Now()
	t.log.Warn("serial port dropped", zap.String("address", t.cfg.Address), zap.Error(cause))
}

// SendFrame 原子写入一个完整帧。同一时刻只有一个写者，
// 并发调用方阻塞排队。
func (t *Serial) SendFrame(frame []byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	port, err := t.getPort()
	if err != nil {
		return err
	}
	for off := 0; off < len(frame); {
		n, err := port.Write(frame[off:])
		if err != nil {
			t.dropPort(err)
			return fmt.Errorf("%w: %v", ErrWriteFailure, err)
		}
		off += n
	}
	return nil
}

// ReceiveFrame 在timeout内从字节流中重建一个完整原始帧：
// 逐字节扫描SOI，读定长头，按长度字段读载荷+校验和+EOI。
// 返回的帧未经校验，完整校验由 ydt.Decode 完成。
// 流中出现坏EOI时丢弃当前半帧、继续扫描，从不中断循环。
func (t *Serial) ReceiveFrame(timeout time.Duration) ([]byte, error) {
	t.recvMu.Lock()
	defer t.recvMu.Unlock()

	port, err := t.getPort()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < t.cfg.ScanRetries; attempt++ {
		frame, err := t.readOneFrame(port, time.Now().Add(timeout))
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, ErrReceiveTimeout) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no frame within %v after %d attempts",
		ErrReceiveTimeout, timeout, t.cfg.ScanRetries)
}

func (t *Serial) readOneFrame(port serial.Port, deadline time.Time) ([]byte, error) {
	for {
		// 扫描SOI
		b, err := t.readByte(port, deadline)
		if err != nil {
			return nil, err
		}
		if b != ydt.SOI {
			continue
		}

		// 定长头: VER ADR CID1 CID2 LEN(2)
		header := make([]byte, 6)
		if err := t.readFull(port, header, deadline); err != nil {
			return nil, err
		}
		payloadLen := ydt.RawLength(header[4], header[5])

		// 载荷 + CHKSUM(2) + EOI
		rest := make([]byte, payloadLen+3)
		if err := t.readFull(port, rest, deadline); err != nil {
			return nil, err
		}

		frame := make([]byte, 0, 1+len(header)+len(rest))
		frame = append(frame, ydt.SOI)
		frame = append(frame, header...)
		frame = append(frame, rest...)

		if frame[len(frame)-1] != ydt.EOI {
			// 半帧损坏：丢弃并继续在剩余字节流中找下一个SOI
			t.log.Debug("discarding partial frame with bad EOI",
				zap.Int("len", len(frame)))
			continue
		}
		return frame, nil
	}
}

func (t *Serial) readByte(port serial.Port, deadline time.Time) (byte, error) {
	var buf [1]byte
	for {
		n, err := port.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			t.dropPort(err)
			return 0, fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		if !time.Now().Before(deadline) {
			return 0, ErrReceiveTimeout
		}
	}
}

func (t *Serial) readFull(port serial.Port, buf []byte, deadline time.Time) error {
	for off := 0; off < len(buf); {
		n, err := port.Read(buf[off:])
		off += n
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			t.dropPort(err)
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		if off < len(buf) && !time.Now().Before(deadline) {
			return ErrReceiveTimeout
		}
	}
	return nil
}
