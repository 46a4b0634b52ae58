package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/serial"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt"
)

// fakePort 脚本化的串口替身：Read按预置字节流返回，
// 流耗尽后模拟驱动级超时。
type fakePort struct {
	mu      sync.Mutex
	rx      bytes.Buffer
	tx      bytes.Buffer
	readErr error
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.rx.Len() == 0 {
		return 0, serial.ErrTimeout
	}
	return p.rx.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.Write(b)
}

func (p *fakePort) Open(*serial.Config) error { return nil }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.Write(b)
}

func newTestSerial(t *testing.T, port *fakePort) *Serial {
	t.Helper()
	tr := New(Config{Address: "/dev/ttyTEST", ChunkTimeout: time.Millisecond, ScanRetries: 2}, nil)
	tr.openFn = func(*serial.Config) (serial.Port, error) { return port, nil }
	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return tr
}

func validFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	raw, err := ydt.Encode(0x01, 0x40, 0x00, payload)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestSendFrame(t *testing.T) {
	port := &fakePort{}
	tr := newTestSerial(t, port)
	defer tr.Close()

	frame := validFrame(t, []byte{0x01, 0x02})
	if err := tr.SendFrame(frame); err != nil {
		t.Fatalf("SendFrame failed: %v", err)
	}
	if !bytes.Equal(port.tx.Bytes(), frame) {
		t.Errorf("written = % X, want % X", port.tx.Bytes(), frame)
	}
}

func TestReceiveFrame(t *testing.T) {
	tests := []struct {
		name    string
		feed    []byte
		payload []byte
	}{
		{name: "干净的帧", payload: []byte{0xAA, 0xBB}},
		{name: "空载荷帧", payload: nil},
		{name: "SOI前有噪声", feed: []byte{0x00, 0xFF, 0x13}, payload: []byte{0x55}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{}
			tr := newTestSerial(t, port)
			defer tr.Close()

			want := validFrame(t, tt.payload)
			port.feed(append(tt.feed, want...))

			got, err := tr.ReceiveFrame(100 * time.Millisecond)
			if err != nil {
				t.Fatalf("ReceiveFrame failed: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("frame = % X, want % X", got, want)
			}
		})
	}
}

// 坏EOI的半帧被丢弃，继续扫描后面的完整帧
func TestReceiveFrameResync(t *testing.T) {
	port := &fakePort{}
	tr := newTestSerial(t, port)
	defer tr.Close()

	bad := validFrame(t, []byte{0x01})
	bad[len(bad)-1] = 0x00 // 破坏EOI
	good := validFrame(t, []byte{0x02})
	port.feed(append(bad, good...))

	got, err := tr.ReceiveFrame(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("ReceiveFrame failed: %v", err)
	}
	if !bytes.Equal(got, good) {
		t.Errorf("frame = % X, want % X", got, good)
	}
}

func TestReceiveFrameTimeout(t *testing.T) {
	port := &fakePort{}
	tr := newTestSerial(t, port)
	defer tr.Close()

	start := time.Now()
	_, err := tr.ReceiveFrame(20 * time.Millisecond)
	if !errors.Is(err, ErrReceiveTimeout) {
		t.Fatalf("err = %v, want ErrReceiveTimeout", err)
	}
	// 两次重试：耗时约2个超时窗口
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
}

func TestReadFailureDropsPort(t *testing.T) {
	port := &fakePort{}
	tr := newTestSerial(t, port)
	defer tr.Close()

	port.mu.Lock()
	port.readErr = io.ErrUnexpectedEOF
	port.mu.Unlock()

	_, err := tr.ReceiveFrame(50 * time.Millisecond)
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("err = %v, want ErrReadFailure", err)
	}
	if tr.Connected() {
		t.Error("port should be dropped after read failure")
	}

	// 未到重连间隔内直接报未连接
	if _, err := tr.ReceiveFrame(10 * time.Millisecond); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	port := &fakePort{}
	tr := newTestSerial(t, port)
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.SendFrame([]byte{0x7E}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestConnectFailure(t *testing.T) {
	tr := New(Config{Address: "/dev/null0"}, nil)
	tr.openFn = func(*serial.Config) (serial.Port, error) {
		return nil, errors.New("permission denied")
	}
	if err := tr.Connect(); !errors.Is(err, ErrCannotOpen) {
		t.Errorf("err = %v, want ErrCannotOpen", err)
	}
}
