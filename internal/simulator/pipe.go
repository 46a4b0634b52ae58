package simulator

import (
	"errors"
	"time"

	"github.com/taoyao-code/power-gateway/internal/transport"
)

// Pipe 内存双工传输，两端各自实现 engine.Transport。
// 测试与仿真中代替真实串口，把引擎的两个角色背靠背接起来。
type Pipe struct {
	out chan<- []byte
	in  <-chan []byte
}

// ErrPipeClosed 对端已关闭
var ErrPipeClosed = errors.New("simulator: pipe closed")

// NewPipe 返回互相连接的两端
func NewPipe() (*Pipe, *Pipe) {
	a := make(chan []byte, 16)
	b := make(chan []byte, 16)
	return &Pipe{out: a, in: b}, &Pipe{out: b, in: a}
}

func (p *Pipe) SendFrame(frame []byte) error {
	dup := make([]byte, len(frame))
	copy(dup, frame)
	select {
	case p.out <- dup:
		return nil
	default:
		return ErrPipeClosed
	}
}

func (p *Pipe) ReceiveFrame(timeout time.Duration) ([]byte, error) {
	select {
	case f, ok := <-p.in:
		if !ok {
			return nil, ErrPipeClosed
		}
		return f, nil
	case <-time.After(timeout):
		return nil, transport.ErrReceiveTimeout
	}
}

// Close 关闭本端发送方向
func (p *Pipe) Close() {
	close(p.out)
}
