package poller

import (
	"context"
	"sync"
)

// Fleet 多台设备的轮询器集合，一台设备一个goroutine
type Fleet struct {
	pollers []*Poller
}

func NewFleet(pollers ...*Poller) *Fleet {
	return &Fleet{pollers: pollers}
}

func (f *Fleet) Add(p *Poller) {
	f.pollers = append(f.pollers, p)
}

// Run 启动全部轮询器并阻塞到ctx取消
func (f *Fleet) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range f.pollers {
		wg.Add(1)
		go func(p *Poller) {
			defer wg.Done()
			p.Run(ctx)
		}(p)
	}
	wg.Wait()
}

// AnyOnline 只要有一台设备在上个周期应答即就绪
func (f *Fleet) AnyOnline() bool {
	for _, p := range f.pollers {
		if p.Online() {
			return true
		}
	}
	return false
}
