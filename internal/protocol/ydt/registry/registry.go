package registry

import (
	"errors"
	"fmt"

	"github.com/taoyao-code/power-gateway/internal/protocol/ydt/record"
)

// ErrConfig 命令表配置错误（重复注册、未知记录类型名）
var ErrConfig = errors.New("registry: bad command table")

// Entry 命令表中的一条声明式条目。record类型名在Build时
// 对照记录类型目录解析，启动即失败而非首次使用才失败。
type Entry struct {
	CID1     byte   `yaml:"cid1" mapstructure:"cid1"`
	CID2     byte   `yaml:"cid2" mapstructure:"cid2"`
	Key      string `yaml:"key" mapstructure:"key"`
	Name     string `yaml:"name" mapstructure:"name"`
	Request  string `yaml:"request,omitempty" mapstructure:"request"`   // 请求记录类型名，空表示无载荷
	Response string `yaml:"response,omitempty" mapstructure:"response"` // 应答记录类型名，空表示无应答载荷
}

// Command 注册完成的命令描述符。两个索引指向同一实例，
// 构造后不再修改。
type Command struct {
	CID1 byte
	CID2 byte
	Key  string
	Name string // 诊断用显示名

	// NewRequest / NewResponse 为nil表示该方向无载荷
	NewRequest  func() record.Record
	NewResponse func() record.Record
}

// Registry 命令注册表：按(cid1,cid2)与按key双索引
type Registry struct {
	byWire map[uint16]*Command
	byKey  map[string]*Command
}

func wireID(cid1, cid2 byte) uint16 {
	return uint16(cid1)<<8 | uint16(cid2)
}

// Build 从声明式条目构建注册表。重复的(cid1,cid2)、重复的key
// 或未知记录类型名都立即失败。
func Build(entries []Entry) (*Registry, error) {
	r := &Registry{
		byWire: make(map[uint16]*Command, len(entries)),
		byKey:  make(map[string]*Command, len(entries)),
	}
	for i, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: entry %d has empty key", ErrConfig, i)
		}
		id := wireID(e.CID1, e.CID2)
		if prev, dup := r.byWire[id]; dup {
			return nil, fmt.Errorf("%w: duplicate wire id (0x%02X,0x%02X) used by %q and %q",
				ErrConfig, e.CID1, e.CID2, prev.Key, e.Key)
		}
		if _, dup := r.byKey[e.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrConfig, e.Key)
		}

		cmd := &Command{CID1: e.CID1, CID2: e.CID2, Key: e.Key, Name: e.Name}
		if e.Request != "" {
			ctor, err := record.Resolve(e.Request)
			if err != nil {
				return nil, fmt.Errorf("%w: command %q request: %v", ErrConfig, e.Key, err)
			}
			cmd.NewRequest = ctor
		}
		if e.Response != "" {
			ctor, err := record.Resolve(e.Response)
			if err != nil {
				return nil, fmt.Errorf("%w: command %q response: %v", ErrConfig, e.Key, err)
			}
			cmd.NewResponse = ctor
		}

		r.byWire[id] = cmd
		r.byKey[e.Key] = cmd
	}
	return r, nil
}

// ByWire 按线上命令标识查找，入站帧匹配用
func (r *Registry) ByWire(cid1, cid2 byte) (*Command, bool) {
	cmd, ok := r.byWire[wireID(cid1, cid2)]
	return cmd, ok
}

// ByKey 按调用方命令键查找，出站调用用。未注册返回false，
// 从不panic。
func (r *Registry) ByKey(key string) (*Command, bool) {
	cmd, ok := r.byKey[key]
	return cmd, ok
}

// Len 已注册命令数
func (r *Registry) Len() int { return len(r.byKey) }

// Keys 全部命令键（注册顺序不保证）
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	return keys
}
