package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Entry 投影中的一个字段
type Entry struct {
	Key   string
	Value any
}

// Projection 字段名到值的有序映射，交给网关上行层。
// 枚举字段投影为符号名而非原始整数；嵌套子记录投影为
// 子Projection，重复组投影为 []Projection。
type Projection []Entry

// Get 按字段名取值
func (p Projection) Get(key string) (any, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Map 转为无序map（测试与下行回填用）
func (p Projection) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, e := range p {
		m[e.Key] = e.Value
	}
	return m
}

// MarshalJSON 按字段声明顺序输出JSON对象
func (p Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 逐token解码以保持字段顺序
func (p *Projection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("projection: expected JSON object, got %v", tok)
	}
	out := (*p)[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("projection: non-string key %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		out = append(out, Entry{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// 下行方向的取值辅助：投影可能来自JSON解码，数值统一按
// float64 进来，这里做宽松转换、严格校验。

func pickFloat(p map[string]any, key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrBadProjection, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("%w: field %q has non-numeric value %T", ErrBadProjection, key, v)
	}
}

func pickUint(p map[string]any, key string, max uint64) (uint64, error) {
	f, err := pickFloat(p, key)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || uint64(f) > max {
		return 0, fmt.Errorf("%w: field %q value %v out of range [0,%d]", ErrBadProjection, key, f, max)
	}
	return uint64(f), nil
}

func pickString(p map[string]any, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrBadProjection, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q has non-string value %T", ErrBadProjection, key, v)
	}
	return s, nil
}
