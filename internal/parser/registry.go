package parser

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是解析实现的只读注册表（按 name 索引）。
type Registry struct {
	byName map[string]Parser
}

func NewRegistry(parsers ...Parser) (Registry, error) {
	byName := make(map[string]Parser, len(parsers))
	for _, p := range parsers {
		if p == nil {
			return Registry{}, fmt.Errorf("parser 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("parser.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 parser：%q", name)
		}
		byName[name] = p
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Parser, bool) {
	if r.byName == nil {
		return nil, false
	}
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names 返回已注册的名字（字典序），用于帮助信息与错误提示。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
