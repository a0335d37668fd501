// Package logfilter 按 include/exclude 正则过滤带时间戳头部的多行日志块。
//
// 块以头部行（形如 "21-03-04 10:11:12 =ERROR REPORT===="）开始，到下一个头部行或 EOF 结束。
// 给出 include 时只看 include：块匹配任一 include 即输出，exclude 被忽略。
// 没有 include 时，块不匹配任何 exclude 才输出。
package logfilter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var headerRE = regexp.MustCompile(`^\d\d-\d\d-\d\d \d\d:\d\d:\d\d =\w+ REPORT====`)

// PatternError 表示某个 include/exclude 模式无法编译。
type PatternError struct {
	Flag    string // include | exclude
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("--%s 模式无效：%q：%v", e.Flag, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Filter 是编译后的过滤规则；零值输出所有块。
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Compile 以多行 + 不区分大小写编译模式。
func Compile(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.include, err = compileAll("include", include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileAll("exclude", exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(flag string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?im)" + p)
		if err != nil {
			return nil, &PatternError{Flag: flag, Pattern: p, Err: err}
		}
		out = append(out, re)
	}
	return out, nil
}

// Keep 判断一个完整块是否应输出。
func (f *Filter) Keep(block string) bool {
	if block == "" {
		return false
	}
	if len(f.include) > 0 {
		for _, re := range f.include {
			if re.MatchString(block) {
				return true
			}
		}
		return false
	}
	for _, re := range f.exclude {
		if re.MatchString(block) {
			return false
		}
	}
	return true
}

// Stats 是一次 Run 的计数。
type Stats struct {
	Blocks  int
	Written int
}

// Run 逐行读取 r，把保留的块原样写入 w（包括头部行与原换行）。
// 第一个头部行之前的内容也视为一个块。
func (f *Filter) Run(r io.Reader, w io.Writer) (Stats, error) {
	var (
		st    Stats
		block strings.Builder
	)
	flush := func() error {
		if block.Len() == 0 {
			return nil
		}
		st.Blocks++
		s := block.String()
		block.Reset()
		if !f.Keep(s) {
			return nil
		}
		st.Written++
		_, err := io.WriteString(w, s)
		return err
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if headerRE.MatchString(line) {
				if ferr := flush(); ferr != nil {
					return st, ferr
				}
			}
			block.WriteString(line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, err
		}
	}
	return st, flush()
}
