package markup

import (
	"regexp"

	"github.com/John-Robertt/coursedl/internal/parser"
)

// Marker 是区间边界：字面量或正则，匹配一律不区分大小写。
type Marker struct {
	src string
	re  *regexp.Regexp
}

// Literal 构造字面量标记（正则元字符会被转义）。
func Literal(s string) Marker {
	return Marker{src: s, re: regexp.MustCompile(`(?im)` + regexp.QuoteMeta(s))}
}

// Pattern 构造正则标记。expr 非法时 panic，只用于包级常量。
func Pattern(expr string) Marker {
	return Marker{src: expr, re: regexp.MustCompile(`(?im)` + expr)}
}

func (m Marker) String() string { return m.src }

// ExtractBetween 返回 before 首次出现之后、其后 after 首次出现之前的文本（不含两个标记）。
//
// 前置条件：text 任意。
// 后置条件：成功时结果是 text 的一个连续子串；before 缺失返回 Which="start"，
// before 之后找不到 after 返回 Which="end"。
func ExtractBetween(before, after Marker, text string) (string, error) {
	loc := before.re.FindStringIndex(text)
	if loc == nil {
		return "", &parser.BoundaryNotFoundError{Which: "start", Marker: before.String()}
	}
	rest := text[loc[1]:]

	end := after.re.FindStringIndex(rest)
	if end == nil {
		return "", &parser.BoundaryNotFoundError{Which: "end", Marker: after.String()}
	}
	return rest[:end[0]], nil
}
