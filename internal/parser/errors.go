package parser

import "fmt"

// BoundaryNotFoundError 表示期望的页面标记缺失，通常意味着站点结构变了。
// 这是不可恢复的错误：索引页上出现时整次运行失败，详情页上出现时该条目失败。
type BoundaryNotFoundError struct {
	Which  string // "start" 或 "end"
	Marker string
}

func (e *BoundaryNotFoundError) Error() string {
	return fmt.Sprintf("未找到%s边界标记：%s", whichLabel(e.Which), e.Marker)
}

func whichLabel(which string) string {
	switch which {
	case "start":
		return "起始"
	case "end":
		return "结束"
	default:
		return ""
	}
}

// FieldError 给边界错误加上“是哪个字段在抽取”的上下文。
type FieldError struct {
	Field string // "items" / "transcript" / "notes" / "video" / "subtitle"
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field=%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
