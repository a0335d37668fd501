package domain

import "fmt"

// Item 是索引页中解析出的一讲（part）。
//
// 不变量：
// - DetailURL 非空时必须是绝对 URL（相对索引页的最终 URL 解析）
// - Seq 来自标题中的第一段数字；标题里没有数字时为 nil
type Item struct {
	Seq       *int
	Title     string // 已做 HTML 实体解码
	DetailURL string
	Index     int // 在索引页中的位置（0 基），用于序号缺失时的兜底
}

// DirName 返回条目输出目录名：两位零填充序号；序号缺失时用 Index+1。
func (it Item) DirName() string {
	n := it.Index + 1
	if it.Seq != nil {
		n = *it.Seq
	}
	return fmt.Sprintf("%02d", n)
}
