package parser

import "github.com/John-Robertt/coursedl/internal/domain"

// Parser 把“站点标记变化”限制在 parser 包内部；抓取流程只依赖这个接口。
//
// 约束：
// - 两个方法都必须是纯函数：相同输入 => 相同输出，不做网络 IO
// - 返回的 URL 一律已相对传入的 baseURL/pageURL 解析为绝对 URL
// - 必需的页面边界缺失时返回 *BoundaryNotFoundError
type Parser interface {
	Name() string
	// ParseItems 解析课程索引页。dropped 是因缺少必需标记被丢弃的片段数。
	ParseItems(page []byte, baseURL string) (items []domain.Item, dropped int, err error)
	// ParseLinks 解析单个详情页上的四类资源链接；区间存在但无链接时对应字段为空串。
	ParseLinks(page []byte, pageURL string) (domain.ResourceLinks, error)
}
