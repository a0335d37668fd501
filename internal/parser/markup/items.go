package markup

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/parser"
)

var (
	itemSep = regexp.MustCompile(`(?i)medialisting`)

	// 片段必须同时包含这些子串才视为完整条目（区分大小写）。
	// 切分后的首段（第一个条目之前的文本）和尾部残片通常缺少其中若干项。
	requiredMarkers = []string{"mediathumbnail", "mediatext", "mediatitle", "medialink", "href", "title"}

	hrefRE   = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^<>"]+)"|'([^<>']+)')`)
	titleRE  = regexp.MustCompile(`(?i)\btitle\s*=\s*(?:"([^<>"]+)"|'([^<>']+)')`)
	digitsRE = regexp.MustCompile(`[0-9]+`)
)

// ParseItems 把条目区间切成片段并逐个抽取 (序号, 标题, 链接)。
//
// 只校验必需标记是否“出现”，不要求每个字段都抽取成功：
// 无链接 => DetailURL 为空；标题无数字 => Seq 为 nil。输出保持片段在源文本中的顺序。
func ParseItems(region, baseURL string) (items []domain.Item, dropped int) {
	for _, frag := range itemSep.Split(region, -1) {
		if !hasAllMarkers(frag) {
			dropped++
			continue
		}
		title := html.UnescapeString(ExtractTitle(frag))
		link, err := parser.ResolveURL(baseURL, ExtractLink(frag))
		if err != nil {
			link = ""
		}
		items = append(items, domain.Item{
			Seq:       FirstNumber(title),
			Title:     title,
			DetailURL: link,
			Index:     len(items),
		})
	}
	return items, dropped
}

func hasAllMarkers(frag string) bool {
	for _, m := range requiredMarkers {
		if !strings.Contains(frag, m) {
			return false
		}
	}
	return true
}

// ExtractLink 返回第一个 href 属性值；没有则返回空串。
func ExtractLink(text string) string { return firstAttr(hrefRE, text) }

// ExtractTitle 返回第一个 title 属性值（未解码）；没有则返回空串。
func ExtractTitle(text string) string { return firstAttr(titleRE, text) }

func firstAttr(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// FirstNumber 返回 s 中第一段十进制数字；没有数字（或溢出）时返回 nil。
func FirstNumber(s string) *int {
	d := digitsRE.FindString(s)
	if d == "" {
		return nil
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return nil
	}
	return &n
}
