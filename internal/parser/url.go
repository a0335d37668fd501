package parser

import (
	"net/url"
	"strings"
)

// ResolveURL 把 href 相对 base 解析为绝对 URL。
// href 为空时返回空串（表示“无链接”），而不是像浏览器那样返回 base 本身。
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", nil
	}
	bu, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ru, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return bu.ResolveReference(ru).String(), nil
}
