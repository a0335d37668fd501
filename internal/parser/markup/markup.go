// Package markup 用字符串/正则切片解析课程页面，不构建 DOM。
//
// 所有抽取都是带前后置条件的纯函数：ExtractBetween 负责区间，
// ParseItems 负责条目片段，containerLink 负责详情页上的单条资源链接。
package markup

import (
	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/parser"
)

var (
	galleryStart = Literal("course_inner_media_gallery")
	galleryEnd   = Literal("slide-bottom")
)

// Parser 是默认的解析实现（name=regex）。
type Parser struct{}

var _ parser.Parser = Parser{}

func (Parser) Name() string { return "regex" }

func (Parser) ParseItems(page []byte, baseURL string) ([]domain.Item, int, error) {
	region, err := ExtractBetween(galleryStart, galleryEnd, string(page))
	if err != nil {
		return nil, 0, &parser.FieldError{Field: "items", Err: err}
	}
	items, dropped := ParseItems(region, baseURL)
	return items, dropped, nil
}

func (Parser) ParseLinks(page []byte, pageURL string) (domain.ResourceLinks, error) {
	text := string(page)
	var links domain.ResourceLinks
	for _, c := range detailLinks {
		u, err := c.extract(text, pageURL)
		if err != nil {
			return domain.ResourceLinks{}, err
		}
		switch c.Kind {
		case domain.KindTranscript:
			links.Transcript = u
		case domain.KindNotes:
			links.Notes = u
		case domain.KindVideo:
			links.Video = u
		case domain.KindSubtitle:
			links.Subtitle = u
		}
	}
	return links, nil
}
