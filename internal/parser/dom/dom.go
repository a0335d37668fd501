// Package dom 是 parser.Parser 的结构化实现：用 goquery 构建 DOM 再按选择器取值。
//
// 与 markup 的契约一致（同样的条目校验、同样的四类链接、同样的边界错误），
// 但对属性引号、大小写、换行等排版差异不敏感。
package dom

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/parser"
	"github.com/John-Robertt/coursedl/internal/parser/markup"
)

const (
	gallerySel   = "#course_inner_media_gallery, .course_inner_media_gallery"
	galleryEnd   = "#slide-bottom, .slide-bottom"
	listingSel   = ".medialisting"
	playlistSel  = "div#vid_playlist"
	relatedSel   = "div#vid_related"
	transcriptCt = "div#vid_transcript"
)

var (
	requiredSel = []string{".mediathumbnail", ".mediatext", ".mediatitle", ".medialink", "[href]", "[title]"}

	archiveLabel  = regexp.MustCompile(`(?i)\barchive\b`)
	subtitleLabel = regexp.MustCompile(`(?i)subtitle`)
)

// Parser 是 name=dom 的解析实现。
type Parser struct{}

var _ parser.Parser = Parser{}

func (Parser) Name() string { return "dom" }

func (Parser) ParseItems(page []byte, baseURL string) ([]domain.Item, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, 0, err
	}

	gallery := doc.Find(gallerySel).First()
	if gallery.Length() == 0 {
		return nil, 0, &parser.FieldError{Field: "items", Err: &parser.BoundaryNotFoundError{Which: "start", Marker: gallerySel}}
	}
	if doc.Find(galleryEnd).Length() == 0 {
		return nil, 0, &parser.FieldError{Field: "items", Err: &parser.BoundaryNotFoundError{Which: "end", Marker: galleryEnd}}
	}

	var (
		items   []domain.Item
		dropped int
	)
	gallery.Find(listingSel).Each(func(_ int, s *goquery.Selection) {
		for _, sel := range requiredSel {
			if s.Find(sel).Length() == 0 {
				dropped++
				return
			}
		}
		href, _ := s.Find("[href]").First().Attr("href")
		title, _ := s.Find("[title]").First().Attr("title")
		link, err := parser.ResolveURL(baseURL, href)
		if err != nil {
			link = ""
		}
		items = append(items, domain.Item{
			Seq:       markup.FirstNumber(title),
			Title:     title,
			DetailURL: link,
			Index:     len(items),
		})
	})
	return items, dropped, nil
}

func (Parser) ParseLinks(page []byte, pageURL string) (domain.ResourceLinks, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return domain.ResourceLinks{}, err
	}

	var links domain.ResourceLinks

	if links.Transcript, err = firstLink(doc, playlistSel, domain.KindTranscript, nil, pageURL); err != nil {
		return domain.ResourceLinks{}, err
	}
	if links.Notes, err = firstLink(doc, relatedSel, domain.KindNotes, nil, pageURL); err != nil {
		return domain.ResourceLinks{}, err
	}
	if links.Video, err = firstLink(doc, transcriptCt, domain.KindVideo, archiveLabel, pageURL); err != nil {
		return domain.ResourceLinks{}, err
	}
	if links.Subtitle, err = firstLink(doc, transcriptCt, domain.KindSubtitle, subtitleLabel, pageURL); err != nil {
		return domain.ResourceLinks{}, err
	}
	return links, nil
}

// firstLink 在 container 内取第一条链接。label 非空时只接受“前面紧挨着的文字”匹配 label 的链接；
// 容器里完全没有匹配 label 的文字时视为边界缺失。
func firstLink(doc *goquery.Document, container string, kind domain.ResourceKind, label *regexp.Regexp, pageURL string) (string, error) {
	ct := doc.Find(container).First()
	if ct.Length() == 0 {
		return "", &parser.FieldError{Field: string(kind), Err: &parser.BoundaryNotFoundError{Which: "start", Marker: container}}
	}

	if label == nil {
		href, _ := ct.Find("a[href]").First().Attr("href")
		return parser.ResolveURL(pageURL, href)
	}

	if !label.MatchString(ct.Text()) {
		return "", &parser.FieldError{Field: string(kind), Err: &parser.BoundaryNotFoundError{Which: "start", Marker: label.String()}}
	}
	var href string
	ct.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !label.MatchString(textBefore(a.Get(0))) {
			return true
		}
		href, _ = a.Attr("href")
		return false
	})
	return parser.ResolveURL(pageURL, href)
}

// textBefore 返回同一父节点内、n 之前且在上一个 <a> 之后的文字。
func textBefore(n *html.Node) string {
	if n.Parent == nil {
		return ""
	}
	var b strings.Builder
	for c := n.Parent.FirstChild; c != nil && c != n; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "a" {
			b.Reset()
			continue
		}
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
