package markup

import (
	"regexp"

	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/parser"
)

type bounds struct {
	Before Marker
	After  Marker
}

// containerLink 描述“在命名容器内取第一条链接”：
// 先切出 Outer 区间，若有 Inner 再在其中收窄一次，最后取首个 href。
type containerLink struct {
	Kind  domain.ResourceKind
	Outer bounds
	Inner *bounds
}

func containerStart(id string) Marker {
	return Pattern(`<div[^<>]+\bid\s*=\s*['"]` + regexp.QuoteMeta(id) + `['"]`)
}

var (
	divEnd   = Pattern(`</div>`)
	subtitle = Literal("Subtitle")

	detailLinks = []containerLink{
		{
			Kind:  domain.KindTranscript,
			Outer: bounds{containerStart("vid_playlist"), divEnd},
		},
		{
			Kind:  domain.KindNotes,
			Outer: bounds{containerStart("vid_related"), divEnd},
		},
		{
			Kind:  domain.KindVideo,
			Outer: bounds{containerStart("vid_transcript"), subtitle},
			Inner: &bounds{Pattern(`\bArchive\b`), Pattern(`</`)},
		},
		{
			Kind:  domain.KindSubtitle,
			Outer: bounds{containerStart("vid_transcript"), divEnd},
			Inner: &bounds{subtitle, Pattern(`</a>`)},
		},
	}
)

func (c containerLink) extract(text, pageURL string) (string, error) {
	region, err := ExtractBetween(c.Outer.Before, c.Outer.After, text)
	if err != nil {
		return "", &parser.FieldError{Field: string(c.Kind), Err: err}
	}
	if c.Inner != nil {
		region, err = ExtractBetween(c.Inner.Before, c.Inner.After, region)
		if err != nil {
			return "", &parser.FieldError{Field: string(c.Kind), Err: err}
		}
	}
	return parser.ResolveURL(pageURL, ExtractLink(region))
}
