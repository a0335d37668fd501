package markup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/parser"
)

const indexURL = "https://ocw.example.edu/courses/6-00/video-lectures/"

func intp(n int) *int { return &n }

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParser_ParseItems_Fixture(t *testing.T) {
	items, dropped, err := Parser{}.ParseItems(readFixture(t, "index.html"), indexURL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	want := []domain.Item{
		{Seq: intp(1), Title: "Lecture 1: Introduction & Goals", DetailURL: "https://ocw.example.edu/courses/6-00/video-lectures/lecture-1/", Index: 0},
		{Seq: intp(2), Title: "Lecture 2: Core Elements of a Program", DetailURL: "https://ocw.example.edu/courses/6-00/video-lectures/lecture-2/", Index: 1},
		{Seq: nil, Title: "Recitation: Review", DetailURL: "https://ocw.example.edu/courses/6-00/video-lectures/recitation/", Index: 2},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items 不符合预期 (-want +got):\n%s", diff)
	}
	// 首段（第一个条目之前）+ 缺少 mediatext 的残片。
	if dropped != 2 {
		t.Fatalf("期望 dropped=2，实际 %d", dropped)
	}
}

func TestParser_ParseItems_MissingGallery(t *testing.T) {
	_, _, err := Parser{}.ParseItems([]byte("<html><body>moved</body></html>"), indexURL)

	var be *parser.BoundaryNotFoundError
	if !errors.As(err, &be) || be.Which != "start" {
		t.Fatalf("期望起始边界缺失，实际 %v", err)
	}
}

func TestParseItems_SingleWellFormedItem(t *testing.T) {
	region := `<div class="medialisting"><div class="mediathumbnail"></div>` +
		`<div class="mediatext"><span class="mediatitle"></span>` +
		`<a class="medialink" href="/lec1" title="Lecture 1: Intro">x</a></div></div>`

	items, _ := ParseItems(region, "https://example.test/course/index.htm")

	want := []domain.Item{{Seq: intp(1), Title: "Lecture 1: Intro", DetailURL: "https://example.test/lec1"}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items 不符合预期 (-want +got):\n%s", diff)
	}
}

func TestParseItems_DropsFragmentsMissingAnyMarker(t *testing.T) {
	full := `mediathumbnail mediatext mediatitle medialink href="/a" title="Part 7"`
	markers := []string{"mediathumbnail", "mediatext", "mediatitle", "medialink"}

	for _, m := range markers {
		broken := strings.Replace(full, m, "xxx", 1)
		region := "MEDIALISTING" + full + "medialisting" + broken
		items, dropped := ParseItems(region, "https://example.test/")
		fragments := 3
		if len(items) != 1 {
			t.Fatalf("缺少 %s 时期望 1 个条目，实际 %d", m, len(items))
		}
		if len(items) >= fragments || dropped != fragments-len(items) {
			t.Fatalf("缺少 %s：items=%d dropped=%d fragments=%d", m, len(items), dropped, fragments)
		}
	}
}

func TestParseItems_AcceptsMissingLinkAndNumber(t *testing.T) {
	// href 出现在 class 名里但没有 href= 属性：标记校验通过、链接抽取失败。
	region := `medialisting mediathumbnail mediatext mediatitle medialink data-href title="Overview"`

	items, dropped := ParseItems(region, "https://example.test/")
	if dropped != 1 || len(items) != 1 {
		t.Fatalf("期望 1 个条目 + 1 个丢弃片段，实际 items=%d dropped=%d", len(items), dropped)
	}
	if items[0].Seq != nil {
		t.Fatalf("标题无数字时 Seq 应为 nil，实际 %d", *items[0].Seq)
	}
	if items[0].DetailURL != "" {
		t.Fatalf("无 href 时 DetailURL 应为空，实际 %q", items[0].DetailURL)
	}
	if items[0].Title != "Overview" {
		t.Fatalf("标题不符合预期：%q", items[0].Title)
	}
}

func TestExtractLink_QuotesAndBrackets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<a HREF = "/x/y.html">`, "/x/y.html"},
		{`<a href='/single'>`, "/single"},
		{`<a href="">`, ""},
		{`<a href="/a<b">`, ""},
		{`<a data-href="/attr">`, "/attr"},
		{`<a data-link="/no">`, ""},
		{`<a href="/first"><a href="/second">`, "/first"},
	}
	for _, tt := range tests {
		if got := ExtractLink(tt.in); got != tt.want {
			t.Errorf("ExtractLink(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstNumber(t *testing.T) {
	if n := FirstNumber("Lecture 12: Part 3"); n == nil || *n != 12 {
		t.Fatalf("期望 12，实际 %v", n)
	}
	if n := FirstNumber("Intro"); n != nil {
		t.Fatalf("期望 nil，实际 %d", *n)
	}
	if n := FirstNumber("L007"); n == nil || *n != 7 {
		t.Fatalf("期望 7，实际 %v", n)
	}
}
