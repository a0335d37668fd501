package run

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/coursedl/internal/config"
)

// fakeSite 是一个最小课程站点：索引页、详情页、资源文件都挂在同一个 httptest.Server 上。
type fakeSite struct {
	srv *httptest.Server

	mu      sync.Mutex
	index   string
	details map[string]string // path => html
	files   map[string][]byte // path => body
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	s := &fakeSite{details: map[string]string{}, files: map[string][]byte{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.URL.Path == "/courses/6-00/":
		_, _ = w.Write([]byte(s.index))
	case s.details[r.URL.Path] != "":
		_, _ = w.Write([]byte(s.details[r.URL.Path]))
	case s.files[r.URL.Path] != nil:
		_, _ = w.Write(s.files[r.URL.Path])
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeSite) baseURL() string { return s.srv.URL + "/courses/6-00/" }

func (s *fakeSite) setIndex(listings ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = `<html><body><div id="course_inner_media_gallery">` + strings.Join(listings, "\n") +
		`</div><div class="slide-bottom"></div></body></html>`
}

func (s *fakeSite) setDetail(path, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[path] = html
}

func (s *fakeSite) setFile(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = body
}

// addLecture 注册第 n 讲的详情页与四个资源文件（lectureNN_2000k.mp4 / lectureNN.pdf / tNN.pdf / lectureNN.srt）。
func (s *fakeSite) addLecture(n int) string {
	detail := fmt.Sprintf("/lec%d", n)
	stem := fmt.Sprintf("lecture%02d", n)
	tr := fmt.Sprintf("/files/t%02d.pdf", n)
	notes := "/files/" + stem + ".pdf"
	video := "/files/" + stem + "_2000k.mp4"
	sub := "/files/" + stem + ".srt"

	s.setDetail(detail, detailPage(tr, notes, video, sub))
	s.setFile(tr, []byte("%PDF-1.4 transcript "+stem))
	s.setFile(notes, []byte("%PDF-1.4 notes "+stem))
	s.setFile(video, bytes.Repeat([]byte{0, 1, 2, 3}, 40_000))
	s.setFile(sub, []byte("1\n00:00:01,000 --> 00:00:02,000\nhello "+stem+"\n"))
	return listing(detail, fmt.Sprintf("Lecture %d: Topic %d", n, n))
}

func listing(href, title string) string {
	return fmt.Sprintf(`<div class="medialisting">
  <div class="mediathumbnail"><a href="%s" title="%s"><img src="/t.jpg" alt=""></a></div>
  <div class="mediatext"><span class="mediatitle">x</span> <a class="medialink" href="%s">go</a></div>
</div>`, href, title, href)
}

// detailPage 生成详情页；参数为空串时对应区块里不放链接。
func detailPage(tr, notes, video, sub string) string {
	a := func(href, text string) string {
		if href == "" {
			return "<a>" + text + "</a>"
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, href, text)
	}
	return `<html><body>
<div id="vid_playlist"><p>` + a(tr, "Transcript") + `</p></div>
<div id="vid_related"><p>` + a(notes, "Notes") + `</p></div>
<div id="vid_transcript">
  <p>Download from Internet Archive: ` + a(video, "MP4") + `</p>
  <p>Subtitle: ` + a(sub, "SRT") + `</p>
</div>
</body></html>`
}

// syncBuffer 让并发写日志与测试读取互不干扰。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func errorLines(logs string) []string {
	var out []string
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "level=ERROR") {
			out = append(out, line)
		}
	}
	return out
}

func testConfig(base, outDir string) config.EffectiveConfig {
	return config.EffectiveConfig{
		BaseURL: base,
		OutDir:  outDir,
		Workers: 3,
		Timeout: 5 * time.Second,
		Parser:  "regex",
	}
}
