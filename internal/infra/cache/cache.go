package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/John-Robertt/coursedl/internal/infra/fsx"
)

// Store 提供 <root>/pages/ 下的详情页缓存读写。
//
// 约束：
// - Root 为空：缓存关闭，读总是未命中，写是 no-op
// - dry-run：只允许读（ReadOnly=true）
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

// Page 是一条缓存记录：页面 body 与抓取时的最终 URL（相对链接要按它解析）。
type Page struct {
	URL       string    `json:"url"`
	FinalURL  string    `json:"final_url"`
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"-"`
}

func New(root string, readOnly bool) Store {
	root = strings.TrimSpace(root)
	if root != "" {
		root = filepath.Clean(root)
	}
	return Store{Root: root, ReadOnly: readOnly}
}

func (s Store) Enabled() bool { return s.Root != "" }

// PagePath 返回 URL 对应缓存文件的路径（不含扩展名）：<root>/pages/<host>/<sha1(url)>。
func (s Store) PagePath(pageURL string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("cache 未启用")
	}
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", err
	}
	host, err := cleanHost(u.Host)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(u.String()))
	return filepath.Join(s.Root, "pages", host, hex.EncodeToString(sum[:])), nil
}

// ReadPage 读取缓存；未启用或未命中时 ok=false。元数据损坏视为未命中。
func (s Store) ReadPage(pageURL string) (Page, bool, error) {
	if !s.Enabled() {
		return Page{}, false, nil
	}
	base, err := s.PagePath(pageURL)
	if err != nil {
		return Page{}, false, err
	}

	meta, err := os.ReadFile(base + ".json")
	if err != nil {
		if os.IsNotExist(err) {
			return Page{}, false, nil
		}
		return Page{}, false, err
	}
	var p Page
	if err := json.Unmarshal(meta, &p); err != nil || p.FinalURL == "" {
		return Page{}, false, nil
	}

	body, err := os.ReadFile(base + ".html")
	if err != nil {
		if os.IsNotExist(err) {
			return Page{}, false, nil
		}
		return Page{}, false, err
	}
	p.Body = body
	return p, true, nil
}

// WritePage 先写 body 再写元数据；元数据存在即表示记录完整。
func (s Store) WritePage(p Page) error {
	if !s.Enabled() {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	base, err := s.PagePath(p.URL)
	if err != nil {
		return err
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now()
	}
	p.FetchedAt = p.FetchedAt.UTC()

	meta, err := json.Marshal(p)
	if err != nil {
		return err
	}
	dir, name := filepath.Split(base)
	if err := fsx.WriteFileAtomic(dir, name+".html", p.Body); err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name+".json", meta)
}

var hostRE = regexp.MustCompile(`^[a-z0-9._-]+$`)

func cleanHost(h string) (string, error) {
	h = strings.ToLower(strings.TrimSpace(h))
	// 端口并入目录名，避免 ':' 出现在路径里。
	h = strings.ReplaceAll(h, ":", "_")
	if h == "" {
		return "", fmt.Errorf("URL 缺少 host")
	}
	if !hostRE.MatchString(h) || h == "." || h == ".." {
		return "", fmt.Errorf("非法 host：%q", h)
	}
	return h, nil
}
