package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:8080", time.Second)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
	if c.Timeout != 0 {
		t.Fatalf("不应设置总超时，实际 %v", c.Timeout)
	}
}

func TestNewClient_NoProxyKeepsDefault(t *testing.T) {
	c, err := NewClient("", 0)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.DisableKeepAlives {
		t.Fatalf("不期望禁用 keep-alive")
	}
	if tr.Base.ResponseHeaderTimeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %v，实际 %v", DefaultTimeout, tr.Base.ResponseHeaderTimeout)
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewClient("http://[::1", time.Second); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewClient("127.0.0.1:8080", time.Second); err == nil {
		t.Fatalf("缺少 scheme 时期望错误，但得到 nil")
	}
}

func TestFetch_FollowsRedirectAndReturnsFinalURL(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new/page", http.StatusFound)
		case "/new/page":
			gotUA = r.Header.Get("User-Agent")
			_, _ = io.WriteString(w, "hello")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient("", time.Second)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	final, body, err := Fetch(context.Background(), c, srv.URL+"/old", time.Second)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if final != srv.URL+"/new/page" {
		t.Fatalf("期望最终 URL 为重定向目标，实际 %q", final)
	}
	if string(body) != "hello" {
		t.Fatalf("body 不一致：%q", body)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Fatalf("期望使用 UA 池，实际 UA=%q", gotUA)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient("", time.Second)
	_, _, err := Fetch(context.Background(), c, srv.URL, time.Second)

	var ne *NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != http.StatusForbidden {
		t.Fatalf("期望 HTTP 403 的 NetworkError，实际 %T %v", err, err)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()

	c, _ := NewClient("", time.Second)
	_, _, err := Fetch(context.Background(), c, u, time.Second)

	var ne *NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != 0 {
		t.Fatalf("期望连接失败的 NetworkError，实际 %T %v", err, err)
	}
}

func TestGet_IdleTimeoutDuringBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		_, _ = io.WriteString(w, "abc")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := NewClient("", time.Second)
	resp, err := Get(context.Background(), c, srv.URL, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("期望空闲超时，实际 %v", err)
	}
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("期望 NetworkError，实际 %T", err)
	}
}
