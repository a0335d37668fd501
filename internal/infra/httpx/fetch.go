package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrTimeout 表示某次网络操作在 timeout 内没有任何进展。
var ErrTimeout = errors.New("网络操作超时")

// NetworkError 覆盖超时、连接失败、非 2xx 状态码三种情况。
// StatusCode 仅在服务端返回了非 2xx 时非零。
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("请求 %s 失败：%v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Response 是 Get 的结果。Body 带空闲超时保护，调用方必须 Close。
type Response struct {
	FinalURL string // 跟随重定向之后的 URL
	Body     io.ReadCloser
}

// Get 发起一次 GET，返回最终 URL 与流式 body。
//
// timeout 是“无进展”超时：从发起请求到收到响应头、以及 body 相邻两次读取之间，
// 任何一段超过 timeout 都会中止连接。
func Get(ctx context.Context, c *http.Client, u string, timeout time.Duration) (*Response, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	stop := func() {
		timer.Stop()
		cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		stop()
		return nil, &NetworkError{URL: u, Err: err}
	}
	resp, err := c.Do(req)
	if err != nil {
		stop()
		if timedOut.Load() {
			err = fmt.Errorf("%w：%v", ErrTimeout, err)
		}
		return nil, &NetworkError{URL: u, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		stop()
		return nil, &NetworkError{URL: u, StatusCode: resp.StatusCode}
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		FinalURL: final,
		Body: &idleBody{
			rc:       resp.Body,
			url:      final,
			timer:    timer,
			timeout:  timeout,
			timedOut: &timedOut,
			stop:     stop,
		},
	}, nil
}

// Fetch 读取完整页面，返回 (最终 URL, body)。
func Fetch(ctx context.Context, c *http.Client, u string, timeout time.Duration) (string, []byte, error) {
	resp, err := Get(ctx, c, u, timeout)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	return resp.FinalURL, b, nil
}

type idleBody struct {
	rc       io.ReadCloser
	url      string
	timer    *time.Timer
	timeout  time.Duration
	timedOut *atomic.Bool
	stop     func()
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	if err != nil && err != io.EOF {
		if b.timedOut.Load() {
			err = fmt.Errorf("%w：%v", ErrTimeout, err)
		}
		return n, &NetworkError{URL: b.url, Err: err}
	}
	return n, err
}

func (b *idleBody) Close() error {
	err := b.rc.Close()
	b.stop()
	return err
}
