// Package download 把单个资源 URL 流式写入本地文件。
package download

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/John-Robertt/coursedl/internal/infra/fsx"
	"github.com/John-Robertt/coursedl/internal/infra/httpx"
)

// ChunkSize 是每次读取/写入的块大小。
const ChunkSize = 64 * 1024

// Result 描述一次完成的下载。
type Result struct {
	Path  string
	Bytes int64
	MIME  string // 由首块内容嗅探；空文件为空串
}

// Download 以 ChunkSize 分块把 u 的内容写入 path（新建或截断）。
//
// 约束：
// - 不校验 Content-Length；读到 EOF 即完成
// - 失败时不清理已写入的部分文件
// - 响应流与文件句柄在所有路径上关闭
func Download(ctx context.Context, c *http.Client, u, path string, timeout time.Duration) (Result, error) {
	resp, err := httpx.Get(ctx, c, u, timeout)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	f, err := fsx.CreateTruncate(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	res := Result{Path: path}
	buf := make([]byte, ChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if res.Bytes == 0 {
				res.MIME = mimetype.Detect(buf[:n]).String()
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return res, werr
			}
			res.Bytes += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return res, rerr
		}
	}

	if err := f.Close(); err != nil {
		return res, err
	}
	return res, nil
}
