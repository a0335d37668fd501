package run

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/infra/fsx"
	"github.com/John-Robertt/coursedl/internal/infra/httpx"
	"github.com/John-Robertt/coursedl/internal/parser"
)

// ErrMissingDetailLink 表示索引页条目没有可用的详情页链接。
var ErrMissingDetailLink = errors.New("条目缺少详情页链接")

// Error 是整次运行的致命错误：索引页抓取或切片失败，没有任何条目被处理。
type Error struct {
	Stage string // fetch | parse | client
	URL   string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "run error"
	}
	return fmt.Sprintf("%s 失败（%s）：%v", e.Stage, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ResourceError 给下载失败补上资源种类。
type ResourceError struct {
	Kind domain.ResourceKind
	URL  string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("下载 %s 失败（%s）：%v", e.Kind, e.URL, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// classify 把条目级错误映射为报告里的 error_kind。
func classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingDetailLink) {
		return domain.ErrKindMissingLink
	}

	var ne *httpx.NetworkError
	if errors.As(err, &ne) {
		return domain.ErrKindNetwork
	}
	var be *parser.BoundaryNotFoundError
	if errors.As(err, &be) {
		return domain.ErrKindBoundary
	}
	if fsx.IsPathTypeConflict(err) || fsx.IsCrossDevice(err) {
		return domain.ErrKindFilesystem
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return domain.ErrKindFilesystem
	}
	return domain.ErrKindInternal
}
