package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/coursedl/internal/app/run"
	"github.com/John-Robertt/coursedl/internal/config"
	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/infra/fsx"
	"github.com/John-Robertt/coursedl/internal/parser"
	"github.com/John-Robertt/coursedl/internal/parser/dom"
	"github.com/John-Robertt/coursedl/internal/parser/markup"
)

const (
	exitOK      = 0
	exitRunFail = 1
	exitUsage   = 2
)

// exitError 携带进程退出码；err 为 nil 时不再打印（已由日志输出）。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "错误：%v\n", ee.err)
		}
		if config.Code(ee.err) == config.ErrCodeMissingBase {
			fmt.Fprintln(stderr, "\n使用 \"coursedl --help\" 查看详细说明。")
		}
		return ee.code
	}
	// cobra 自身的参数解析错误（未知 flag、多余参数等）。
	fmt.Fprintf(stderr, "参数错误：%v\n\n使用 \"coursedl --help\" 查看详细说明。\n", err)
	return exitUsage
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "coursedl --base <url> [flags]",
		Short: "抓取课程索引页，按讲下载 transcript / notes / subtitle / video",
		Long: `coursedl 读取课程索引页，解析每一讲的详情页，并把四类资源下载到 <outdir>/<NN>/ 下。

配置优先级：flag > 环境变量（COURSEDL_ 前缀，例如 COURSEDL_WORKERS）> coursedl.yaml > 默认值。
单讲失败只记录日志与报告，不影响退出码；索引页抓取/解析失败退出码为 1，参数/配置错误为 2。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, cfgFile)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "配置文件路径（默认查找 ./coursedl.yaml 与 $XDG_CONFIG_HOME/coursedl/coursedl.yaml）")
	f.StringP("base", "b", "", "课程索引页 URL（必填）")
	f.StringP("outdir", "d", config.DefaultOutDir, "输出目录")
	f.StringP("loglevel", "l", config.DefaultLogLevel, "日志级别：debug|info|warning|error|critical")
	f.Int("workers", config.DefaultWorkers, "并发处理的讲数")
	f.Duration("timeout", config.DefaultTimeout, "单次网络操作无进展超时")
	f.String("parser", config.DefaultParser, "页面解析实现：regex|dom")
	f.String("proxy", "", "HTTP/SOCKS5 代理 URL（例如 http://127.0.0.1:7890）")
	f.Bool("dry-run", false, "只解析并规划文件，不建目录、不下载")
	f.String("report", "", "把运行报告以 JSON 写入该路径")
	f.String("cache", "", "详情页缓存目录（dry-run 只读）；为空则不缓存")

	cmd.AddCommand(newLogfilterCmd())
	return cmd
}

func newRegistry() (parser.Registry, error) {
	return parser.NewRegistry(markup.Parser{}, dom.Parser{})
}

func runFetch(cmd *cobra.Command, cfgFile string) error {
	stderr := cmd.ErrOrStderr()

	reg, err := newRegistry()
	if err != nil {
		return &exitError{code: exitRunFail, err: fmt.Errorf("初始化 parser registry 失败：%w", err)}
	}

	v, err := config.New(cfgFile)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: exitRunFail, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}
	eff, err := config.Load(v, cwd, reg.Names()...)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	logger := newLogger(stderr, eff.LogLevel)
	p, _ := reg.Get(eff.Parser)

	obs := newProgressLog(logger)
	rr, runErr := run.ExecuteWithObserver(cmd.Context(), eff, p, logger, obs)
	obs.Stop()

	if eff.ReportPath != "" {
		if err := writeReportFile(eff.ReportPath, rr); err != nil {
			logger.Error("write report failed", "path", eff.ReportPath, "err", err)
			if runErr == nil {
				return &exitError{code: exitRunFail}
			}
		} else {
			logger.Info("report written", "path", eff.ReportPath)
		}
	}

	if runErr != nil {
		logger.Error("run aborted", "err", runErr)
		return &exitError{code: exitRunFail}
	}
	emitSummary(stderr, rr)
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), b)
}

func emitSummary(w io.Writer, rr domain.RunReport) {
	s := rr.Summary
	fmt.Fprintf(w, "完成：items=%d ok=%d failed=%d dropped=%d files=%d size=%s\n",
		s.Items, s.Succeeded, s.Failed, s.Dropped, s.Files, humanize.Bytes(uint64(s.Bytes)),
	)
	if s.Failed == 0 {
		return
	}
	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed {
			continue
		}
		seq := "-"
		if it.Seq != nil {
			seq = fmt.Sprintf("%d", *it.Seq)
		}
		fmt.Fprintf(w, "  #%s %q %s: %s\n", seq, truncate(it.Title, 60), it.ErrorKind, truncate(it.ErrorMsg, 160))
	}
}
