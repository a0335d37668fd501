package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/coursedl/internal/logfilter"
)

func newLogfilterCmd() *cobra.Command {
	var (
		inputFile string
		include   []string
		exclude   []string
	)

	cmd := &cobra.Command{
		Use:   "logfilter --input_file <path> [--include P]... [--exclude P]...",
		Short: "按正则过滤带时间戳头部的多行日志块，命中的块原样输出到 stdout",
		Long: `logfilter 把输入按 "DD-DD-DD DD:DD:DD =WORD REPORT====" 头部行切分为块。

给出 --include 时只看 include：块匹配任一 include 即输出，此时 --exclude 被忽略。
没有 --include 时，块不匹配任何 --exclude 才输出。模式不区分大小写，^/$ 按行匹配。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(inputFile) == "" {
				return &exitError{code: exitUsage, err: fmt.Errorf("缺少 --input_file")}
			}
			f, err := logfilter.Compile(include, exclude)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}

			var in io.Reader = cmd.InOrStdin()
			if inputFile != "-" {
				fh, err := os.Open(inputFile)
				if err != nil {
					return &exitError{code: exitRunFail, err: err}
				}
				defer fh.Close()
				in = fh
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			if _, err := f.Run(in, out); err != nil {
				_ = out.Flush()
				return &exitError{code: exitRunFail, err: err}
			}
			if err := out.Flush(); err != nil {
				return &exitError{code: exitRunFail, err: err}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&inputFile, "input_file", "", "输入日志文件；- 表示 stdin")
	fl.StringArrayVar(&include, "include", nil, "保留匹配该模式的块（可重复；给出后忽略 --exclude）")
	fl.StringArrayVar(&exclude, "exclude", nil, "丢弃匹配该模式的块（可重复）")
	return cmd
}
