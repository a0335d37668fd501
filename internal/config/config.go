package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingBase 表示 flag / 环境变量 / 配置文件都没有给出 base。
	ErrCodeMissingBase = "config_missing_base"
)

const (
	DefaultOutDir   = "."
	DefaultWorkers  = 5
	DefaultTimeout  = 60 * time.Second
	DefaultParser   = "regex"
	DefaultLogLevel = "info"

	// MaxWorkers 是 workers 的上限；超出截断。
	MaxWorkers = 64

	// EnvPrefix 是环境变量前缀，例如 COURSEDL_WORKERS。
	EnvPrefix = "COURSEDL"
)

// 配置键。flag 名中的 '-' 对应键中的 '_'。
const (
	KeyBase     = "base"
	KeyOutDir   = "outdir"
	KeyLogLevel = "loglevel"
	KeyWorkers  = "workers"
	KeyTimeout  = "timeout"
	KeyParser   = "parser"
	KeyProxy    = "proxy"
	KeyDryRun   = "dry_run"
	KeyReport   = "report"
	KeyCache    = "cache"
)

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	BaseURL  string
	OutDir   string // 绝对路径
	LogLevel slog.Level

	Workers  int
	Timeout  time.Duration
	Parser   string // 小写
	ProxyURL string

	DryRun     bool
	ReportPath string // 空表示不写报告
	CacheDir   string // 详情页缓存目录；空表示关闭

	// ConfigFile 是实际读取到的配置文件；没有读到为空。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingBase:
		return fmt.Sprintf("%s：缺少 --base（或环境变量 %s_BASE / 配置文件中的 base）", e.Code, EnvPrefix)
	case ErrCodeInvalid:
		if e.Path != "" && e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// SearchDirs 是未指定 --config 时查找 coursedl.yaml 的目录（按顺序）。
func SearchDirs() []string {
	return []string{".", filepath.Join(xdg.ConfigHome, "coursedl")}
}

// New 构造 viper 实例：默认值 + 环境变量 + 配置文件。
//
// cfgFile 非空时必须存在且可解析；为空时在 SearchDirs 中查找 coursedl.yaml，找不到不算错误。
// 配置文件存在但解析失败一律返回 *Error（不静默回退默认值）。
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(cfgFile) != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("coursedl")
		v.SetConfigType("yaml")
		for _, d := range SearchDirs() {
			v.AddConfigPath(d)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return v, nil
		}
		return nil, &Error{Code: ErrCodeInvalid, Path: cfgFile, Err: err}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutDir, DefaultOutDir)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyParser, DefaultParser)
	v.SetDefault(KeyDryRun, false)
}

// BindFlags 把 fs 中与配置键同名的 flag 绑定到 v，使显式给出的 flag 覆盖环境变量与配置文件。
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case KeyBase, KeyOutDir, KeyLogLevel, KeyWorkers, KeyTimeout, KeyParser, KeyProxy, KeyDryRun, KeyReport, KeyCache:
			err = v.BindPFlag(key, f)
		}
	})
	return err
}

// Load 读取 v 的合并结果并校验。parsers 非空时 parser 必须在其中（不区分大小写）。
func Load(v *viper.Viper, cwd string, parsers ...string) (EffectiveConfig, error) {
	cfgFile := v.ConfigFileUsed()
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgFile, Err: err}
	}

	base := strings.TrimSpace(v.GetString(KeyBase))
	if base == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingBase, Path: cfgFile}
	}
	if err := validateHTTPURL(base); err != nil {
		return EffectiveConfig{}, invalid(fmt.Errorf("base 无效：%w", err))
	}

	level, err := ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	workers := v.GetInt(KeyWorkers)
	if workers < 1 {
		return EffectiveConfig{}, invalid(fmt.Errorf("workers 必须 >= 1，实际 %d", workers))
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	timeout, err := parseDuration(v.GetString(KeyTimeout))
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	parser := strings.ToLower(strings.TrimSpace(v.GetString(KeyParser)))
	if len(parsers) > 0 && !contains(parsers, parser) {
		return EffectiveConfig{}, invalid(fmt.Errorf("parser 只能是 %s，实际是 %q", strings.Join(parsers, " / "), parser))
	}

	proxyURL := strings.TrimSpace(v.GetString(KeyProxy))
	if proxyURL != "" {
		if err := validateProxyURL(proxyURL); err != nil {
			return EffectiveConfig{}, invalid(fmt.Errorf("proxy 无效：%w", err))
		}
	}

	outDir := v.GetString(KeyOutDir)
	if strings.TrimSpace(outDir) == "" {
		outDir = DefaultOutDir
	}

	report := strings.TrimSpace(v.GetString(KeyReport))
	if report != "" {
		report = absCleanFrom(cwd, report)
	}
	cacheDir := strings.TrimSpace(v.GetString(KeyCache))
	if cacheDir != "" {
		cacheDir = absCleanFrom(cwd, cacheDir)
	}

	return EffectiveConfig{
		BaseURL:    base,
		OutDir:     absCleanFrom(cwd, outDir),
		LogLevel:   level,
		Workers:    workers,
		Timeout:    timeout,
		Parser:     parser,
		ProxyURL:   proxyURL,
		DryRun:     v.GetBool(KeyDryRun),
		ReportPath: report,
		CacheDir:   cacheDir,
		ConfigFile: cfgFile,
	}, nil
}

// ParseLevel 把 --loglevel 映射到 slog.Level（不区分大小写）。
// critical 与 fatal 没有对应的 slog 级别，都按 error 处理。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "critical", "fatal":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("loglevel 只能是 debug/info/warning/error/critical，实际是 %q", s)
	}
}

// parseDuration 接受 Go duration（"90s"、"2m"）或纯数字秒（"30"）。
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	d, err := time.ParseDuration(s)
	if err != nil {
		n, e := strconv.Atoi(s)
		if e != nil {
			return 0, fmt.Errorf("timeout 无效：%q", s)
		}
		d = time.Duration(n) * time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout 必须 > 0，实际 %s", d)
	}
	return d, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", raw)
	}
	return nil
}

func validateProxyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("必须包含 scheme 与 host：%q", raw)
	}
	return nil
}

func contains(names []string, s string) bool {
	for _, n := range names {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	return false
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	}
	return filepath.Clean(filepath.Join(base, p))
}
