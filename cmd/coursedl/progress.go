package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/coursedl/internal/app/run"
	"github.com/John-Robertt/coursedl/internal/config"
	"github.com/John-Robertt/coursedl/internal/domain"
)

var _ run.Observer = (*progressLog)(nil)

// progressLog 把 run 的事件写成 slog 日志。
//
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：ticker 定期检查，距上一行输出超过 keepaliveThreshold 才补一行进度
type progressLog struct {
	log *slog.Logger

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	fail    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressLog(log *slog.Logger) *progressLog {
	return &progressLog{
		log:                log,
		keepaliveThreshold: 15 * time.Second,
		tickerInterval:     5 * time.Second,
	}
}

func (p *progressLog) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	mode := "download"
	if eff.DryRun {
		mode = "dry-run"
	}
	cfgFile := eff.ConfigFile
	if cfgFile == "" {
		cfgFile = "-"
	}
	p.log.Info("coursedl run",
		"mode", mode,
		"base", eff.BaseURL,
		"outdir", eff.OutDir,
		"parser", eff.Parser,
		"workers", eff.Workers,
		"timeout", eff.Timeout,
		"proxy", formatProxy(eff.ProxyURL),
		"config", cfgFile,
	)
	p.lastPrinted = time.Now()
}

func (p *progressLog) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "index":
		p.log.Info("phase index",
			"items", intField(fields, "items"),
			"dropped", intField(fields, "dropped"),
			"elapsed", formatShortDuration(dur),
		)
	case "exec":
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total_items")
		p.log.Info("phase exec", "workers", p.workers, "total_items", p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		p.log.Info("phase "+name, "elapsed", formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressLog) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx/total 由 run 层给出；这里同时维护自己的计数，供 keepalive 使用。
	p.done = idx
	p.total = total

	status := "OK"
	if res.Status == domain.StatusFailed {
		status = "FAIL"
		p.fail++
	} else {
		p.ok++
	}

	p.log.Info("progress",
		"done", fmt.Sprintf("%d/%d", idx, total),
		"status", status,
		"title", truncate(res.Title, 80),
		"elapsed", formatShortDuration(dur),
	)
	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束后又冒出 keepalive。
	if p.done >= p.total {
		p.stopLocked()
	}
}

// Stop 停止 keepalive（幂等）。索引页失败时 exec 阶段不会开始，也可以安全调用。
func (p *progressLog) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *progressLog) stopLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressLog) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 15 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					active := p.workers
					if remain := p.total - p.done; remain < active {
						active = remain
					}
					p.log.Info("still running",
						"done", fmt.Sprintf("%d/%d", p.done, p.total),
						"ok", p.ok,
						"fail", p.fail,
						"active", active,
						"elapsed", formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// formatProxy 只展示 scheme/host 与是否带认证，不把密码写进日志。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("%s://%s (auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按字符（rune）截断，超过 limit 时以 "..." 结尾；limit 也按字符计。
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
