package run

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/coursedl/internal/config"
	"github.com/John-Robertt/coursedl/internal/domain"
	"github.com/John-Robertt/coursedl/internal/download"
	"github.com/John-Robertt/coursedl/internal/infra/cache"
	"github.com/John-Robertt/coursedl/internal/infra/fsx"
	"github.com/John-Robertt/coursedl/internal/infra/httpx"
	"github.com/John-Robertt/coursedl/internal/naming"
	"github.com/John-Robertt/coursedl/internal/parser"
)

// Execute 执行一次抓取，返回 RunReport。
//
// 索引页抓取/切片失败时返回 *Error，此时没有条目被处理；
// 条目级失败只体现在 RunReport 中（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, p parser.Parser, logger *slog.Logger) (domain.RunReport, error) {
	return ExecuteWithObserver(ctx, eff, p, logger, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, p parser.Parser, logger *slog.Logger, obs Observer) (domain.RunReport, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		BaseURL:   eff.BaseURL,
		OutDir:    eff.OutDir,
		Parser:    p.Name(),
		DryRun:    eff.DryRun,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 32),
	}
	finish := func(err error) (domain.RunReport, error) {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, err
	}

	client, err := httpx.NewClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		return finish(&Error{Stage: "client", URL: eff.ProxyURL, Err: err})
	}

	r := &runner{
		eff:    eff,
		parser: p,
		client: client,
		store:  cache.New(eff.CacheDir, eff.DryRun),
	}

	indexStarted := time.Now()
	finalURL, page, err := httpx.Fetch(ctx, client, eff.BaseURL, eff.Timeout)
	if err != nil {
		return finish(&Error{Stage: "fetch", URL: eff.BaseURL, Err: err})
	}
	rr.FinalURL = finalURL
	logger.Debug("index page fetched", "url", finalURL, "size", humanize.Bytes(uint64(len(page))))

	items, dropped, err := p.ParseItems(page, finalURL)
	if err != nil {
		return finish(&Error{Stage: "parse", URL: finalURL, Err: err})
	}
	rr.Summary.Dropped = dropped
	if dropped > 0 {
		logger.Debug("dropped malformed listings", "count", dropped)
	}
	logger.Info("index parsed", "items", len(items), "parser", p.Name())

	if obs != nil {
		obs.OnPhaseDone("index", map[string]any{
			"items":   len(items),
			"dropped": dropped,
		}, time.Since(indexStarted))
	}

	// 执行阶段：按条目并发（worker pool），条目内串行。
	workers := eff.Workers
	if workers < 1 {
		workers = 1
	}
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(items),
		}, 0)
	}

	type execResult struct {
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan domain.Item)
	results := make(chan execResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		wlog := logger.With("worker", i)
		go func() {
			defer wg.Done()
			for it := range jobs {
				oneStarted := time.Now()
				res := r.execOne(ctx, it, wlog)
				results <- execResult{res: res, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, it := range items {
			jobs <- it
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for er := range results {
		done++
		rr.Items = append(rr.Items, er.res)
		if obs != nil {
			obs.OnItemDone(done, len(items), er.res, er.dur)
		}
	}

	return finish(nil)
}

// runner 是 worker 之间共享的只读依赖。
type runner struct {
	eff    config.EffectiveConfig
	parser parser.Parser
	client *http.Client
	store  cache.Store
}

// execOne 处理单个条目：resolve → 命名 → 建目录 → 依次下载。
// 任何一步失败都在这里收口为 failed 的 ItemResult，并且只记录一条 error 日志。
func (r *runner) execOne(ctx context.Context, it domain.Item, wlog *slog.Logger) domain.ItemResult {
	eff := r.eff
	res := domain.ItemResult{
		Seq:       it.Seq,
		Title:     it.Title,
		DetailURL: it.DetailURL,
		Dir:       filepath.Join(eff.OutDir, it.DirName()),
		Status:    domain.StatusOK, // 失败时覆盖
		Files:     make([]domain.FileResult, 0, len(domain.DownloadOrder)),
	}
	log := wlog.With(itemAttrs(it)...)

	fail := func(err error) domain.ItemResult {
		res.Status = domain.StatusFailed
		res.ErrorKind = classify(err)
		res.ErrorMsg = err.Error()
		log.Error("item failed", "kind", res.ErrorKind, "err", err)
		return res
	}

	if it.DetailURL == "" {
		return fail(ErrMissingDetailLink)
	}

	links, err := r.resolve(ctx, it.DetailURL, log)
	if err != nil {
		return fail(err)
	}

	basename, ok := naming.DeriveBasename(links.Video, links.Notes)
	if !ok {
		basename = naming.FallbackBasename(it)
		log.Warn("no video or notes link, using fallback basename", "basename", basename)
	}
	res.Basename = basename

	if !eff.DryRun {
		if err := fsx.EnsureDir(res.Dir); err != nil {
			return fail(err)
		}
	}

	var total int64
	for _, kind := range domain.DownloadOrder {
		u := links.Get(kind)
		if u == "" {
			log.Warn("resource link missing", "kind", kind)
			res.Files = append(res.Files, domain.FileResult{Kind: kind, Status: domain.FileStatusSkipped})
			continue
		}

		fr := domain.FileResult{
			Kind:   kind,
			URL:    u,
			Path:   naming.TargetPath(eff.OutDir, it, kind, basename, u),
			Status: domain.FileStatusPlanned,
		}
		if eff.DryRun {
			res.Files = append(res.Files, fr)
			continue
		}

		dr, err := download.Download(ctx, r.client, u, fr.Path, eff.Timeout)
		fr.Bytes = dr.Bytes
		fr.MIME = dr.MIME
		if err != nil {
			fr.Status = domain.FileStatusFailed
			res.Files = append(res.Files, fr)
			return fail(&ResourceError{Kind: kind, URL: u, Err: err})
		}
		fr.Status = domain.FileStatusDownloaded
		res.Files = append(res.Files, fr)
		total += dr.Bytes
		log.Debug("downloaded", "kind", kind, "path", fr.Path, "size", humanize.Bytes(uint64(dr.Bytes)), "mime", dr.MIME)
	}

	log.Info("item done", "dir", res.Dir, "basename", basename, "size", humanize.Bytes(uint64(total)))
	return res
}

// resolve 抓取详情页并抽取四类资源链接（相对链接以详情页最终 URL 解析）。
// 启用缓存时先读缓存；缓存读写失败只记 warn，不影响条目。
func (r *runner) resolve(ctx context.Context, detailURL string, log *slog.Logger) (domain.ResourceLinks, error) {
	cached, ok, err := r.store.ReadPage(detailURL)
	if err != nil {
		log.Warn("read page cache failed", "err", err)
	}
	if ok {
		log.Debug("detail page from cache", "final_url", cached.FinalURL)
		return r.parser.ParseLinks(cached.Body, cached.FinalURL)
	}

	pageURL, page, err := httpx.Fetch(ctx, r.client, detailURL, r.eff.Timeout)
	if err != nil {
		return domain.ResourceLinks{}, err
	}
	links, err := r.parser.ParseLinks(page, pageURL)
	if err != nil {
		return domain.ResourceLinks{}, err
	}

	// 只缓存能解析的页面，避免把站点的错误页固化下来。
	if r.store.Enabled() && !r.store.ReadOnly {
		if err := r.store.WritePage(cache.Page{URL: detailURL, FinalURL: pageURL, Body: page}); err != nil {
			log.Warn("write page cache failed", "err", err)
		}
	}
	return links, nil
}

func itemAttrs(it domain.Item) []any {
	var seq any = "-"
	if it.Seq != nil {
		seq = *it.Seq
	}
	return []any{"seq", seq, "title", it.Title, "url", it.DetailURL}
}
