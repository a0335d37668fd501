package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	FileStatusPlanned    = "planned"
	FileStatusDownloaded = "downloaded"
	FileStatusSkipped    = "skipped"
	FileStatusFailed     = "failed"
)

const (
	ErrKindNetwork     = "network"
	ErrKindBoundary    = "boundary_not_found"
	ErrKindFilesystem  = "filesystem"
	ErrKindMissingLink = "missing_link"
	ErrKindInternal    = "internal"
)

// RunReport 是一次抓取运行的结构化结果（--report 输出的 JSON）。
type RunReport struct {
	BaseURL  string `json:"base_url"`
	FinalURL string `json:"final_url"`
	OutDir   string `json:"out_dir"`
	Parser   string `json:"parser"`
	DryRun   bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Items     int   `json:"items"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Dropped   int   `json:"dropped"` // 缺少必需标记被丢弃的片段数
	Files     int   `json:"files"`
	Bytes     int64 `json:"bytes"`
}

// ItemResult 是单个条目的执行结果：成功带文件列表，失败带原因。
type ItemResult struct {
	Seq       *int   `json:"seq"`
	Title     string `json:"title"`
	DetailURL string `json:"detail_url"`
	Dir       string `json:"dir"`
	Basename  string `json:"basename"`

	Status    string `json:"status"`
	ErrorKind string `json:"error_kind"`
	ErrorMsg  string `json:"error_msg"`

	Files []FileResult `json:"files"`
}

type FileResult struct {
	Kind   ResourceKind `json:"kind"`
	URL    string       `json:"url"`
	Path   string       `json:"path"`
	Bytes  int64        `json:"bytes"`
	MIME   string       `json:"mime"`
	Status string       `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 seq 升序；seq 缺失的条目排在最后
// 3) summary 由 items 重新计算（Dropped 由调用方填写，这里保留）
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i].Seq, r.Items[j].Seq
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})

	s := ReportSummary{Items: len(r.Items), Dropped: r.Summary.Dropped}
	for _, it := range r.Items {
		switch it.Status {
		case StatusOK:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		}
		for _, f := range it.Files {
			if f.Status != FileStatusDownloaded {
				continue
			}
			s.Files++
			s.Bytes += f.Bytes
		}
	}
	r.Summary = s
}

// MarshalJSON 保证 items 在没有条目时输出 [] 而不是 null。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}
