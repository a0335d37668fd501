package domain

// ResourceKind 是详情页上可下载资源的种类。
type ResourceKind string

const (
	KindTranscript ResourceKind = "transcript"
	KindNotes      ResourceKind = "notes"
	KindVideo      ResourceKind = "video"
	KindSubtitle   ResourceKind = "subtitle"
)

// DownloadOrder 是条目内的串行下载顺序。
var DownloadOrder = []ResourceKind{KindTranscript, KindNotes, KindSubtitle, KindVideo}

// ResourceLinks 是某个详情页上的四类资源 URL；空串表示缺失。
type ResourceLinks struct {
	Transcript string
	Notes      string
	Video      string
	Subtitle   string
}

func (l ResourceLinks) Get(kind ResourceKind) string {
	switch kind {
	case KindTranscript:
		return l.Transcript
	case KindNotes:
		return l.Notes
	case KindVideo:
		return l.Video
	case KindSubtitle:
		return l.Subtitle
	default:
		return ""
	}
}
