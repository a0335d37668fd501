package naming

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/coursedl/internal/domain"
)

// 画质后缀：下划线 + 数字 + k/m/g，只在名字末尾剥离。
var qualityRE = regexp.MustCompile(`(?i)_[0-9]+[kmg]$`)

// URLFileName 返回 URL path 的最后一段（含扩展名，保持原样）。
func URLFileName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// URLExt 返回 URL 文件名的扩展名（含点）；没有扩展名时返回空串。
func URLExt(raw string) string {
	return path.Ext(URLFileName(raw))
}

// StripQuality 去掉 name 末尾的画质后缀（例如 lecture01_2000k => lecture01）。
// 对已经没有后缀的名字是 no-op，因此幂等。
func StripQuality(name string) string {
	return qualityRE.ReplaceAllString(name, "")
}

// DeriveBasename 计算条目的规范 stem：优先 video URL，缺失回退 notes URL。
// 两者都缺失（或 path 为空）时返回 false，由调用方决定兜底名。
func DeriveBasename(videoURL, notesURL string) (string, bool) {
	for _, u := range []string{videoURL, notesURL} {
		if strings.TrimSpace(u) == "" {
			continue
		}
		name := URLFileName(u)
		stem := strings.TrimSuffix(name, path.Ext(name))
		stem = StripQuality(stem)
		if stem != "" {
			return stem, true
		}
	}
	return "", false
}

// FallbackBasename 是 video/notes 都缺失时的 stem：lecture-<目录名>。
func FallbackBasename(it domain.Item) string {
	return "lecture-" + it.DirName()
}

// FileName 返回某类资源在条目目录内的文件名。
//
//	video      => URL 原始文件名
//	transcript => <basename>-tr<ext>
//	notes      => <basename>-notes<ext>
//	subtitle   => <basename><ext>
func FileName(kind domain.ResourceKind, basename, resourceURL string) string {
	ext := URLExt(resourceURL)
	switch kind {
	case domain.KindVideo:
		if name := URLFileName(resourceURL); name != "" {
			return name
		}
		return basename + ext
	case domain.KindTranscript:
		return basename + "-tr" + ext
	case domain.KindNotes:
		return basename + "-notes" + ext
	case domain.KindSubtitle:
		return basename + ext
	default:
		return basename + "-" + string(kind) + ext
	}
}

// TargetPath 拼出 <outDir>/<条目目录>/<文件名>。
func TargetPath(outDir string, it domain.Item, kind domain.ResourceKind, basename, resourceURL string) string {
	return filepath.Join(outDir, it.DirName(), FileName(kind, basename, resourceURL))
}
