package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomic(dir, "report.json", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 再写一次：覆盖语义。
	if err := WriteFileAtomic(dir, "report.json", []byte("world")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "world" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.txt", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rename 失败后目录应为空，实际 %d 项", len(entries))
	}
}

func TestEnsureDir_CreatesNestedAndIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "01")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("重复调用不应失败：%v", err)
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		t.Fatalf("期望目录存在：fi=%v err=%v", fi, err)
	}
}

func TestEnsureDir_FileConflict(t *testing.T) {
	p := filepath.Join(t.TempDir(), "01")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	err := EnsureDir(p)
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestCreateTruncate_DirConflictAndTruncate(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.mp4"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if _, err := CreateTruncate(filepath.Join(dir, "a.mp4")); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}

	p := filepath.Join(dir, "b.pdf")
	if err := os.WriteFile(p, []byte("old content"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	f, err := CreateTruncate(p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_ = f.Close()
	fi, _ := os.Stat(p)
	if fi.Size() != 0 {
		t.Fatalf("期望截断为 0 字节，实际 %d", fi.Size())
	}
}
