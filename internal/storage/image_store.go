package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"go-gin-auth-profile/pkg/utils"
)

var (
	ErrNotImage    = errors.New("file is not an image")
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("image not found")
	ErrTooLarge    = errors.New("image too large")
)

// ImageStore 头像文件存储（本地目录；测试用 afero 内存文件系统）
type ImageStore struct {
	fs          afero.Fs
	dir         string
	defaultPath string
	maxBytes    int64
}

func NewImageStore(fs afero.Fs, dir, defaultPath string, maxBytes int64) *ImageStore {
	return &ImageStore{fs: fs, dir: dir, defaultPath: defaultPath, maxBytes: maxBytes}
}

// Save 写入 <uuid>-<原文件名>，返回存储名
func (s *ImageStore) Save(original string, r io.Reader) (string, error) {
	base := sanitize(original)
	if base == "" {
		base = "image"
	}
	limit := s.maxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return "", ErrNotImage
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir images: %w", err)
	}
	name := utils.NewID() + "-" + base
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

// Load name 为空时返回默认头像
func (s *ImageStore) Load(name string) ([]byte, string, error) {
	p := s.defaultPath
	if name != "" {
		if sanitize(name) != name {
			return nil, "", ErrInvalidName
		}
		p = filepath.Join(s.dir, name)
	}
	data, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return data, mimetype.Detect(data).String(), nil
}

// sanitize 去掉目录部分，拒绝 "." / ".."
func sanitize(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

