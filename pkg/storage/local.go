package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localStore struct {
	dir string
}

// NewLocalStore 返回一个把对象写入本地目录的 ObjectStore，未配置 MinIO 时使用。
func NewLocalStore(dir string) (ObjectStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) path(objectName string) (string, error) {
	clean := filepath.Clean("/" + objectName)
	if clean == "/" || strings.Contains(objectName, "..") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *localStore) Put(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("写入对象 %s 失败: %w", objectName, err)
	}
	return f.Close()
}

// URL 返回 file:// 地址。
func (s *localStore) URL(_ context.Context, objectName string) (string, error) {
	p, err := s.path(objectName)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}
