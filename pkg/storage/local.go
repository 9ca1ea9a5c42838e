package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore хранит объекты в файловой системе: <root>/<container>/<key>.
// Метаданные объектов не сохраняются.
type LocalStore struct {
	root string
}

// NewLocalStore создает хранилище в каталоге root
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root возвращает корневой каталог
func (s *LocalStore) Root() string {
	return s.root
}

// Path возвращает путь к файлу объекта
func (s *LocalStore) Path(container, key string) (string, error) {
	if container == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", fmt.Errorf("invalid container '%s'", container)
	}
	base := filepath.Join(s.root, container)
	p := filepath.Join(base, filepath.FromSlash(key))
	if key == "" || !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key '%s'", key)
	}
	return p, nil
}

// Get читает файл объекта
func (s *LocalStore) Get(ctx context.Context, container, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(container, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, classifyFSError(err)
	}
	return data, nil
}

// Put записывает файл объекта, создавая промежуточные каталоги
func (s *LocalStore) Put(ctx context.Context, container, key string, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(container, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return classifyFSError(err)
	}
	if err := os.WriteFile(p, obj.Data, 0o644); err != nil {
		return classifyFSError(err)
	}
	return nil
}

// Copy копирует файл объекта
func (s *LocalStore) Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.Path(srcContainer, srcKey)
	if err != nil {
		return err
	}
	dst, err := s.Path(dstContainer, dstKey)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return classifyFSError(err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return classifyFSError(err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return classifyFSError(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	return out.Close()
}

// Delete удаляет файл объекта
func (s *LocalStore) Delete(ctx context.Context, container, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(container, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return classifyFSError(err)
	}
	return nil
}

func classifyFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}
