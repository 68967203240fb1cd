package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// LocalStorage keeps blobs on the local filesystem.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, ErrInvalidConfig
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, body []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Join(ErrFailedToWrite, err)
	}
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return errors.Join(ErrFailedToWrite, err)
	}
	return nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrFailedToRead, err)
	}
	return data, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
