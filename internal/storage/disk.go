package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type DiskStore struct {
	BasePath string
	Dir      string
}

func NewDiskStore(basePath string) *DiskStore {
	if basePath == "" {
		basePath = "./uploads/"
	}
	return &DiskStore{BasePath: basePath, Dir: "properties"}
}

func (s *DiskStore) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	uploadPath := filepath.Join(s.BasePath, s.Dir)
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(filename))
	dst, err := os.Create(filepath.Join(uploadPath, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return filepath.ToSlash(filepath.Join(s.Dir, name)), nil
}

func (s *DiskStore) path(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	return filepath.Join(s.BasePath, clean), nil
}

func (s *DiskStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	return f, err
}

func (s *DiskStore) Remove(ctx context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
