// Package storage keeps listing image blobs outside the relational store.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrBlobNotFound = errors.New("blob not found")

// ImageStore saves blobs and hands back an opaque reference.
type ImageStore interface {
	Save(ctx context.Context, filename string, src io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}
