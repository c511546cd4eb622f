package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

type GridFSStore struct {
	DB *mongo.Database
}

func NewGridFSStore(client *mongo.Client, dbName string) *GridFSStore {
	return &GridFSStore{DB: client.Database(dbName)}
}

func (s *GridFSStore) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	bucket, err := gridfs.NewBucket(s.DB)
	if err != nil {
		return "", err
	}

	stream, err := bucket.OpenUploadStream(filename)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	if _, err := io.Copy(stream, src); err != nil {
		stream.Abort()
		return "", err
	}

	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

func (s *GridFSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, err := gridfs.NewBucket(s.DB)
	if err != nil {
		return nil, err
	}

	objID, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *GridFSStore) Remove(ctx context.Context, ref string) error {
	bucket, err := gridfs.NewBucket(s.DB)
	if err != nil {
		return err
	}

	objID, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil
	}
	if err := bucket.Delete(objID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return err
	}
	return nil
}
