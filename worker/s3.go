package worker

import (
	"context"

	"text2phenotype.com/postagger/s3client"
)

type objectStorage interface {
	download(ctx context.Context, key string) ([]byte, error)
	upload(ctx context.Context, key string, data []byte) error
	close()
}

type s3Storage struct {
	s3Client *s3client.Client
}

func (storage *s3Storage) close() {
	storage.s3Client.Close()
}

func (storage *s3Storage) download(ctx context.Context, key string) ([]byte, error) {
	return storage.s3Client.Download(ctx, key)
}

func (storage *s3Storage) upload(ctx context.Context, key string, data []byte) error {
	return storage.s3Client.Upload(ctx, data, key)
}
