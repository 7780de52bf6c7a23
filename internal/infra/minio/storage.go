package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FeatureArchive copies stored feature blobs into a bucket, one object per url.
type FeatureArchive struct {
	client *miniogo.Client
	bucket string
}

type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewFeatureArchive(cfg ArchiveConfig) (*FeatureArchive, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &FeatureArchive{client: client, bucket: cfg.Bucket}, nil
}

func (a *FeatureArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

func (a *FeatureArchive) PutFeatures(ctx context.Context, url string, blob []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, ObjectKey(url), bytes.NewReader(blob), int64(len(blob)),
		miniogo.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{"source-url": url},
		},
	)
	if err != nil {
		return fmt.Errorf("upload features: %w", err)
	}
	return nil
}

func (a *FeatureArchive) GetFeatures(ctx context.Context, url string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, ObjectKey(url), miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get features: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return data, nil
}

// ObjectKey maps a url to a stable object name.
func ObjectKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "features/" + hex.EncodeToString(sum[:]) + ".json"
}
