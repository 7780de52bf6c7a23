package port

import (
	"context"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
)

type FingerprintStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	// Insert fails with entity.ErrDuplicateKey when url is already stored.
	Insert(ctx context.Context, record *entity.VideoRecord) error
	Get(ctx context.Context, url string) (*entity.VideoRecord, error)
	Count(ctx context.Context) (int64, error)
}
