package port

import (
	"context"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
)

type RunReporter interface {
	ReportRun(ctx context.Context, summary *entity.RunSummary) error
}
