package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
	"go.uber.org/zap"
)

// HandleCandidateUseCase is the queue worker entry point. Returning an error
// asks the consumer to requeue the message.
type HandleCandidateUseCase struct {
	processor VideoProcessor
	dlq       port.DLQPublisher
	logger    *zap.Logger
}

func NewHandleCandidateUseCase(processor VideoProcessor, dlq port.DLQPublisher, logger *zap.Logger) *HandleCandidateUseCase {
	return &HandleCandidateUseCase{processor: processor, dlq: dlq, logger: logger}
}

func (uc *HandleCandidateUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	var msg entity.CandidateMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if strings.TrimSpace(msg.URL) == "" {
		uc.logger.Error("candidate without url", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "missing_url")
		return nil
	}

	if _, err := uc.processor.Process(ctx, msg.URL); err != nil {
		return err
	}
	// an outcome reached while shutting down may be incomplete; requeue it
	return ctx.Err()
}
