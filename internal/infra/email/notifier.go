package email

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// SMTPReporter mails a summary at the end of every keyword run.
type SMTPReporter struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

func NewSMTPReporter(cfg SMTPConfig, logger *zap.Logger) *SMTPReporter {
	return &SMTPReporter{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (r *SMTPReporter) ReportRun(_ context.Context, summary *entity.RunSummary) error {
	subject, body := renderSummary(summary)

	msg := gomail.NewMessage()
	msg.SetHeader("From", r.cfg.From)
	msg.SetHeader("To", r.cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := r.dialer.DialAndSend(msg); err != nil {
		r.logger.Error("failed to send run summary email",
			zap.String("to", r.cfg.To),
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	r.logger.Info("run summary email sent",
		zap.String("to", r.cfg.To),
		zap.String("run_id", summary.RunID),
	)
	return nil
}

func renderSummary(s *entity.RunSummary) (string, string) {
	subject := fmt.Sprintf("Fingerprint run %s: %d stored, %d skipped, %d failed",
		s.RunID, s.Stored, s.SkippedTotal(), s.Failed)

	var b strings.Builder
	fmt.Fprintf(&b, "Run ID: %s\r\n", s.RunID)
	fmt.Fprintf(&b, "Started: %s\r\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished: %s\r\n", s.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "\r\nQueries: %d\r\nDiscovered: %d\r\nStored: %d\r\nSkipped: %d\r\nFailed: %d\r\n",
		s.Queries, s.Discovered, s.Stored, s.SkippedTotal(), s.Failed)

	if len(s.Skipped) > 0 {
		reasons := make([]string, 0, len(s.Skipped))
		for reason := range s.Skipped {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)

		b.WriteString("\r\nSkipped by reason:\r\n")
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  %s: %d\r\n", reason, s.Skipped[entity.SkipReason(reason)])
		}
	}

	b.WriteString("\r\n-- FIAP X Fingerprint Service")
	return subject, b.String()
}
