package entity

import "github.com/google/uuid"

// CandidateMessage is the inbound message from the fingerprint.candidates queue.
type CandidateMessage struct {
	RunID uuid.UUID `json:"run_id"`
	URL   string    `json:"url"`
	Query string    `json:"query,omitempty"`
}

// FingerprintStatusMessage is the outbound message published to the fingerprint.status queue.
type FingerprintStatusMessage struct {
	URL        string        `json:"url"`
	Status     OutcomeStatus `json:"status"`
	Stage      Stage         `json:"stage"`
	Reason     SkipReason    `json:"reason,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	FrameCount int           `json:"frame_count,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

func NewStatusMessage(o Outcome) FingerprintStatusMessage {
	return FingerprintStatusMessage{
		URL:        o.URL,
		Status:     o.Status,
		Stage:      o.Stage,
		Reason:     o.Reason,
		Detail:     o.Detail,
		FrameCount: o.FrameCount,
		DurationMs: o.Duration().Milliseconds(),
	}
}
