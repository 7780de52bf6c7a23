package entity

import "time"

// Stage is the last pipeline step a url reached.
type Stage string

const (
	StageDiscovered    Stage = "DISCOVERED"
	StageLengthChecked Stage = "LENGTH_CHECKED"
	StageDownloaded    Stage = "DOWNLOADED"
	StageDedupChecked  Stage = "DEDUP_CHECKED"
	StageSegmented     Stage = "SEGMENTED"
	StageExtracted     Stage = "EXTRACTED"
	StageStored        Stage = "STORED"
	StageCleanedUp     Stage = "CLEANED_UP"
)

type OutcomeStatus string

const (
	OutcomeStored  OutcomeStatus = "STORED"
	OutcomeSkipped OutcomeStatus = "SKIPPED"
	OutcomeFailed  OutcomeStatus = "FAILED"
)

// SkipReason explains why a url was not fingerprinted.
type SkipReason string

const (
	SkipMetadataUnavailable SkipReason = "metadata_unavailable"
	SkipUnknownLength       SkipReason = "unknown_length"
	SkipTooLong             SkipReason = "too_long"
	SkipDownloadFailed      SkipReason = "download_failed"
	SkipAlreadyStored       SkipReason = "already_stored"
	SkipInProgress          SkipReason = "in_progress"
	SkipDecodeFailed        SkipReason = "decode_failed"
	SkipInvalidSegmentation SkipReason = "invalid_segmentation"
	SkipExtractionFailed    SkipReason = "extraction_failed"
	SkipNoFrames            SkipReason = "no_frames"
	SkipStoreRejected       SkipReason = "store_rejected"
)

// Outcome is the terminal state of one pipeline run for a url.
type Outcome struct {
	URL        string
	Status     OutcomeStatus
	Stage      Stage
	Reason     SkipReason
	Detail     string
	FrameCount int
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewOutcome(url string) *Outcome {
	return &Outcome{
		URL:       url,
		Stage:     StageDiscovered,
		StartedAt: time.Now().UTC(),
	}
}

func (o *Outcome) Advance(stage Stage) {
	o.Stage = stage
}

func (o *Outcome) MarkSkipped(reason SkipReason, detail string) {
	o.Status = OutcomeSkipped
	o.Reason = reason
	o.Detail = detail
	o.FinishedAt = time.Now().UTC()
}

func (o *Outcome) MarkStored(frameCount int) {
	o.Status = OutcomeStored
	o.FrameCount = frameCount
	o.FinishedAt = time.Now().UTC()
}

func (o *Outcome) MarkFailed(detail string) {
	o.Status = OutcomeFailed
	o.Detail = detail
	o.FinishedAt = time.Now().UTC()
}

func (o *Outcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// RunSummary aggregates the outcomes of a keyword run.
type RunSummary struct {
	RunID      string
	Queries    int
	Discovered int
	Stored     int
	Skipped    map[SkipReason]int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		Skipped:   make(map[SkipReason]int),
		StartedAt: time.Now().UTC(),
	}
}

func (s *RunSummary) Record(o Outcome) {
	switch o.Status {
	case OutcomeStored:
		s.Stored++
	case OutcomeSkipped:
		s.Skipped[o.Reason]++
	default:
		s.Failed++
	}
}

func (s *RunSummary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now().UTC()
}
