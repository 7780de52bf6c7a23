package entity

import "fmt"

// DownloadFailure classifies why a download did not produce a file.
type DownloadFailure string

const (
	DownloadFailureNone        DownloadFailure = ""
	DownloadFailureLive        DownloadFailure = "live"
	DownloadFailureRestricted  DownloadFailure = "restricted"
	DownloadFailureUnavailable DownloadFailure = "unavailable"
	DownloadFailureNetwork     DownloadFailure = "network"
)

// DownloadResult is returned by the download collaborator. Path is set only
// when Failure is DownloadFailureNone.
type DownloadResult struct {
	Path    string
	Failure DownloadFailure
	Detail  string
}

func DownloadSucceeded(path string) DownloadResult {
	return DownloadResult{Path: path}
}

func DownloadFailed(failure DownloadFailure, detail string) DownloadResult {
	return DownloadResult{Failure: failure, Detail: detail}
}

func (r DownloadResult) OK() bool {
	return r.Failure == DownloadFailureNone && r.Path != ""
}

// Err describes a failed download as an error wrapping ErrDownloadUnavailable.
func (r DownloadResult) Err() error {
	if r.OK() {
		return nil
	}
	if r.Failure == DownloadFailureNone {
		return fmt.Errorf("%w: no file produced", ErrDownloadUnavailable)
	}
	return fmt.Errorf("%w: %s: %s", ErrDownloadUnavailable, r.Failure, r.Detail)
}
