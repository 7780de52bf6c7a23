package entity

import "errors"

var (
	// ErrConfiguration reports invalid segmentation or batching parameters.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrDecode reports a frame that could not be decoded or converted.
	ErrDecode = errors.New("frame decode failed")
	// ErrEndOfStream reports a frame index past the last decodable frame.
	ErrEndOfStream = errors.New("end of stream")
	// ErrDownloadUnavailable reports a video that cannot be downloaded.
	ErrDownloadUnavailable = errors.New("download unavailable")
	// ErrDuplicateKey reports an insert for a url that is already stored.
	ErrDuplicateKey = errors.New("fingerprint already stored")
	// ErrNotFound reports a lookup for a url that is not stored.
	ErrNotFound = errors.New("fingerprint not found")
	// ErrStoreUnavailable reports that the fingerprint store cannot be reached.
	ErrStoreUnavailable = errors.New("fingerprint store unavailable")
)
