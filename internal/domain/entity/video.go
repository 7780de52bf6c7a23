package entity

import "time"

// FeatureVector is the embedding of a single frame.
type FeatureVector []float32

// VideoMetadata is what the metadata collaborator reports for a url.
type VideoMetadata struct {
	Title         string
	LengthSeconds int
	ViewCount     int64
	Rating        *float64
	ThumbnailURL  string
	Description   string
	WatchURL      string
	IsLive        bool
}

// VideoRecord is a stored fingerprint. Records are never updated once inserted.
type VideoRecord struct {
	URL           string
	Title         string
	LengthSeconds int
	ViewCount     int64
	Rating        *float64
	ThumbnailURL  string
	Description   string
	WatchURL      string
	Embeddings    []FeatureVector
	CreatedAt     time.Time
}

func NewVideoRecord(url string, meta VideoMetadata, embeddings []FeatureVector) *VideoRecord {
	return &VideoRecord{
		URL:           url,
		Title:         meta.Title,
		LengthSeconds: meta.LengthSeconds,
		ViewCount:     meta.ViewCount,
		Rating:        meta.Rating,
		ThumbnailURL:  meta.ThumbnailURL,
		Description:   meta.Description,
		WatchURL:      meta.WatchURL,
		Embeddings:    embeddings,
		CreatedAt:     time.Now().UTC(),
	}
}

// VideoInfo describes the decodable video stream of a local file.
type VideoInfo struct {
	FPS         float64
	Duration    float64
	TotalFrames int
	Width       int
	Height      int
}

// Segment is the half-open frame range [Start, End).
type Segment struct {
	Start int
	End   int
}

func (s Segment) Len() int {
	return s.End - s.Start
}
