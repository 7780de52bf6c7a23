package port

import "context"

// FeatureArchive keeps an off-host copy of stored feature blobs.
type FeatureArchive interface {
	PutFeatures(ctx context.Context, url string, blob []byte) error
}
