package port

import "context"

type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

type CandidatePublisher interface {
	PublishCandidate(ctx context.Context, msg []byte) error
}

// SeenSet remembers urls that were already enqueued.
type SeenSet interface {
	// MarkSeen returns true when url was not seen before.
	MarkSeen(ctx context.Context, url string) (bool, error)
}
