package usecase

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/port"
)

// indexedFrame is a 1x1 frame that remembers which index it was decoded from.
type indexedFrame struct{ index int }

func (f indexedFrame) ColorModel() color.Model { return color.RGBAModel }
func (f indexedFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 1, 1) }
func (f indexedFrame) At(int, int) color.Color { return color.RGBA{A: 255} }

type fakeFrameSource struct {
	info     entity.VideoInfo
	failures map[int]error
	reads    []int
	closed   bool
}

func newFakeFrameSource(totalFrames int, fps float64) *fakeFrameSource {
	return &fakeFrameSource{
		info: entity.VideoInfo{
			FPS:         fps,
			TotalFrames: totalFrames,
			Duration:    float64(totalFrames) / fps,
			Width:       1,
			Height:      1,
		},
		failures: map[int]error{},
	}
}

func (s *fakeFrameSource) Info() entity.VideoInfo { return s.info }

func (s *fakeFrameSource) Frame(_ context.Context, index int) (image.Image, error) {
	s.reads = append(s.reads, index)
	if err, ok := s.failures[index]; ok {
		return nil, err
	}
	if index >= s.info.TotalFrames {
		return nil, fmt.Errorf("frame %d: %w", index, entity.ErrEndOfStream)
	}
	return indexedFrame{index: index}, nil
}

func (s *fakeFrameSource) Close() error {
	s.closed = true
	return nil
}

type fakeOpener struct {
	source *fakeFrameSource
	err    error
	opened []string
}

func (o *fakeOpener) Open(_ context.Context, path string) (port.FrameSource, error) {
	o.opened = append(o.opened, path)
	if o.err != nil {
		return nil, o.err
	}
	return o.source, nil
}

// fakeExtractor embeds a frame as the single value of its index.
type fakeExtractor struct {
	failures map[int]error
	calls    []int
}

func (e *fakeExtractor) Extract(_ context.Context, frame image.Image) (entity.FeatureVector, error) {
	f, ok := frame.(indexedFrame)
	if !ok {
		return nil, fmt.Errorf("unexpected frame type %T: %w", frame, entity.ErrDecode)
	}
	e.calls = append(e.calls, f.index)
	if err, ok := e.failures[f.index]; ok {
		return nil, err
	}
	return entity.FeatureVector{float32(f.index)}, nil
}

type fakeStore struct {
	mu         sync.Mutex
	records    map[string]*entity.VideoRecord
	existsErr  error
	insertErr  error
	rejects    map[string]error
	existCalls int
	inserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*entity.VideoRecord{}}
}

func (s *fakeStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existCalls++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.records[url]
	return ok, nil
}

func (s *fakeStore) Insert(_ context.Context, record *entity.VideoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	if err, ok := s.rejects[record.URL]; ok {
		return err
	}
	if _, ok := s.records[record.URL]; ok {
		return entity.ErrDuplicateKey
	}
	s.records[record.URL] = record
	return nil
}

func (s *fakeStore) Get(_ context.Context, url string) (*entity.VideoRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[url]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *fakeStore) interactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existCalls + s.inserts
}

type fakeMetadata struct {
	meta  map[string]entity.VideoMetadata
	err   error
	calls int
}

func (m *fakeMetadata) Fetch(_ context.Context, url string) (entity.VideoMetadata, error) {
	m.calls++
	if m.err != nil {
		return entity.VideoMetadata{}, m.err
	}
	meta, ok := m.meta[url]
	if !ok {
		return entity.VideoMetadata{}, fmt.Errorf("no metadata for %s", url)
	}
	return meta, nil
}

// fakeDownloader writes a small file into destDir, or fails with failure.
type fakeDownloader struct {
	failure entity.DownloadFailure
	paths   []string
}

func (d *fakeDownloader) Download(_ context.Context, _ string, destDir string) entity.DownloadResult {
	if d.failure != entity.DownloadFailureNone {
		return entity.DownloadFailed(d.failure, "fake failure")
	}
	path := filepath.Join(destDir, "video.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		return entity.DownloadFailed(entity.DownloadFailureNetwork, err.Error())
	}
	d.paths = append(d.paths, path)
	return entity.DownloadSucceeded(path)
}

type fakeDiscoverer struct {
	results map[string][]string
	err     error
	queries []string
}

func (d *fakeDiscoverer) Search(_ context.Context, query string) ([]string, error) {
	d.queries = append(d.queries, query)
	if d.err != nil {
		return nil, d.err
	}
	return d.results[query], nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg []byte) error {
	return p.record(msg)
}

func (p *recordingPublisher) PublishCandidate(_ context.Context, msg []byte) error {
	return p.record(msg)
}

func (p *recordingPublisher) record(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type recordingDLQ struct {
	messages [][]byte
	reasons  []string
}

func (d *recordingDLQ) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	d.messages = append(d.messages, msg)
	d.reasons = append(d.reasons, reason)
	return nil
}

type memorySeenSet struct {
	seen map[string]bool
}

func (s *memorySeenSet) MarkSeen(_ context.Context, url string) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[url] {
		return false, nil
	}
	s.seen[url] = true
	return true, nil
}

type recordingArchive struct {
	blobs map[string][]byte
	err   error
}

func (a *recordingArchive) PutFeatures(_ context.Context, url string, blob []byte) error {
	if a.err != nil {
		return a.err
	}
	if a.blobs == nil {
		a.blobs = map[string][]byte{}
	}
	a.blobs[url] = blob
	return nil
}

type recordingReporter struct {
	summaries []*entity.RunSummary
}

func (r *recordingReporter) ReportRun(_ context.Context, summary *entity.RunSummary) error {
	r.summaries = append(r.summaries, summary)
	return nil
}
