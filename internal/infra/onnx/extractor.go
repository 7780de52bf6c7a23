package onnx

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

type ExtractorConfig struct {
	ModelPath    string
	LibraryPath  string
	InputName    string
	OutputName   string
	InputSize    int
	OutputShape  []int64
	Layout       Layout
	ChannelOrder ChannelOrder
}

// Extractor embeds frames with an ONNX image model. Input and output tensors
// are allocated once and reused; Extract calls are serialized.
type Extractor struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
	layout  Layout
	order   ChannelOrder
	logger  *zap.Logger
}

func NewExtractor(cfg ExtractorConfig, logger *zap.Logger) (*Extractor, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", cfg.ModelPath, err)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	inputShape := ort.NewShape(1, int64(cfg.InputSize), int64(cfg.InputSize), 3)
	if cfg.Layout == LayoutNCHW {
		inputShape = ort.NewShape(1, 3, int64(cfg.InputSize), int64(cfg.InputSize))
	}

	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	logger.Info("feature model loaded",
		zap.String("model", cfg.ModelPath),
		zap.String("input", cfg.InputName),
		zap.String("output", cfg.OutputName),
		zap.Int64s("output_shape", cfg.OutputShape),
	)

	return &Extractor{
		session: session,
		input:   input,
		output:  output,
		size:    cfg.InputSize,
		layout:  cfg.Layout,
		order:   cfg.ChannelOrder,
		logger:  logger,
	}, nil
}

// Dimension is the length of every vector returned by Extract.
func (e *Extractor) Dimension() int {
	return int(e.output.GetShape().FlattenedSize())
}

func (e *Extractor) Extract(_ context.Context, frame image.Image) (entity.FeatureVector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := Preprocess(frame, e.size, e.layout, e.order, e.input.GetData()); err != nil {
		return nil, err
	}
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	out := e.output.GetData()
	vec := make(entity.FeatureVector, len(out))
	copy(vec, out)
	return vec, nil
}

func (e *Extractor) Close() error {
	e.logger.Info("closing feature model session")
	if err := e.session.Destroy(); err != nil {
		return err
	}
	e.input.Destroy()
	e.output.Destroy()
	return ort.DestroyEnvironment()
}
