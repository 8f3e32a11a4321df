package ports

import (
	"context"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// ONNXReranker is the Reranker port adapter for a cross-encoder model
// served by the same dynamically loaded ONNX Runtime as ONNXEmbedder,
// generalized from the teacher's MLX-specific reranker to a
// runtime-agnostic dynamic-library adapter.
type ONNXReranker struct {
	mu        sync.Mutex
	lib       uintptr
	modelPath string

	getVersion func() string
}

// NewONNXReranker dlopens the ONNX Runtime shared library for
// cross-encoder scoring.
func NewONNXReranker(modelPath string) (*ONNXReranker, error) {
	libPath, err := defaultRuntimeLibPath()
	if err != nil {
		return nil, err
	}

	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: failed to load %s: %w", libPath, err)
	}

	r := &ONNXReranker{lib: lib, modelPath: modelPath}
	purego.RegisterLibFunc(&r.getVersion, lib, "OrtGetVersionString")
	return r, nil
}

// Score scores (query, text) pairs in order. See ONNXEmbedder.EmbedBatch
// for why the tensor-level session run is not implemented here.
func (r *ONNXReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return nil, fmt.Errorf("onnxruntime: cross-encoder session execution not wired for model %s", r.modelPath)
}

// Available reports whether the runtime library loaded successfully.
func (r *ONNXReranker) Available(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lib != 0
}

// Close unloads the runtime library.
func (r *ONNXReranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lib == 0 {
		return nil
	}
	err := purego.Dlclose(r.lib)
	r.lib = 0
	return err
}

// NoopReranker is the passthrough Reranker that the CLI wires into the
// engine (with rerank disabled the engine skips the rerank step
// instead): it returns the candidates' existing rank as a descending
// score so downstream sort-by-score is a no-op.
type NoopReranker struct{}

// Score assigns descending scores by input position, preserving order.
func (NoopReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i := range texts {
		scores[i] = float64(len(texts) - i)
	}
	return scores, nil
}

// Available is always true for the passthrough reranker.
func (NoopReranker) Available(ctx context.Context) bool { return true }
