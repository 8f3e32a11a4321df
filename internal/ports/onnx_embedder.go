package ports

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

// defaultRuntimeLibPath returns the platform-conventional path for the
// ONNX Runtime shared library, mirroring the OS dispatch the teacher's
// purego probe used for libc/libSystem.
func defaultRuntimeLibPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "linux":
		return "libonnxruntime.so", nil
	default:
		return "", fmt.Errorf("onnxruntime: unsupported OS %s", runtime.GOOS)
	}
}

// ONNXEmbedder loads libonnxruntime via purego (no cgo) and runs a
// sentence-embedding model. The runtime is dlopen'd by the constructor
// and released by Close (spec.md §9, "global model state").
type ONNXEmbedder struct {
	mu         sync.Mutex
	lib        uintptr
	modelPath  string
	modelName  string
	dimensions int

	getVersion func() string
}

// NewONNXEmbedder dlopens the ONNX Runtime shared library and records
// modelPath; no session is created. dimensions must match the model's known
// output width; CodeSearch has no way to introspect it without a full
// session/tensor binding, which is out of scope for this adapter.
func NewONNXEmbedder(modelPath, modelName string, dimensions int) (*ONNXEmbedder, error) {
	libPath, err := defaultRuntimeLibPath()
	if err != nil {
		return nil, err
	}

	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("onnxruntime: failed to load %s: %w", libPath, err)
	}

	e := &ONNXEmbedder{
		lib:        lib,
		modelPath:  modelPath,
		modelName:  modelName,
		dimensions: dimensions,
	}
	purego.RegisterLibFunc(&e.getVersion, lib, "OrtGetVersionString")

	return e, nil
}

// EmbedBatch embeds a batch of texts in order. The full tensor
// marshaling/session-run path (OrtCreateSession, OrtRun, tensor
// binding) is not implemented here; this adapter currently validates
// runtime availability and is the integration point a real session
// would hang off of.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("onnxruntime: session execution not wired for model %s", e.modelPath)
}

// Dimensions returns the embedding dimension configured at construction.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// ModelName returns the configured model identifier.
func (e *ONNXEmbedder) ModelName() string { return e.modelName }

// Available reports whether the runtime library loaded successfully.
func (e *ONNXEmbedder) Available(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lib != 0
}

// Close unloads the runtime library.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lib == 0 {
		return nil
	}
	err := purego.Dlclose(e.lib)
	e.lib = 0
	return err
}

// Version returns the loaded ONNX Runtime's version string, mainly
// useful for diagnostics and startup logging.
func (e *ONNXEmbedder) Version() string {
	if e.getVersion == nil {
		return ""
	}
	return e.getVersion()
}
