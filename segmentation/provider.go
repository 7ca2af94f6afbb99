package segmentation

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Result is the output of one segmentation pass: one or more confidence
// masks plus an optional parallel list of labels describing them.
type Result struct {
	Masks  []Mask
	Labels []string
}

// Provider abstracts the segmentation model. Given a frame and its
// timestamp it returns confidence masks; the caller treats inference as
// an opaque capability and degrades to passthrough when it fails.
type Provider interface {
	Segment(frame gocv.Mat, ts time.Duration) (*Result, error)
	Close() error
	Info() ProviderInfo
}

// ProviderInfo describes the active inference backend.
type ProviderInfo struct {
	Type     string // "GPU" or "CPU"
	Backend  string // "CUDA", "OpenCL", "CPU"
	Model    string
	InitTime time.Duration
}

// Global debug function for segmentation package
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide its debug logger.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// DNNProvider runs a single-channel segmentation network (selfie style:
// input frame, output one confidence map) through the gocv DNN module.
type DNNProvider struct {
	net       gocv.Net
	labels    []string
	inputSize image.Point
	info      ProviderInfo
	mu        sync.Mutex
	closed    bool
}

// NewDNNProvider loads the model and optional labels file, preferring a
// CUDA backend when requested and falling back to CPU when unavailable.
func NewDNNProvider(modelPath, labelsPath string, inputSize int, preferGPU bool) (*DNNProvider, error) {
	start := time.Now()
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("could not load segmentation model from %s", modelPath)
	}

	info := ProviderInfo{Type: "CPU", Backend: "CPU", Model: modelPath}
	if preferGPU {
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err == nil {
			if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err == nil {
				info.Type = "GPU"
				info.Backend = "CUDA"
			}
		}
	}
	if info.Type == "CPU" {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	p := &DNNProvider{
		net:       net,
		inputSize: image.Pt(inputSize, inputSize),
		info:      info,
	}
	if labelsPath != "" {
		raw, err := os.ReadFile(labelsPath)
		if err != nil {
			net.Close()
			return nil, fmt.Errorf("could not read mask labels: %v", err)
		}
		for _, line := range strings.Split(string(raw), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				p.labels = append(p.labels, line)
			}
		}
	}
	p.info.InitTime = time.Since(start)
	debugMsg("SEGMENT", fmt.Sprintf("provider ready: %s backend, model=%s, init=%v",
		p.info.Backend, modelPath, p.info.InitTime))
	return p, nil
}

// Segment runs one inference pass and converts the network output into
// masks. The ts parameter is accepted for providers that are stateful
// across frames; the DNN provider ignores it.
func (p *DNNProvider) Segment(frame gocv.Mat, _ time.Duration) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("segmentation provider is closed")
	}
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, p.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	output := p.net.Forward("")
	defer output.Close()

	mask, err := maskFromOutput(output)
	if err != nil {
		return nil, err
	}
	res := &Result{Masks: []Mask{mask}}
	if len(p.labels) == 1 {
		res.Labels = p.labels
	}
	return res, nil
}

// maskFromOutput flattens a DNN output blob (1x1xHxW or HxW float32)
// into a Mask. Values are copied so the Mat can be closed by the caller.
func maskFromOutput(output gocv.Mat) (Mask, error) {
	dims := output.Size()
	if len(dims) < 2 {
		return Mask{}, fmt.Errorf("unexpected segmentation output shape %v", dims)
	}
	h := dims[len(dims)-2]
	w := dims[len(dims)-1]
	if h <= 0 || w <= 0 {
		return Mask{}, fmt.Errorf("degenerate segmentation output %dx%d", w, h)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return Mask{}, fmt.Errorf("could not read segmentation output: %v", err)
	}
	if len(data) < w*h {
		return Mask{}, fmt.Errorf("segmentation output truncated: have %d want %d", len(data), w*h)
	}
	values := make([]float32, w*h)
	copy(values, data[:w*h])
	return Mask{Width: w, Height: h, Values: values}, nil
}

// Info implements Provider.
func (p *DNNProvider) Info() ProviderInfo { return p.info }

// Close releases the network.
func (p *DNNProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.net.Close()
}
