// Package cvdnn binds ONNX models to the OpenCV DNN module through gocv
package cvdnn

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/tensor"
	"gocv.io/x/gocv"
)

// Executor loads models into an OpenCV DNN Net
type Executor struct {
	// Backend is the computation backend, eg: gocv.NetBackendDefault
	Backend gocv.NetBackendType
	// Target is the computation device, eg: gocv.NetTargetCPU
	Target gocv.NetTargetType
}

// New returns an Executor for the named backend, one of "opencv" (the
// default), "cuda" or "openvino"
func New(backend string) (*Executor, error) {

	switch strings.ToLower(backend) {
	case "", "opencv", "default":
		return &Executor{Backend: gocv.NetBackendDefault, Target: gocv.NetTargetCPU}, nil
	case "cuda":
		return &Executor{Backend: gocv.NetBackendCUDA, Target: gocv.NetTargetCUDA}, nil
	case "openvino":
		return &Executor{Backend: gocv.NetBackendOpenVINO, Target: gocv.NetTargetCPU}, nil
	default:
		return nil, fmt.Errorf("unknown opencv backend %q", backend)
	}
}

// Load reads the ONNX model and prepares it for inference
func (e *Executor) Load(modelPath string) (yolodetect.Network, error) {

	net := gocv.ReadNetFromONNX(modelPath)

	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("opencv could not read model %s", modelPath)
	}

	if err := net.SetPreferableBackend(e.Backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(e.Target); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	return &Network{
		net:     net,
		outputs: outputLayerNames(&net),
	}, nil
}

// outputLayerNames returns the names of the layers with no consumers, being
// the model outputs
func outputLayerNames(net *gocv.Net) []string {

	var names []string

	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		name := layer.GetName()
		layer.Close()

		if name != "_input" {
			names = append(names, name)
		}
	}

	return names
}

// Network is a loaded OpenCV DNN Net
type Network struct {
	net     gocv.Net
	outputs []string
}

// Run feeds the NCHW input tensor through the Net and returns the output
// layers as tensors
func (n *Network) Run(input *tensor.Tensor) ([]*tensor.Tensor, error) {

	blob, err := toMat(input)

	if err != nil {
		return nil, err
	}

	defer blob.Close()

	n.net.SetInput(blob, "")

	mats := n.net.ForwardLayers(n.outputs)

	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	if len(mats) == 0 {
		return nil, errors.New("net produced no outputs")
	}

	outs := make([]*tensor.Tensor, 0, len(mats))

	for i, m := range mats {
		t, err := fromMat(m)

		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}

		outs = append(outs, t)
	}

	return outs, nil
}

// Close frees the Net
func (n *Network) Close() error {
	return n.net.Close()
}

// toMat wraps the tensor data in an N-dimensional float32 Mat
func toMat(t *tensor.Tensor) (gocv.Mat, error) {

	data := t.Data()

	if len(data) == 0 {
		return gocv.NewMat(), errors.New("input tensor is empty")
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)

	return gocv.NewMatWithSizesFromBytes(t.Shape(), gocv.MatTypeCV32F, raw)
}

// fromMat copies an N-dimensional float32 Mat into a Tensor
func fromMat(m gocv.Mat) (*tensor.Tensor, error) {

	if m.Type() != gocv.MatTypeCV32F {
		return nil, fmt.Errorf("unsupported output type %v", m.Type())
	}

	data, err := m.DataPtrFloat32()

	if err != nil {
		return nil, err
	}

	return tensor.New(m.Size(), append([]float32(nil), data...))
}
