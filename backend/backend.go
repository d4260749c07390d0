// Package backend selects the inference Executor named by a DetectorConfig
package backend

import (
	"fmt"
	"strings"

	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/cvdnn"
	"github.com/swdee/go-yolodetect/ortexec"
)

const (
	// OpenCV runs models with the OpenCV DNN module on the CPU
	OpenCV = "opencv"
	// OpenCVCUDA runs models with the OpenCV DNN module on a CUDA device
	OpenCVCUDA = "cuda"
	// ONNXRuntime runs models with ONNX Runtime
	ONNXRuntime = "onnxruntime"
)

// New returns the Executor for the named backend, an empty name selects
// OpenCV.  ortOpts is only used by the ONNX Runtime backend.
func New(name string, ortOpts ortexec.Options) (yolodetect.Executor, error) {

	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", OpenCV, OpenCVCUDA:
		exec, err := cvdnn.New(n)

		if err != nil {
			return nil, err
		}

		return exec, nil

	case ONNXRuntime, "ort":
		return ortexec.New(ortOpts), nil

	default:
		return nil, fmt.Errorf("unknown backend %q, must be one of %s, %s, %s",
			name, OpenCV, OpenCVCUDA, ONNXRuntime)
	}
}

// Factory returns a yolodetect.ExecutorFactory resolving backend names with
// New, for use with yolodetect.New
func Factory(ortOpts ortexec.Options) yolodetect.ExecutorFactory {
	return func(name string) (yolodetect.Executor, error) {
		return New(name, ortOpts)
	}
}
