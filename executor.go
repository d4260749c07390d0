package yolodetect

import "github.com/swdee/go-yolodetect/tensor"

// Executor binds a model artifact to an inference backend
type Executor interface {
	// Load reads the model file and returns a Network ready to run
	Load(modelPath string) (Network, error)
}

// Network is a loaded model able to run a forward pass.  It is not safe for
// concurrent use, the Detector serializes access to it.
type Network interface {
	// Run performs inference on the NCHW input tensor and returns the raw
	// output tensors
	Run(input *tensor.Tensor) ([]*tensor.Tensor, error)
	// Close releases the resources held by the Network
	Close() error
}

// ExecutorFactory returns the Executor for the backend named by a
// DetectorConfig, it is called on every Load so a reload can switch backends
type ExecutorFactory func(backend string) (Executor, error)

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(modelPath string) (Network, error)

// Load calls f(modelPath)
func (f ExecutorFunc) Load(modelPath string) (Network, error) {
	return f(modelPath)
}
