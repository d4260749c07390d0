// Package ortexec binds ONNX models to ONNX Runtime through onnxruntime_go
package ortexec

import (
	"errors"
	"fmt"
	"sync"

	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

// envMu guards the process wide ONNX Runtime environment
var envMu sync.Mutex

// initEnvironment initializes ONNX Runtime once per process
func initEnvironment(libPath string) error {

	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}

	return ort.InitializeEnvironment()
}

// Options are the ONNX Runtime session settings
type Options struct {
	// LibraryPath is the path to the onnxruntime shared library, when empty
	// the platform default name is used
	LibraryPath string
	// IntraOpThreads is the number of threads used within an operator, zero
	// leaves the runtime default
	IntraOpThreads int
}

// Executor loads models into ONNX Runtime sessions
type Executor struct {
	opts Options
}

// New returns an Executor using the given options
func New(opts Options) *Executor {
	return &Executor{opts: opts}
}

// Load creates an inference session for the model
func (e *Executor) Load(modelPath string) (yolodetect.Network, error) {

	if err := initEnvironment(e.opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("error initializing onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)

	if err != nil {
		return nil, fmt.Errorf("error reading model io: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("model must have a single input, has %d", len(inputs))
	}

	if len(outputs) == 0 {
		return nil, errors.New("model has no outputs")
	}

	opts, err := ort.NewSessionOptions()

	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	defer opts.Destroy()

	if e.opts.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(e.opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("error setting threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		ioNames(inputs), ioNames(outputs), opts)

	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &Network{
		session: session,
		input:   inputs[0],
		outputs: outputs,
	}, nil
}

// ioNames returns the names of the model inputs or outputs
func ioNames(infos []ort.InputOutputInfo) []string {

	names := make([]string, len(infos))

	for i, info := range infos {
		names[i] = info.Name
	}

	return names
}

// Network is a loaded ONNX Runtime session
type Network struct {
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	outputs []ort.InputOutputInfo
}

// Run feeds the input tensor through the session, converting to and from
// half precision when the model uses FP16
func (n *Network) Run(input *tensor.Tensor) ([]*tensor.Tensor, error) {

	in, err := n.newInput(input)

	if err != nil {
		return nil, err
	}

	defer in.Destroy()

	outs := make([]ort.Value, len(n.outputs))

	defer func() {
		for _, o := range outs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	for i, info := range n.outputs {
		// outputs with dynamic dimensions are allocated by the runtime
		if !isStatic(info.Dimensions) {
			continue
		}

		if outs[i], err = newOutput(info); err != nil {
			return nil, fmt.Errorf("output %s: %w", info.Name, err)
		}
	}

	if err := n.session.Run([]ort.Value{in}, outs); err != nil {
		return nil, fmt.Errorf("error running session: %w", err)
	}

	results := make([]*tensor.Tensor, len(outs))

	for i, o := range outs {
		if results[i], err = fromValue(o); err != nil {
			return nil, fmt.Errorf("output %s: %w", n.outputs[i].Name, err)
		}
	}

	return results, nil
}

// Close destroys the session
func (n *Network) Close() error {
	return n.session.Destroy()
}

// newInput wraps the input tensor in the element type the model expects
func (n *Network) newInput(input *tensor.Tensor) (ort.Value, error) {

	shape := toShape(input.Shape())

	switch n.input.DataType {
	case ort.TensorElementDataTypeFloat16:
		return ort.NewCustomDataTensor(shape, input.Float16Bytes(),
			ort.TensorElementDataTypeFloat16)

	case ort.TensorElementDataTypeFloat:
		return ort.NewTensor(shape, input.Data())

	default:
		return nil, fmt.Errorf("unsupported input type %v", n.input.DataType)
	}
}

// newOutput allocates a statically shaped output
func newOutput(info ort.InputOutputInfo) (ort.Value, error) {

	switch info.DataType {
	case ort.TensorElementDataTypeFloat16:
		buf := make([]byte, info.Dimensions.FlattenedSize()*2)
		return ort.NewCustomDataTensor(info.Dimensions.Clone(), buf,
			ort.TensorElementDataTypeFloat16)

	case ort.TensorElementDataTypeFloat:
		return ort.NewEmptyTensor[float32](info.Dimensions.Clone())

	default:
		return nil, fmt.Errorf("unsupported output type %v", info.DataType)
	}
}

// fromValue copies an output value into a float32 Tensor
func fromValue(v ort.Value) (*tensor.Tensor, error) {

	switch o := v.(type) {
	case *ort.Tensor[float32]:
		return tensor.New(fromShape(o.GetShape()), append([]float32(nil), o.GetData()...))

	case *ort.CustomDataTensor:
		// custom data outputs are only allocated for FP16
		return tensor.FromFloat16Bytes(fromShape(o.GetShape()), o.GetData())

	case nil:
		return nil, errors.New("runtime returned no value")

	default:
		return nil, fmt.Errorf("unsupported output value %T", v)
	}
}

// isStatic reports whether all dimensions are known
func isStatic(s ort.Shape) bool {

	if len(s) == 0 {
		return false
	}

	for _, d := range s {
		if d <= 0 {
			return false
		}
	}

	return true
}

func toShape(dims []int) ort.Shape {

	s := make(ort.Shape, len(dims))

	for i, d := range dims {
		s[i] = int64(d)
	}

	return s
}

func fromShape(s ort.Shape) []int {

	dims := make([]int, len(s))

	for i, d := range s {
		dims[i] = int(d)
	}

	return dims
}
