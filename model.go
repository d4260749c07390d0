package yolodetect

import (
	"errors"
	"fmt"
	"time"

	"github.com/swdee/go-yolodetect/postprocess"
	"github.com/swdee/go-yolodetect/postprocess/result"
	"github.com/swdee/go-yolodetect/preprocess"
	"github.com/swdee/go-yolodetect/tensor"
)

// Model is a loaded network bound to the configuration it was loaded with.
// It is only reachable through a Lease.
type Model struct {
	net      Network
	cfg      DetectorConfig
	loadedAt time.Time
}

// Config returns a copy of the configuration the Model was loaded with
func (m *Model) Config() DetectorConfig {
	return m.cfg.clone()
}

// ClassNames returns the class table of the Model
func (m *Model) ClassNames() []string {
	return append([]string(nil), m.cfg.ClassNames...)
}

// InputSize returns the square side of the network input
func (m *Model) InputSize() int {
	return m.cfg.InputSize
}

// LoadedAt returns the time the Model was loaded
func (m *Model) LoadedAt() time.Time {
	return m.loadedAt
}

// close releases the network, only the Detector unloads a Model
func (m *Model) close() error {

	if m.net == nil {
		return nil
	}

	err := m.net.Close()
	m.net = nil

	return err
}

// infer runs the network on the prepared input tensor and post processes
// the outputs into detections in original image space
func (m *Model) infer(input *tensor.Tensor, geom preprocess.Geometry,
	p postprocess.YOLOv8Params, ids *result.IDGenerator) ([]result.BoxDetection, error) {

	if m.net == nil {
		return nil, newError(ModelNotLoaded, nil, "model has been closed")
	}

	outputs, err := m.net.Run(input)

	if err != nil {
		return nil, newError(InferenceFailed, err, "network run failed")
	}

	p.ObjectClassNum = len(m.cfg.ClassNames)

	res, err := postprocess.NewYOLOv8WithIDs(p, ids).DetectObjects(outputs, geom)

	if err != nil {
		return nil, newError(MalformedOutputTensor, err, "unable to decode output")
	}

	return res.GetDetectResults(), nil
}

// preprocessError maps a preprocess failure onto an ErrorCode
func preprocessError(err error) error {

	if errors.Is(err, preprocess.ErrInvalidInputSize) {
		return newError(ConfigMalformed, err, "model input size")
	}

	return newError(InvalidImage, err, "unable to prepare image")
}

// Result is the outcome of a single detection request
type Result struct {
	// RequestID uniquely identifies the detection request
	RequestID string `json:"request_id"`
	// Detections are the boxes kept after suppression, in original image
	// coordinates
	Detections []result.BoxDetection `json:"detections"`
	// ClassNames is the class table of the Model used
	ClassNames []string `json:"-"`
	// Geometry is the frame geometry of the source image
	Geometry preprocess.Geometry `json:"-"`
	// Duration is the time taken from preprocessing to rescaling
	Duration time.Duration `json:"-"`
}

// GetDetectResults returns the detections so a Result can be used as a
// result.DetectionResult
func (r *Result) GetDetectResults() []result.BoxDetection {
	return r.Detections
}

// Label returns the class label of the detection
func (r *Result) Label(det result.BoxDetection) string {

	if det.Class < 0 || det.Class >= len(r.ClassNames) {
		return fmt.Sprintf("class %d", det.Class)
	}

	return r.ClassNames[det.Class]
}
