package postprocess

import (
	"fmt"

	"github.com/swdee/go-yolodetect/postprocess/result"
	"github.com/swdee/go-yolodetect/preprocess"
	"github.com/swdee/go-yolodetect/tensor"
	"gonum.org/v1/gonum/floats"
)

// YOLOv8 defines the struct for YOLOv8 model inference post processing of
// the single [1, 4+C, A] output tensor produced by ONNX exported models
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// idGen is the counter that increments and provides the next number
	// for each detection result ID
	idGen *result.IDGenerator
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// ConfidenceFloor is the pre-filter applied while decoding, anchors whose
	// best class score is not above it are discarded before NMS
	ConfidenceFloor float32
	// BoxThreshold is the minimum probability score required for a bounding box
	// to be considered by NMS
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with.  When set the output tensor must have 4+ObjectClassNum
	// channels
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned, zero means no limit
	MaxObjectNumber int
	// ClampBoxes restricts the returned boxes to the original image bounds
	ClampBoxes bool
}

// YOLOv8DefaultParams returns an instance of YOLOv8Params configured with
// default values featuring:
// - Confidence Floor: 0.25
// - Box Threshold: 0.5
// - NMS Threshold: 0.5
// - Clamp Boxes: true
func YOLOv8DefaultParams() YOLOv8Params {
	return YOLOv8Params{
		ConfidenceFloor: 0.25,
		BoxThreshold:    0.5,
		NMSThreshold:    0.5,
		ClampBoxes:      true,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return NewYOLOv8WithIDs(p, result.NewIDGenerator())
}

// NewYOLOv8WithIDs returns an instance of the YOLOv8 post processor that
// shares the given ID generator, so IDs stay unique across processors
func NewYOLOv8WithIDs(p YOLOv8Params, idGen *result.IDGenerator) *YOLOv8 {
	return &YOLOv8{
		Params: p,
		idGen:  idGen,
	}
}

// YOLOv8Result defines a struct used for object detection results
type YOLOv8Result struct {
	DetectResults []result.BoxDetection
}

// GetDetectResults returns the object detection results containing bounding
// boxes
func (r YOLOv8Result) GetDetectResults() []result.BoxDetection {
	return r.DetectResults
}

// DetectObjects takes the Model outputs and runs the object detection process
// of decoding, suppression and rescaling, then returns the results in the
// original image coordinates described by geom
func (y *YOLOv8) DetectObjects(outputs []*tensor.Tensor,
	geom preprocess.Geometry) (result.DetectionResult, error) {

	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("%w: no output tensors", ErrMalformedOutput)
	}

	cands, err := y.Decode(outputs[0])

	if err != nil {
		return nil, err
	}

	keep := Suppress(cands, y.Params.BoxThreshold, y.Params.NMSThreshold)

	// collate objects into a result for returning
	group := make([]result.BoxDetection, 0, len(keep))

	for _, n := range keep {

		if y.Params.MaxObjectNumber > 0 && len(group) >= y.Params.MaxObjectNumber {
			break
		}

		cand := cands[n]
		box := Rescale(cand.Rect(), geom)

		if y.Params.ClampBoxes {
			box = ClampRect(box, geom.OriginalWidth, geom.OriginalHeight)
		}

		group = append(group, result.BoxDetection{
			XMin:       box.Min.X,
			YMin:       box.Min.Y,
			XMax:       box.Max.X,
			YMax:       box.Max.Y,
			Class:      cand.Class,
			Confidence: cand.Confidence,
			ID:         y.idGen.GetNext(),
		})
	}

	return YOLOv8Result{
		DetectResults: group,
	}, nil
}

// Decode interprets the raw output tensor of shape [1, 4+C, A] where each of
// the A anchors holds the box center x, center y, width and height followed
// by C class scores.  Anchors whose best class score is above the confidence
// floor are returned as candidates.
func (y *YOLOv8) Decode(out *tensor.Tensor) ([]RawCandidate, error) {

	view, err := out.View3()

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if view.D0 != 1 {
		return nil, fmt.Errorf("%w: expected batch size 1, got %d",
			ErrMalformedOutput, view.D0)
	}

	channels := view.D1
	numClasses := channels - 4

	if numClasses < 1 {
		return nil, fmt.Errorf("%w: expected at least 5 channels, got %d",
			ErrMalformedOutput, channels)
	}

	if y.Params.ObjectClassNum > 0 && numClasses != y.Params.ObjectClassNum {
		return nil, fmt.Errorf("%w: %d channels do not match 4 box values + %d classes",
			ErrMalformedOutput, channels, y.Params.ObjectClassNum)
	}

	anchors := view.D2
	scores := make([]float64, numClasses)
	cands := make([]RawCandidate, 0)

	for a := 0; a < anchors; a++ {

		for c := 0; c < numClasses; c++ {
			scores[c] = float64(view.At(0, 4+c, a))
		}

		// first maximum wins so ties resolve to the lowest class index
		maxIdx := floats.MaxIdx(scores)
		maxScore := float32(scores[maxIdx])

		if maxScore <= y.Params.ConfidenceFloor {
			continue
		}

		cands = append(cands, RawCandidate{
			CX:         view.At(0, 0, a),
			CY:         view.At(0, 1, a),
			W:          view.At(0, 2, a),
			H:          view.At(0, 3, a),
			Class:      maxIdx,
			Confidence: maxScore,
		})
	}

	return cands, nil
}
