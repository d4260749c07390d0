package yolodetect

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-yolodetect/postprocess"
	"github.com/swdee/go-yolodetect/postprocess/result"
	"github.com/swdee/go-yolodetect/preprocess"
	"github.com/swdee/go-yolodetect/tensor"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// State is the lifecycle state of a Detector's Model
type State int

const (
	StateUnloaded State = iota
	StateLoaded
)

// String returns the state name
func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "unloaded"
}

// Detector owns the single Model used for object detection.  Loading,
// unloading and detection are serialized through the Model's Lease so a
// reload can never run while a detection is in progress.
type Detector struct {
	newExec ExecutorFactory
	slot    *slot
	loaded  atomic.Bool
	ids     *result.IDGenerator
	log     *zap.Logger
}

// New returns an unloaded Detector.  Models are bound with the Executor
// newExec returns for the backend named in their configuration.
func New(newExec ExecutorFactory, opts ...Option) *Detector {

	d := &Detector{
		newExec: newExec,
		slot:    newSlot(),
		ids:     result.NewIDGenerator(),
		log:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// State returns whether a Model is currently loaded
func (d *Detector) State() State {

	if d.loaded.Load() {
		return StateLoaded
	}

	return StateUnloaded
}

// Acquire waits for exclusive use of the Detector's Model.  The Lease must be
// released when done.  The Model of the Lease is nil when no Model is loaded.
func (d *Detector) Acquire(ctx context.Context) (*Lease, error) {
	return d.slot.acquire(ctx)
}

// LoadFile reads the configuration at path and loads the Model it describes
func (d *Detector) LoadFile(ctx context.Context, path string) error {

	cfg, err := LoadConfig(path)

	if err != nil {
		d.log.Error("config load failed", zap.String("path", path), zap.Error(err))
		return err
	}

	return d.Load(ctx, cfg)
}

// Load replaces any loaded Model with the one described by cfg.  The current
// Model is unloaded first, so on failure the Detector is left unloaded.
func (d *Detector) Load(ctx context.Context, cfg DetectorConfig) error {

	lease, err := d.Acquire(ctx)

	if err != nil {
		return err
	}

	defer lease.Release()

	d.unload(lease)

	cfg = cfg.clone()

	if err := cfg.Validate(); err != nil {
		d.log.Error("invalid config", zap.Error(err))
		return err
	}

	exec, err := d.newExec(cfg.Backend)

	if err != nil {
		d.log.Error("backend unavailable", zap.String("backend", cfg.Backend), zap.Error(err))
		return newError(ModelLoadFailed, err, "unable to bind backend %q", cfg.Backend)
	}

	start := time.Now()
	net, err := exec.Load(cfg.ModelPath)

	if err != nil {
		d.log.Error("model load failed", zap.String("model", cfg.ModelPath), zap.Error(err))
		return newError(ModelLoadFailed, err, "unable to load %s", cfg.ModelPath)
	}

	if net == nil {
		return newError(ModelLoadFailed, nil, "executor returned no network for %s", cfg.ModelPath)
	}

	lease.swap(&Model{
		net:      net,
		cfg:      cfg,
		loadedAt: time.Now(),
	})
	d.loaded.Store(true)

	d.log.Info("model loaded",
		zap.String("model", cfg.ModelPath),
		zap.String("backend", cfg.Backend),
		zap.Int("classes", len(cfg.ClassNames)),
		zap.Int("input_size", cfg.InputSize),
		zap.Duration("took", time.Since(start)),
	)

	return nil
}

// Unload closes the loaded Model, it is a no-op when nothing is loaded
func (d *Detector) Unload(ctx context.Context) error {

	lease, err := d.Acquire(ctx)

	if err != nil {
		return err
	}

	defer lease.Release()

	return d.unload(lease)
}

// unload closes the Model held by lease and empties it
func (d *Detector) unload(lease *Lease) error {

	m := lease.Model()

	if m == nil {
		return nil
	}

	err := m.close()
	lease.swap(nil)
	d.loaded.Store(false)

	if err != nil {
		d.log.Warn("error closing model", zap.String("model", m.cfg.ModelPath), zap.Error(err))
	} else {
		d.log.Info("model unloaded", zap.String("model", m.cfg.ModelPath))
	}

	return err
}

// Close unloads the Model and rejects any further use of the Detector.  It
// waits for an in progress detection to finish.
func (d *Detector) Close() error {

	lease, err := d.Acquire(context.Background())

	if err != nil {
		// already closed
		return nil
	}

	err = d.unload(lease)
	lease.closed = true
	lease.Release()
	d.slot.shutdown()

	return err
}

// Detect decodes the JPEG or PNG image data and runs object detection on it
func (d *Detector) Detect(ctx context.Context, data []byte,
	p postprocess.YOLOv8Params) (*Result, error) {

	if len(data) == 0 {
		return nil, newError(NoImageLoaded, nil, "no image data")
	}

	// report a missing model before spending time decoding
	if d.State() != StateLoaded {
		return nil, newError(ModelNotLoaded, nil, "load a model before detecting")
	}

	img, err := DecodeImage(data)

	if err != nil {
		return nil, err
	}

	defer img.Close()

	return d.DetectMat(ctx, img, p)
}

// DetectMat runs object detection on a BGR, BGRA or grayscale gocv Mat
func (d *Detector) DetectMat(ctx context.Context, img gocv.Mat,
	p postprocess.YOLOv8Params) (*Result, error) {

	if img.Empty() {
		return nil, newError(NoImageLoaded, nil, "image is empty")
	}

	return d.run(ctx, p, func(inputSize int) (*tensor.Tensor, preprocess.Geometry, error) {

		padder, err := preprocess.NewPadder(img.Cols(), img.Rows(), inputSize)

		if err != nil {
			return nil, preprocess.Geometry{}, err
		}

		defer padder.Close()

		return padder.Prepare(img)
	})
}

// DetectImage runs object detection on a decoded Go image without using
// OpenCV for preprocessing
func (d *Detector) DetectImage(ctx context.Context, img image.Image,
	p postprocess.YOLOv8Params) (*Result, error) {

	if img == nil {
		return nil, newError(NoImageLoaded, nil, "image is nil")
	}

	return d.run(ctx, p, func(inputSize int) (*tensor.Tensor, preprocess.Geometry, error) {
		return preprocess.PrepareImage(img, inputSize)
	})
}

// prepareFunc builds the input tensor for a Model of the given input size
type prepareFunc func(inputSize int) (*tensor.Tensor, preprocess.Geometry, error)

// run performs a detection request holding the Model's Lease throughout
func (d *Detector) run(ctx context.Context, p postprocess.YOLOv8Params,
	prepare prepareFunc) (*Result, error) {

	lease, err := d.Acquire(ctx)

	if err != nil {
		return nil, err
	}

	defer lease.Release()

	m := lease.Model()

	if m == nil {
		return nil, newError(ModelNotLoaded, nil, "load a model before detecting")
	}

	reqID := uuid.NewString()
	start := time.Now()

	input, geom, err := prepare(m.InputSize())

	if err != nil {
		d.log.Warn("preprocess failed", zap.String("request_id", reqID), zap.Error(err))
		return nil, preprocessError(err)
	}

	dets, err := m.infer(input, geom, p, d.ids)

	if err != nil {
		d.log.Warn("detection failed", zap.String("request_id", reqID), zap.Error(err))
		return nil, err
	}

	res := &Result{
		RequestID:  reqID,
		Detections: dets,
		ClassNames: m.ClassNames(),
		Geometry:   geom,
		Duration:   time.Since(start),
	}

	d.log.Info("detection complete",
		zap.String("request_id", reqID),
		zap.Int("width", geom.OriginalWidth),
		zap.Int("height", geom.OriginalHeight),
		zap.Int("detections", len(dets)),
		zap.Duration("took", res.Duration),
	)

	return res, nil
}
