package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/backend"
	"github.com/swdee/go-yolodetect/ortexec"
	"github.com/swdee/go-yolodetect/postprocess"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gocv.io/x/gocv"
)

func main() {

	// read in cli flags
	cfgFile := flag.String("c", "../data/config.json", "Detector configuration file")
	imgFile := flag.String("i", "../data/bus.jpg", "Image file to run object detection on")
	outFile := flag.String("o", "../data/bus-yolo-out.jpg", "The output JPG file with object detection markers")
	boxThresh := flag.Float64("t", 0.5, "Minimum confidence of a detection")
	nmsThresh := flag.Float64("n", 0.5, "NMS overlap threshold")
	ortLib := flag.String("l", "", "Path to the onnxruntime shared library")
	debug := flag.Bool("d", false, "Enable debug logging")

	flag.Parse()

	log, err := newLogger(*debug)

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}

	defer log.Sync()

	if err := run(log, *cfgFile, *imgFile, *outFile, *ortLib,
		float32(*boxThresh), float32(*nmsThresh)); err != nil {
		log.Fatal("Detection failed", zap.Error(err))
	}
}

// newLogger returns a console logger for the command line
func newLogger(debug bool) (*zap.Logger, error) {

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func run(log *zap.Logger, cfgFile, imgFile, outFile, ortLib string,
	boxThresh, nmsThresh float32) error {

	cfg, err := yolodetect.LoadConfig(cfgFile)

	if err != nil {
		return err
	}

	det := yolodetect.New(backend.Factory(ortexec.Options{LibraryPath: ortLib}),
		yolodetect.WithLogger(log))
	defer det.Close()

	ctx := context.Background()

	if err := det.Load(ctx, cfg); err != nil {
		return err
	}

	data, err := os.ReadFile(imgFile)

	if err != nil {
		return fmt.Errorf("error reading image: %w", err)
	}

	img, err := yolodetect.DecodeImage(data)

	if err != nil {
		return err
	}

	defer img.Close()

	params := postprocess.YOLOv8DefaultParams()
	params.BoxThreshold = boxThresh
	params.NMSThreshold = nmsThresh

	res, err := det.DetectMat(ctx, img, params)

	if err != nil {
		return err
	}

	for _, d := range res.Detections {
		fmt.Printf("%s @ (%d %d %d %d) %f\n", res.Label(d),
			d.XMin, d.YMin, d.XMax, d.YMax, d.Confidence)
	}

	log.Info("Detection time", zap.Duration("took", res.Duration))

	yolodetect.Annotate(&img, res, cfg.Highlight)

	if ok := gocv.IMWrite(outFile, img); !ok {
		return fmt.Errorf("failed to save image to %s", outFile)
	}

	log.Info("Saved object detection result", zap.String("file", outFile))

	return nil
}
