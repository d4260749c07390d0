package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/backend"
	"github.com/swdee/go-yolodetect/ortexec"
	"github.com/swdee/go-yolodetect/postprocess"
	"github.com/swdee/go-yolodetect/postprocess/result"
	"go.uber.org/zap"
)

// maxImageSize is the largest image upload accepted
const maxImageSize = 32 << 20

// ImageData is an encoded image returned to the client
type ImageData struct {
	Encoded string `json:"encoded"`
	Format  string `json:"format"`
}

// DetectResponse is the result of a detection request
type DetectResponse struct {
	RequestID  string          `json:"request_id"`
	Detections []DetectionJSON `json:"detections"`
	DurationMS int64           `json:"duration_ms"`
	Image      ImageData       `json:"image"`
}

// DetectionJSON is a detection with its class label
type DetectionJSON struct {
	result.BoxDetection
	Label string `json:"label"`
}

// Server exposes a Detector over HTTP.  A client uploads an image, loads the
// model and then runs detection on the uploaded image.
type Server struct {
	det     *yolodetect.Detector
	cfgPath string
	log     *zap.Logger

	mu        sync.Mutex
	image     []byte
	format    string
	highlight []string
}

// NewServer returns a Server for the detector, cfgPath is the configuration
// file loaded by load requests
func NewServer(det *yolodetect.Detector, cfgPath string, log *zap.Logger) *Server {
	return &Server{
		det:     det,
		cfgPath: cfgPath,
		log:     log,
	}
}

// Router returns the gin engine with the Server routes registered
func (s *Server) Router() *gin.Engine {

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.POST("/model/load", s.handleLoad)
	r.POST("/model/unload", s.handleUnload)
	r.POST("/image", s.handleImage)
	r.POST("/detect", s.handleDetect)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model":  s.det.State().String(),
	})
}

// handleLoad (re)loads the model from the server's configuration file, so
// edits to the file are picked up without a restart
func (s *Server) handleLoad(c *gin.Context) {

	cfg, err := yolodetect.LoadConfig(s.cfgPath)

	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.det.Load(c.Request.Context(), cfg); err != nil {
		s.fail(c, err)
		return
	}

	s.mu.Lock()
	s.highlight = cfg.Highlight
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "OK", "classes": len(cfg.ClassNames)})
}

func (s *Server) handleUnload(c *gin.Context) {

	if err := s.det.Unload(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// handleImage stores the uploaded image, sent either as the multipart form
// field "image" or as the raw request body
func (s *Server) handleImage(c *gin.Context) {

	data, err := readImage(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := yolodetect.DecodeImage(data)

	if err != nil {
		s.fail(c, err)
		return
	}

	img.Close()

	format := "jpeg"

	if http.DetectContentType(data) == "image/png" {
		format = "png"
	}

	s.mu.Lock()
	s.image = data
	s.format = format
	s.mu.Unlock()

	c.JSON(http.StatusOK, ImageData{
		Encoded: base64.StdEncoding.EncodeToString(data),
		Format:  format,
	})
}

func readImage(c *gin.Context) ([]byte, error) {

	if fh, err := c.FormFile("image"); err == nil {
		if fh.Size > maxImageSize {
			return nil, errors.New("image is too large")
		}

		f, err := fh.Open()

		if err != nil {
			return nil, err
		}

		defer f.Close()

		return io.ReadAll(f)
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImageSize+1))

	if err != nil {
		return nil, err
	}

	if len(data) > maxImageSize {
		return nil, errors.New("image is too large")
	}

	return data, nil
}

func (s *Server) handleDetect(c *gin.Context) {

	params := postprocess.YOLOv8DefaultParams()

	if v, ok := c.GetQuery("conf"); ok {
		f, err := strconv.ParseFloat(v, 32)

		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conf"})
			return
		}

		params.BoxThreshold = float32(f)
	}

	if v, ok := c.GetQuery("nms"); ok {
		f, err := strconv.ParseFloat(v, 32)

		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid nms"})
			return
		}

		params.NMSThreshold = float32(f)
	}

	s.mu.Lock()
	data := s.image
	highlight := s.highlight
	s.mu.Unlock()

	img, err := yolodetect.DecodeImage(data)

	if err != nil {
		s.fail(c, err)
		return
	}

	defer img.Close()

	res, err := s.det.DetectMat(c.Request.Context(), img, params)

	if err != nil {
		s.fail(c, err)
		return
	}

	yolodetect.Annotate(&img, res, highlight)

	encoded, err := yolodetect.EncodeJPEG(img)

	if err != nil {
		s.fail(c, err)
		return
	}

	dets := make([]DetectionJSON, len(res.Detections))

	for i, d := range res.Detections {
		dets[i] = DetectionJSON{BoxDetection: d, Label: res.Label(d)}
	}

	c.JSON(http.StatusOK, DetectResponse{
		RequestID:  res.RequestID,
		Detections: dets,
		DurationMS: res.Duration.Milliseconds(),
		Image: ImageData{
			Encoded: base64.StdEncoding.EncodeToString(encoded),
			Format:  "jpeg",
		},
	})
}

// fail writes the error response with a status derived from the error code
func (s *Server) fail(c *gin.Context, err error) {

	status := http.StatusInternalServerError

	switch yolodetect.CodeOf(err) {
	case yolodetect.NoImageLoaded, yolodetect.ModelNotLoaded:
		status = http.StatusConflict
	case yolodetect.InvalidImage:
		status = http.StatusBadRequest
	case yolodetect.ConfigNotFound:
		status = http.StatusNotFound
	case yolodetect.ConfigMalformed, yolodetect.ModelArtifactMissing:
		status = http.StatusUnprocessableEntity
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = http.StatusServiceUnavailable
	}

	s.log.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  yolodetect.CodeOf(err).String(),
	})
}

func main() {

	cfgFile := flag.String("c", "../data/config.json", "Detector configuration file")
	httpAddr := flag.String("a", "localhost:8080", "HTTP Address to run server on, format address:port")
	ortLib := flag.String("l", "", "Path to the onnxruntime shared library")
	flag.Parse()

	log, err := zap.NewProduction()

	if err != nil {
		os.Stderr.WriteString("error creating logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	defer log.Sync()

	if _, err := yolodetect.LoadConfig(*cfgFile); err != nil {
		log.Fatal("Error reading config", zap.Error(err))
	}

	det := yolodetect.New(backend.Factory(ortexec.Options{LibraryPath: *ortLib}),
		yolodetect.WithLogger(log))
	defer det.Close()

	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:              *httpAddr,
		Handler:           NewServer(det, *cfgFile, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Listening", zap.String("addr", *httpAddr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server stopped", zap.Error(err))
	}
}
