package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yolodetect "github.com/swdee/go-yolodetect"
	"github.com/swdee/go-yolodetect/tensor"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// cannedNetwork always returns a single box of class 0 in the top left
type cannedNetwork struct{}

func (cannedNetwork) Run(input *tensor.Tensor) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{mustTensor([]int{1, 5, 1}, []float32{16, 16, 8, 8, 0.9})}, nil
}

func (cannedNetwork) Close() error { return nil }

func mustTensor(shape []int, data []float32) *tensor.Tensor {
	t, err := tensor.New(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// testConfig is the server configuration, a single class model with a 32px
// input
const testConfig = `{"model_path": "model.onnx", "class_names": ["person"], "input_size": 32}`

// newTestServer returns a router for a server whose configuration file holds
// cfg, no file is written when cfg is empty
func newTestServer(t *testing.T, cfg string) (*gin.Engine, *yolodetect.Detector) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("onnx"), 0o644))
	cfgPath := filepath.Join(dir, "config.json")

	if cfg != "" {
		require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	}

	newExec := func(name string) (yolodetect.Executor, error) {
		if name != "" {
			return nil, fmt.Errorf("unknown backend %q", name)
		}
		return yolodetect.ExecutorFunc(func(string) (yolodetect.Network, error) {
			return cannedNetwork{}, nil
		}), nil
	}

	det := yolodetect.New(newExec)
	t.Cleanup(func() { det.Close() })

	return NewServer(det, cfgPath, zap.NewNop()).Router(), det
}

func pngImage(t *testing.T) []byte {
	t.Helper()

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(50, 100, 150, 0), 64, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	require.NoError(t, err)
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...)
}

func do(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestDetectFlow(t *testing.T) {

	r, det := newTestServer(t, testConfig)

	// nothing loaded yet
	w := do(r, http.MethodPost, "/detect", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/image", pngImage(t))
	require.Equal(t, http.StatusOK, w.Code)

	var img ImageData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &img))
	assert.Equal(t, "png", img.Format)

	w = do(r, http.MethodPost, "/detect", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "model is not loaded")

	w = do(r, http.MethodPost, "/model/load", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, yolodetect.StateLoaded, det.State())

	w = do(r, http.MethodPost, "/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Detections, 1)
	assert.Equal(t, "person", resp.Detections[0].Label)
	// 64px image into a 32px model doubles the box
	assert.Equal(t, 24, resp.Detections[0].XMin)
	assert.Equal(t, 40, resp.Detections[0].XMax)
	assert.Equal(t, "jpeg", resp.Image.Format)
	assert.NotEmpty(t, resp.Image.Encoded)
	assert.NotEmpty(t, resp.RequestID)
}

func TestUploadRejectsText(t *testing.T) {

	r, _ := newTestServer(t, testConfig)

	w := do(r, http.MethodPost, "/image", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadMissingConfig(t *testing.T) {

	r, det := newTestServer(t, "")

	w := do(r, http.MethodPost, "/model/load", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, yolodetect.StateUnloaded, det.State())
}

func TestLoadIgnoresRequestedPath(t *testing.T) {

	r, det := newTestServer(t, testConfig)

	other := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(other,
		[]byte(`{"model_path": "/etc/passwd", "class_names": ["a", "b"], "input_size": 32}`), 0o644))

	w := do(r, http.MethodPost, "/model/load", []byte(`{"config": "`+other+`"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"classes":1`)
	assert.Equal(t, yolodetect.StateLoaded, det.State())
}

func TestLoadUnknownBackend(t *testing.T) {

	r, det := newTestServer(t,
		`{"model_path": "model.onnx", "class_names": ["person"], "input_size": 32, "backend": "bogus"}`)

	w := do(r, http.MethodPost, "/model/load", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "model failed to load")
	assert.Equal(t, yolodetect.StateUnloaded, det.State())
}

func TestUploadTooLarge(t *testing.T) {

	r, _ := newTestServer(t, testConfig)

	// a valid image followed by padding past the limit is rejected, not cut
	data := append(pngImage(t), make([]byte, maxImageSize)...)

	w := do(r, http.MethodPost, "/image", data)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too large")
}

func TestHealth(t *testing.T) {

	r, _ := newTestServer(t, testConfig)

	w := do(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model":"unloaded"`)
}
