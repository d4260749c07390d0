package yolodetect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// EnvPrefix is the prefix of environment variables overriding values from
// the configuration file, eg: YOLODETECT_MODEL_PATH
const EnvPrefix = "YOLODETECT_"

// DetectorConfig defines the Model artifact and its class table
type DetectorConfig struct {
	// ModelPath is the path to the ONNX model file
	ModelPath string `koanf:"model_path"`
	// ClassNames are the class labels, the index being the class ID
	ClassNames []string `koanf:"class_names"`
	// InputSize is the square side length of the Model input tensor
	InputSize int `koanf:"input_size"`
	// LabelsFile is a text file of class labels, one per line, used when
	// ClassNames is empty
	LabelsFile string `koanf:"labels_file"`
	// Backend names the inference executor to bind the Model with
	Backend string `koanf:"backend"`
	// Highlight lists the class labels to draw when annotating, empty means
	// all classes
	Highlight []string `koanf:"highlight"`
}

// LoadConfig reads and validates the DetectorConfig from the given JSON or
// YAML file, with environment variable overrides applied.  Relative model
// and labels paths are resolved against the directory of the file.
func LoadConfig(path string) (DetectorConfig, error) {

	info, err := os.Stat(path)

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DetectorConfig{}, newError(ConfigNotFound, err, "%s does not exist", path)
		}
		return DetectorConfig{}, newError(ConfigNotFound, err, "unable to stat %s", path)
	}

	if info.IsDir() {
		return DetectorConfig{}, newError(ConfigNotFound, nil, "%s is a directory", path)
	}

	var parser koanf.Parser = json.Parser()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), parser); err != nil {
		return DetectorConfig{}, newError(ConfigMalformed, err, "invalid config file %s", path)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if strings.Contains(v, ",") {
			return key, splitList(v)
		}
		return key, strings.TrimSpace(v)
	}), nil); err != nil {
		return DetectorConfig{}, newError(ConfigMalformed, err, "invalid environment overrides")
	}

	var cfg DetectorConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return DetectorConfig{}, newError(ConfigMalformed, err, "invalid config file %s", path)
	}

	dir := filepath.Dir(path)
	cfg.ModelPath = resolvePath(dir, cfg.ModelPath)
	cfg.LabelsFile = resolvePath(dir, cfg.LabelsFile)

	if err := cfg.Validate(); err != nil {
		return DetectorConfig{}, err
	}

	return cfg, nil
}

// splitList splits a comma separated value into its trimmed items
func splitList(v string) []string {

	items := strings.Split(v, ",")

	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}

	return items
}

// resolvePath joins a relative path onto dir
func resolvePath(dir, path string) string {

	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}

// Validate checks the configuration invariants and loads the class table
// from LabelsFile when no ClassNames are given
func (c *DetectorConfig) Validate() error {

	for i := range c.ClassNames {
		c.ClassNames[i] = strings.TrimSpace(c.ClassNames[i])
	}

	for i := range c.Highlight {
		c.Highlight[i] = strings.TrimSpace(c.Highlight[i])
	}

	if len(c.ClassNames) == 0 && c.LabelsFile != "" {
		labels, err := LoadLabels(c.LabelsFile)

		if err != nil {
			return newError(ConfigMalformed, err, "unable to read labels file")
		}

		c.ClassNames = labels
	}

	if len(c.ClassNames) == 0 {
		return newError(ConfigMalformed, nil, "class_names must not be empty")
	}

	if c.InputSize <= 0 {
		return newError(ConfigMalformed, nil, "input_size must be positive, got %d", c.InputSize)
	}

	if c.ModelPath == "" {
		return newError(ConfigMalformed, nil, "model_path must be set")
	}

	info, err := os.Stat(c.ModelPath)

	if err != nil {
		return newError(ModelArtifactMissing, err, "model file does not exist at %s", c.ModelPath)
	}

	if info.IsDir() {
		return newError(ModelArtifactMissing, nil, "model file %s is a directory", c.ModelPath)
	}

	return nil
}

// clone returns a deep copy so the Model's configuration can not be changed
// through the caller's slices
func (c DetectorConfig) clone() DetectorConfig {
	c.ClassNames = append([]string(nil), c.ClassNames...)
	c.Highlight = append([]string(nil), c.Highlight...)
	return c
}

// String returns a short description of the configuration
func (c DetectorConfig) String() string {
	return fmt.Sprintf("model=%s, classes=%d, input=%d, backend=%s",
		c.ModelPath, len(c.ClassNames), c.InputSize, c.Backend)
}
