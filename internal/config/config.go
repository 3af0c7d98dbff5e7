package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Corpus CorpusConfig `yaml:"corpus"`
	Model  ModelConfig  `yaml:"model"`
	LBPH   LBPHConfig   `yaml:"lbph"`
	Web    WebConfig    `yaml:"web"`
}

type CorpusConfig struct {
	Dir string `yaml:"dir"` // root holding one directory per identity
}

type ModelConfig struct {
	Path string `yaml:"path"` // model artifact; its presence selects resume over bootstrap
}

// LBPHConfig holds the recognizer parameters. Changing Radius, GridX, GridY
// or FaceSize invalidates an existing model artifact.
type LBPHConfig struct {
	Radius    int     `yaml:"radius"`
	GridX     int     `yaml:"grid_x"`
	GridY     int     `yaml:"grid_y"`
	FaceSize  int     `yaml:"face_size"`
	Threshold float64 `yaml:"threshold"` // max cosine distance still counted as a match
	Neighbors int     `yaml:"neighbors"` // candidates requested from the index per prediction
	EfSearch  int     `yaml:"ef_search"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults Config
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Corpus: CorpusConfig{
			Dir: envString("FACES_DIR", defaults.Corpus.Dir),
		},
		Model: ModelConfig{
			Path: envString("MODEL_PATH", defaults.Model.Path),
		},
		LBPH: LBPHConfig{
			Radius:    envInt("LBPH_RADIUS", defaults.LBPH.Radius),
			GridX:     envInt("LBPH_GRID_X", defaults.LBPH.GridX),
			GridY:     envInt("LBPH_GRID_Y", defaults.LBPH.GridY),
			FaceSize:  envInt("LBPH_FACE_SIZE", defaults.LBPH.FaceSize),
			Threshold: envFloat("LBPH_THRESHOLD", defaults.LBPH.Threshold),
			Neighbors: envInt("LBPH_NEIGHBORS", defaults.LBPH.Neighbors),
			EfSearch:  envInt("LBPH_EF_SEARCH", defaults.LBPH.EfSearch),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", defaults.Web.Host),
			Port: envInt("WEB_PORT", defaults.Web.Port),
		},
	}
}
