package onion

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Config holds everything one clustering run (and the surrounding
// parameter sweep) needs. There is no ambient state: every component
// receives the values it uses explicitly.
type Config struct {
	DataFile string `json:"data_file"`

	// Core analysis parameters
	TauWindow       int     `json:"tau_window"`
	TSmooth         int     `json:"t_smooth"`
	Bins            int     `json:"bins"`
	MaxOverlap      float64 `json:"max_overlap"`
	SigmaMultiplier float64 `json:"sigma_multiplier"`
	MinGap          int     `json:"min_gap,omitempty"`

	// Optional domain-bound override for the outer thresholds,
	// [min, max]. When absent the global data range is used.
	RangeOverride []float64 `json:"range_override,omitempty"`

	// Parameter sweep grid
	MinTauW     int `json:"min_tau_w"`
	MaxTauW     int `json:"max_tau_w"`
	NumTauW     int `json:"num_tau_w"`
	MinTSmooth  int `json:"min_t_smooth"`
	MaxTSmooth  int `json:"max_t_smooth"`
	StepTSmooth int `json:"step_t_smooth"`

	// Collaborators
	ArchivePath string `json:"archive_path,omitempty"`
	ListenAddr  string `json:"listen_addr,omitempty"`
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	if err := validateLoad(file); err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

func LoadConfig(file *os.File) (*Config, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	// decode json
	var config Config
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		slog.Error("Malformed configuration", slog.Any("Error", err))
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Bins == 0 {
		c.Bins = 50
	}
	if c.SigmaMultiplier == 0 {
		c.SigmaMultiplier = 2.0
	}
	if c.MaxOverlap == 0 {
		c.MaxOverlap = 0.8
	}
	if c.TSmooth == 0 {
		c.TSmooth = 1
	}
}

// Validate fails fast, before any array is touched.
func (c *Config) Validate() error {
	if c.TauWindow <= 0 {
		return fmt.Errorf("tau_window must be positive, got %d", c.TauWindow)
	}
	if c.TSmooth <= 0 {
		return fmt.Errorf("t_smooth must be positive, got %d", c.TSmooth)
	}
	if c.TSmooth%2 == 0 {
		return fmt.Errorf("t_smooth must be odd, got %d", c.TSmooth)
	}
	if c.Bins < 2 {
		return fmt.Errorf("bins must be at least 2, got %d", c.Bins)
	}
	if c.MaxOverlap <= 0 || c.MaxOverlap > 1 {
		return fmt.Errorf("max_overlap must be in (0, 1], got %g", c.MaxOverlap)
	}
	if c.SigmaMultiplier <= 0 {
		return fmt.Errorf("sigma_multiplier must be positive, got %g", c.SigmaMultiplier)
	}
	if c.MinGap < 0 {
		return fmt.Errorf("min_gap must not be negative, got %d", c.MinGap)
	}
	if c.MinGap >= c.Bins {
		return fmt.Errorf("min_gap %d leaves no histogram after smoothing %d bins", c.MinGap, c.Bins)
	}
	if len(c.RangeOverride) != 0 {
		if len(c.RangeOverride) != 2 {
			return fmt.Errorf("range_override needs exactly [min, max], got %d values", len(c.RangeOverride))
		}
		if c.RangeOverride[0] >= c.RangeOverride[1] {
			return errors.New("range_override min must be below max")
		}
	}
	return nil
}

// WithWindow copies the config with a different window and smoothing,
// for one cell of the parameter sweep.
func (c *Config) WithWindow(tauWindow, tSmooth int) *Config {
	out := *c
	out.TauWindow = tauWindow
	out.TSmooth = tSmooth
	return &out
}
