package io

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/pkg/models"
	"gopkg.in/yaml.v3"
)

// ManifestWriter records the outcome of every job of a run
type ManifestWriter struct {
	Config *config.OutputConfig
	fs     afero.Fs
}

// NewManifestWriter creates a new manifest writer
func NewManifestWriter(fs afero.Fs, config *config.OutputConfig) *ManifestWriter {
	return &ManifestWriter{
		Config: config,
		fs:     fs,
	}
}

// Enabled reports whether a manifest file is configured
func (w *ManifestWriter) Enabled() bool {
	return w.Config.ManifestFile != ""
}

// Save writes the outcomes to the manifest file in the configured format
func (w *ManifestWriter) Save(outcomes []models.Outcome) error {
	var (
		data []byte
		err  error
	)
	switch w.Config.ManifestFormat {
	case "json", "":
		data, err = json.MarshalIndent(outcomes, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(outcomes)
	default:
		return fmt.Errorf("unsupported manifest format: %s", w.Config.ManifestFormat)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(w.Config.ManifestFile); dir != "." {
		if err := w.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return afero.WriteFile(w.fs, w.Config.ManifestFile, data, 0644)
}
