package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexanderramin/awp4d/internal/app"
	"gopkg.in/yaml.v3"
)

// profile is the YAML layout of an options file: an optional preset name
// followed by option overrides.
type profile struct {
	Preset              string `yaml:"preset"`
	app.PipelineOptions `yaml:",inline"`
}

// LoadOptionsFile reads a YAML profile. Keys it sets override the named
// preset (default when omitted); durations use Go syntax such as 500ms.
// Unknown keys are rejected and the result is validated.
func LoadOptionsFile(path string) (app.PipelineOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.PipelineOptions{}, fmt.Errorf("reading options file: %w", err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return app.PipelineOptions{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes profile content. See LoadOptionsFile.
func ParseOptions(data []byte) (app.PipelineOptions, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return app.PipelineOptions{}, fmt.Errorf("parsing options: %w", err)
	}
	base, err := app.Preset(head.Preset)
	if err != nil {
		return app.PipelineOptions{}, err
	}

	p := profile{PipelineOptions: base}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return app.PipelineOptions{}, fmt.Errorf("parsing options: %w", err)
	}
	if err := p.PipelineOptions.Validate(); err != nil {
		return app.PipelineOptions{}, err
	}
	return p.PipelineOptions, nil
}

// WriteOptions renders opts as a profile that ParseOptions reads back.
func WriteOptions(w io.Writer, opts app.PipelineOptions) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(opts); err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}
	return enc.Close()
}
