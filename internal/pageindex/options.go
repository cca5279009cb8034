package pageindex

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Mode selects how the Engine finds document structure.
type Mode string

const (
	// ModeAuto uses the outline, then the LLM if configured, then a single node.
	ModeAuto Mode = "auto"
	// ModeOutline only reads the embedded PDF outline.
	ModeOutline Mode = "outline"
	// ModeLLM asks the LLM to infer the table of contents from page text.
	ModeLLM Mode = "llm"
)

// Options controls a single extraction. Options are built once by LoadOptions
// and shared read-only between concurrent extractions.
type Options struct {
	Mode Mode `mapstructure:"mode" json:"mode" yaml:"mode"`

	// Model is the LLM model name used in llm mode.
	Model string `mapstructure:"model" json:"model" yaml:"model"`

	// TOCCheckPageNum is how many leading pages are sent to the LLM.
	TOCCheckPageNum int `mapstructure:"toc_check_page_num" json:"toc_check_page_num" yaml:"toc_check_page_num"`

	// MaxDepth truncates the tree below this depth. Zero keeps every level.
	MaxDepth int `mapstructure:"max_depth" json:"max_depth" yaml:"max_depth"`

	AddNodeID  bool `mapstructure:"add_node_id" json:"add_node_id" yaml:"add_node_id"`
	AddEndPage bool `mapstructure:"add_end_page" json:"add_end_page" yaml:"add_end_page"`
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() *Options {
	return &Options{
		Mode:            ModeAuto,
		Model:           "gpt-4o-2024-11-20",
		TOCCheckPageNum: 20,
		MaxDepth:        0,
		AddNodeID:       true,
		AddEndPage:      true,
	}
}

// Validate checks option values.
func (o *Options) Validate() error {
	switch o.Mode {
	case ModeAuto, ModeOutline, ModeLLM:
	default:
		return fmt.Errorf("unknown mode %q (want auto, outline or llm)", o.Mode)
	}
	if o.TOCCheckPageNum <= 0 {
		return fmt.Errorf("toc_check_page_num must be positive, got %d", o.TOCCheckPageNum)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", o.MaxDepth)
	}
	return nil
}

// LoadOptions returns the defaults with overrides applied.
// Keys match the mapstructure tags of Options; unknown keys are an error.
// Boolean options also accept "yes" and "no".
func LoadOptions(overrides map[string]any) (*Options, error) {
	opts := DefaultOptions()

	if len(overrides) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           opts,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			DecodeHook:       yesNoHook,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create options decoder: %w", err)
		}
		if err := dec.Decode(overrides); err != nil {
			return nil, fmt.Errorf("invalid options: %w", err)
		}
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// yesNoHook maps "yes"/"no" strings onto bool fields.
func yesNoHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(data.(string))) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return data, nil
}
