package graphics2d

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// MaxBlendStyles is the hard ceiling of light-accumulation texture slots.
// The per-batch target arrays are sized by it; configurations asking for
// more styles are clamped at load time, never mid-frame.
const MaxBlendStyles = 4

type Color [4]float32

var (
	ColorBlack = Color{0, 0, 0, 1}
	ColorWhite = Color{1, 1, 1, 1}
)

type BlendMode uint32

const (
	BlendModeAdditive BlendMode = iota
	BlendModeModulate
	BlendModeSubtractive
)

var blendModeNames = map[BlendMode]string{
	BlendModeAdditive:    "additive",
	BlendModeModulate:    "modulate",
	BlendModeSubtractive: "subtractive",
}

func (m BlendMode) String() string {
	if name, ok := blendModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BlendMode(%d)", uint32(m))
}

func parseBlendMode(name string) (BlendMode, error) {
	for mode, n := range blendModeNames {
		if n == name {
			return mode, nil
		}
	}
	return BlendModeAdditive, fmt.Errorf("unknown blend mode %q", name)
}

// BlendStyle is one named lighting-accumulation channel. The slot index is
// its position in RendererConfig.BlendStyles.
type BlendStyle struct {
	Name string
	Mode BlendMode
}

// RendererConfig is the immutable per-pass configuration. Validate (or
// LoadRendererConfig, which validates) must run before the config reaches a
// pass; Execute assumes a well-formed config.
type RendererConfig struct {
	BlendStyles       []BlendStyle
	BatchSize         int
	SortMode          TransparencySortMode
	SortAxis          mgl32.Vec3
	HDREmulationScale float32
	DefaultTint       Color
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		BlendStyles: []BlendStyle{
			{Name: "multiply", Mode: BlendModeModulate},
			{Name: "additive", Mode: BlendModeAdditive},
		},
		BatchSize:         4,
		SortMode:          SortModeDefault,
		SortAxis:          mgl32.Vec3{0, 1, 0},
		HDREmulationScale: 1,
		DefaultTint:       ColorWhite,
	}
}

// Validate normalizes the config in place. Excess blend styles are clamped
// to MaxBlendStyles with a warning rather than failing the whole config;
// an empty style list is the one unrecoverable case.
func (c *RendererConfig) Validate(log Logger) error {
	if log == nil {
		log = NewNopLogger()
	}
	if len(c.BlendStyles) == 0 {
		return fmt.Errorf("renderer config: at least one blend style is required")
	}
	if len(c.BlendStyles) > MaxBlendStyles {
		log.Warnf("renderer config: %d blend styles configured, clamping to %d", len(c.BlendStyles), MaxBlendStyles)
		c.BlendStyles = c.BlendStyles[:MaxBlendStyles]
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("renderer config: batch size must be positive, got %d", c.BatchSize)
	}
	if c.HDREmulationScale <= 0 {
		return fmt.Errorf("renderer config: HDR emulation scale must be positive, got %v", c.HDREmulationScale)
	}
	return nil
}

type blendStyleYAML struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
}

type rendererConfigYAML struct {
	BlendStyles       []blendStyleYAML `yaml:"blend_styles"`
	BatchSize         int              `yaml:"batch_size"`
	SortMode          string           `yaml:"transparency_sort_mode"`
	SortAxis          []float32        `yaml:"transparency_sort_axis"`
	HDREmulationScale float32          `yaml:"hdr_emulation_scale"`
	DefaultTint       []float32        `yaml:"default_tint"`
}

// LoadRendererConfig reads a YAML renderer configuration. Missing fields
// fall back to DefaultRendererConfig values; the result is validated.
func LoadRendererConfig(filename string, log Logger) (RendererConfig, error) {
	cfg := DefaultRendererConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}

	var raw rendererConfigYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("renderer config %s: %w", filename, err)
	}

	if len(raw.BlendStyles) > 0 {
		cfg.BlendStyles = cfg.BlendStyles[:0]
		for _, style := range raw.BlendStyles {
			mode, err := parseBlendMode(style.Mode)
			if err != nil {
				return cfg, fmt.Errorf("renderer config %s: %w", filename, err)
			}
			cfg.BlendStyles = append(cfg.BlendStyles, BlendStyle{Name: style.Name, Mode: mode})
		}
	}
	if raw.BatchSize != 0 {
		cfg.BatchSize = raw.BatchSize
	}
	if raw.SortMode != "" {
		mode, err := parseSortMode(raw.SortMode)
		if err != nil {
			return cfg, fmt.Errorf("renderer config %s: %w", filename, err)
		}
		cfg.SortMode = mode
	}
	if len(raw.SortAxis) == 3 {
		cfg.SortAxis = mgl32.Vec3{raw.SortAxis[0], raw.SortAxis[1], raw.SortAxis[2]}
	}
	if raw.HDREmulationScale != 0 {
		cfg.HDREmulationScale = raw.HDREmulationScale
	}
	if len(raw.DefaultTint) == 4 {
		cfg.DefaultTint = Color{raw.DefaultTint[0], raw.DefaultTint[1], raw.DefaultTint[2], raw.DefaultTint[3]}
	}

	if err := cfg.Validate(log); err != nil {
		return cfg, err
	}
	return cfg, nil
}
