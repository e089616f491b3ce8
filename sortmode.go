package graphics2d

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// TransparencySortMode is the policy selecting the depth-sort metric for
// transparent draws. Default defers to the next level of configuration.
type TransparencySortMode uint32

const (
	SortModeDefault TransparencySortMode = iota
	SortModePerspective
	SortModeOrthographic
	SortModeCustomAxis
)

var sortModeNames = map[TransparencySortMode]string{
	SortModeDefault:      "default",
	SortModePerspective:  "perspective",
	SortModeOrthographic: "orthographic",
	SortModeCustomAxis:   "custom_axis",
}

func (m TransparencySortMode) String() string {
	if name, ok := sortModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TransparencySortMode(%d)", uint32(m))
}

func parseSortMode(name string) (TransparencySortMode, error) {
	for mode, n := range sortModeNames {
		if n == name {
			return mode, nil
		}
	}
	return SortModeDefault, fmt.Errorf("unknown transparency sort mode %q", name)
}

// SortMetric is the resolved distance metric a draw is sorted by.
type SortMetric uint32

const (
	SortMetricPerspective SortMetric = iota
	SortMetricOrthographic
	SortMetricCustomAxis
)

// SortSettings is the fully resolved sort policy for one frame. The same
// settings apply to the normals prepass and the geometry draw.
type SortSettings struct {
	Metric SortMetric
	Axis   mgl32.Vec3 // only meaningful for SortMetricCustomAxis
}

// resolveSortSettings turns the camera-level mode and the renderer-level
// default into a concrete metric:
//
//  1. camera Default substitutes the renderer default,
//  2. a still-Default mode resolves by camera projection,
//  3. any other explicit mode sorts along the configured custom axis.
func resolveSortSettings(cameraMode, rendererDefault TransparencySortMode, orthographic bool, axis mgl32.Vec3) SortSettings {
	mode := cameraMode
	if mode == SortModeDefault {
		mode = rendererDefault
	}
	if mode == SortModeDefault {
		if orthographic {
			mode = SortModeOrthographic
		} else {
			mode = SortModePerspective
		}
	}
	switch mode {
	case SortModePerspective:
		return SortSettings{Metric: SortMetricPerspective}
	case SortModeOrthographic:
		return SortSettings{Metric: SortMetricOrthographic}
	default:
		return SortSettings{Metric: SortMetricCustomAxis, Axis: axis}
	}
}
