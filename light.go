package graphics2d

import "github.com/go-gl/mathgl/mgl32"

type LightType uint32

const (
	LightTypePoint  LightType = 0
	LightTypeGlobal LightType = 1
	LightTypeSprite LightType = 2
	LightTypeShape  LightType = 3
)

// Light2D describes one 2D light as consumed by the lighting pass. The
// shading math lives in the shaders; the pass only cares about which layers
// a light reaches, which blend-style slot it accumulates into, and whether
// it needs the normals prepass or a volumetric pass.
type Light2D struct {
	Name            string
	Type            LightType
	BlendStyleIndex int        // accumulation slot 0..MaxBlendStyles-1
	TargetLayers    []int32    // sorting layer IDs this light affects
	Position        mgl32.Vec3
	Color           [3]float32 // RGB
	Intensity       float32
	Radius          float32 // falloff range for point/shape lights

	// VolumetricIntensity > 0 requests the volumetric pass on top of the
	// batch geometry.
	VolumetricIntensity float32

	// UseNormalMap requests the depth+normal prepass for batches this
	// light lands in.
	UseNormalMap bool
}

func (l *Light2D) affectsLayer(id int32) bool {
	for _, target := range l.TargetLayers {
		if target == id {
			return true
		}
	}
	return false
}

func (l *Light2D) volumetric() bool {
	return l.VolumetricIntensity > 0
}
