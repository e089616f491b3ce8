package shaders

import (
	_ "embed"
)

//go:embed light.wgsl
var LightWGSL string

//go:embed sprite.wgsl
var SpriteWGSL string

//go:embed normals.wgsl
var NormalsWGSL string

//go:embed volumetric.wgsl
var VolumetricWGSL string

//go:embed fallback.wgsl
var FallbackWGSL string
