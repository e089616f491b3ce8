package graphics2d

import "fmt"

// PropertyID is a stable numeric handle for a shader-visible global name.
// Resolving names to IDs once keeps string hashing off the per-frame path.
type PropertyID uint32

type propertyRegistry struct {
	ids   map[string]PropertyID
	names []string
}

var globalProperties = &propertyRegistry{ids: map[string]PropertyID{}}

// PropertyToID interns a shader property name. The same name always maps to
// the same ID within a process.
func PropertyToID(name string) PropertyID {
	if id, ok := globalProperties.ids[name]; ok {
		return id
	}
	id := PropertyID(len(globalProperties.names))
	globalProperties.ids[name] = id
	globalProperties.names = append(globalProperties.names, name)
	return id
}

// PropertyName is the reverse lookup, for logs and recorded-command dumps.
func PropertyName(id PropertyID) string {
	if int(id) < len(globalProperties.names) {
		return globalProperties.names[id]
	}
	return fmt.Sprintf("PropertyID(%d)", uint32(id))
}

// shaderPropertyTable holds every property ID the lighting pass touches.
// Built once at pass construction and read-only afterwards.
type shaderPropertyTable struct {
	lightTextures   [MaxBlendStyles]PropertyID
	useLightTexture [MaxBlendStyles]PropertyID
	normalMap       PropertyID
	hdrScale        PropertyID
	inverseHDRScale PropertyID
	useSceneLight   PropertyID
	rendererColor   PropertyID
}

func buildShaderPropertyTable() shaderPropertyTable {
	var t shaderPropertyTable
	for i := 0; i < MaxBlendStyles; i++ {
		t.lightTextures[i] = PropertyToID(fmt.Sprintf("g2d_LightTexture%d", i))
		t.useLightTexture[i] = PropertyToID(fmt.Sprintf("g2d_UseLightTexture%d", i))
	}
	t.normalMap = PropertyToID("g2d_NormalMap")
	t.hdrScale = PropertyToID("g2d_HDREmulationScale")
	t.inverseHDRScale = PropertyToID("g2d_InverseHDREmulationScale")
	t.useSceneLight = PropertyToID("g2d_UseSceneLighting")
	t.rendererColor = PropertyToID("g2d_RendererColor")
	return t
}
