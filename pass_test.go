package graphics2d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStyleConfig() RendererConfig {
	cfg := DefaultRendererConfig()
	cfg.BlendStyles = []BlendStyle{
		{Name: "multiply", Mode: BlendModeModulate},
		{Name: "additive", Mode: BlendModeAdditive},
		{Name: "rim", Mode: BlendModeSubtractive},
	}
	return cfg
}

func executePass(t *testing.T, cfg RendererConfig, rec *CommandRecorder, frame *FrameData, hasValidDepth bool) *LightingPass {
	t.Helper()
	pass, err := NewLightingPass(cfg, nil)
	require.NoError(t, err)
	pass.Setup(hasValidDepth)
	pass.Execute(rec, frame)
	return pass
}

func litFrame(layers *LayerStore, lights []*Light2D, styles int, lit bool) *FrameData {
	return &FrameData{
		Camera:  CameraState{Orthographic: true},
		Layers:  layers,
		Cull:    Cull(layers.Layers(), lights, styles),
		LitView: lit,
	}
}

func commandsOfType(cmds []Command, ct CommandType) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Type() == ct {
			out = append(out, c)
		}
	}
	return out
}

func indicesOfType(cmds []Command, ct CommandType) []int {
	var out []int
	for i, c := range cmds {
		if c.Type() == ct {
			out = append(out, i)
		}
	}
	return out
}

// finalGlobalFloats replays the stream and returns the last value written
// per property.
func finalGlobalFloats(cmds []Command) map[PropertyID]float32 {
	out := map[PropertyID]float32{}
	for _, c := range cmds {
		if set, ok := c.(SetGlobalFloatCommand); ok {
			out[set.Prop] = set.Value
		}
	}
	return out
}

func TestLightingPassUnlitScene(t *testing.T) {
	layers := NewLayerStore(
		SortingLayer{ID: 0, Name: "Background"},
		SortingLayer{ID: 1, Name: "Default"},
		SortingLayer{ID: 2, Name: "Foreground"},
	)
	rec := NewCommandRecorder(640, 480)
	executePass(t, DefaultRendererConfig(), rec, litFrame(layers, nil, 2, false), true)

	cmds := rec.Commands()
	props := buildShaderPropertyTable()

	assert.Empty(t, commandsOfType(cmds, CmdRequestTexture), "unlit scene must not allocate light textures")
	assert.Empty(t, commandsOfType(cmds, CmdBeginLightPass))

	draws := commandsOfType(cmds, CmdDrawRenderers)
	require.Len(t, draws, 1, "unlit scene draws everything once")
	assert.Equal(t, DrawFilter{First: 0, Last: 2}, draws[0].(DrawRenderersCommand).Filter)

	// Sentinel in every slot, only slot 0 enabled.
	for _, c := range commandsOfType(cmds, CmdSetGlobalTexture) {
		assert.Equal(t, rec.BlackTexture(), c.(SetGlobalTextureCommand).Handle)
	}
	floats := finalGlobalFloats(cmds)
	for slot := 0; slot < MaxBlendStyles; slot++ {
		want := float32(0)
		if slot == 0 {
			want = 1
		}
		assert.Equal(t, want, floats[props.useLightTexture[slot]], "slot %d enable flag", slot)
	}
	assert.Equal(t, float32(0), floats[props.useSceneLight])

	// Error pass last, then the frame flush.
	require.GreaterOrEqual(t, len(cmds), 2)
	assert.Equal(t, CmdDrawFallback, cmds[len(cmds)-2].Type())
	assert.Equal(t, DrawFilter{First: 0, Last: 2}, cmds[len(cmds)-2].(DrawFallbackCommand).Filter)
	assert.Equal(t, CmdFlush, cmds[len(cmds)-1].Type())
}

func TestLightingPassCompositesUsedSlots(t *testing.T) {
	layers := NewLayerStore(
		SortingLayer{ID: 0, Name: "Background"},
		SortingLayer{ID: 1, Name: "Default"},
	)
	a := &Light2D{Name: "a", BlendStyleIndex: 0, TargetLayers: []int32{0, 1}, Intensity: 1}
	b := &Light2D{Name: "b", BlendStyleIndex: 2, TargetLayers: []int32{0, 1}, Intensity: 1}

	rec := NewCommandRecorder(640, 480)
	executePass(t, threeStyleConfig(), rec, litFrame(layers, []*Light2D{a, b}, 3, true), true)
	cmds := rec.Commands()
	props := buildShaderPropertyTable()

	requests := commandsOfType(cmds, CmdRequestTexture)
	require.Len(t, requests, 2, "only used slots get textures")
	first := requests[0].(RequestTextureCommand)
	second := requests[1].(RequestTextureCommand)
	assert.Equal(t, "LightTexture_0_1_multiply", first.Label)
	assert.Equal(t, "LightTexture_0_1_rim", second.Label)
	assert.Equal(t, uint32(640), first.Width)
	assert.Equal(t, uint32(480), first.Height)

	// One accumulation sub-pass per used slot, each drawing its own lights.
	begins := commandsOfType(cmds, CmdBeginLightPass)
	require.Len(t, begins, 2)
	assert.Equal(t, first.Handle, begins[0].(BeginLightPassCommand).Target)
	assert.Equal(t, ColorBlack, begins[0].(BeginLightPassCommand).Clear)
	assert.Equal(t, second.Handle, begins[1].(BeginLightPassCommand).Target)

	lightDraws := commandsOfType(cmds, CmdDrawLight)
	require.Len(t, lightDraws, 2)
	assert.Same(t, a, lightDraws[0].(DrawLightCommand).Light)
	assert.Same(t, b, lightDraws[1].(DrawLightCommand).Light)

	// Geometry enables exactly the used slots.
	floats := finalGlobalFloats(cmds)
	assert.Equal(t, float32(1), floats[props.useLightTexture[0]])
	assert.Equal(t, float32(0), floats[props.useLightTexture[1]])
	assert.Equal(t, float32(1), floats[props.useLightTexture[2]])
	assert.Equal(t, float32(0), floats[props.useLightTexture[3]])
	assert.Equal(t, float32(1), floats[props.useSceneLight])

	releases := commandsOfType(cmds, CmdReleaseTexture)
	require.Len(t, releases, 2, "every requested texture is frame scoped")
	assert.Empty(t, rec.LiveTextures())

	draws := commandsOfType(cmds, CmdDrawRenderers)
	require.Len(t, draws, 1)
	assert.Equal(t, DrawFilter{First: 0, Last: 1}, draws[0].(DrawRenderersCommand).Filter)
}

func TestLightingPassIgnoresUnconfiguredBlendStyle(t *testing.T) {
	layers := NewLayerStore(SortingLayer{ID: 0, Name: "Default"})
	// Slot 2 is valid in principle but the default config only defines two
	// styles; culled against that count the light vanishes and the scene
	// renders unlit instead of half-binding a slot no texture backs.
	light := &Light2D{Name: "stray", BlendStyleIndex: 2, TargetLayers: []int32{0}, Intensity: 1}

	cfg := DefaultRendererConfig()
	rec := NewCommandRecorder(640, 480)
	executePass(t, cfg, rec, litFrame(layers, []*Light2D{light}, len(cfg.BlendStyles), true), true)
	cmds := rec.Commands()

	assert.Empty(t, commandsOfType(cmds, CmdRequestTexture))
	assert.Empty(t, commandsOfType(cmds, CmdBeginLightPass))
	assert.Empty(t, commandsOfType(cmds, CmdDrawLight))

	// The unlit branch binds the sentinel everywhere.
	for _, c := range commandsOfType(cmds, CmdSetGlobalTexture) {
		assert.Equal(t, rec.BlackTexture(), c.(SetGlobalTextureCommand).Handle)
	}
	draws := commandsOfType(cmds, CmdDrawRenderers)
	require.Len(t, draws, 1)
	assert.Equal(t, DrawFilter{First: 0, Last: 0}, draws[0].(DrawRenderersCommand).Filter)
}

func TestLightingPassZeroLightBatchBindsSentinel(t *testing.T) {
	layers := NewLayerStore(
		SortingLayer{ID: 0, Name: "Lit"},
		SortingLayer{ID: 1, Name: "Unlit"},
	)
	light := &Light2D{Name: "spot", BlendStyleIndex: 0, TargetLayers: []int32{0}, Intensity: 1}

	rec := NewCommandRecorder(640, 480)
	executePass(t, DefaultRendererConfig(), rec, litFrame(layers, []*Light2D{light}, 2, true), true)
	cmds := rec.Commands()
	props := buildShaderPropertyTable()

	require.Len(t, commandsOfType(cmds, CmdRequestTexture), 1, "only the lit batch allocates")

	drawIdx := indicesOfType(cmds, CmdDrawRenderers)
	require.Len(t, drawIdx, 2)
	assert.Equal(t, DrawFilter{First: 0, Last: 0}, cmds[drawIdx[0]].(DrawRenderersCommand).Filter)
	assert.Equal(t, DrawFilter{First: 1, Last: 1}, cmds[drawIdx[1]].(DrawRenderersCommand).Filter)

	// Between the two geometry draws only the sentinel bindings of the
	// unlit batch appear: black in all four slots, slot 0 enabled.
	enables := map[PropertyID]float32{}
	for _, c := range cmds[drawIdx[0]+1 : drawIdx[1]] {
		switch set := c.(type) {
		case SetGlobalTextureCommand:
			assert.Equal(t, rec.BlackTexture(), set.Handle)
		case SetGlobalFloatCommand:
			enables[set.Prop] = set.Value
		}
	}
	for slot := 0; slot < MaxBlendStyles; slot++ {
		want := float32(0)
		if slot == 0 {
			want = 1
		}
		assert.Equal(t, want, enables[props.useLightTexture[slot]], "slot %d enable flag", slot)
	}
}

func TestLightingPassWindowsAndFlushOrder(t *testing.T) {
	layers := NewLayerStore(
		SortingLayer{ID: 0, Name: "L0"},
		SortingLayer{ID: 1, Name: "L1"},
		SortingLayer{ID: 2, Name: "L2"},
		SortingLayer{ID: 3, Name: "L3"},
		SortingLayer{ID: 4, Name: "L4"},
	)
	var lights []*Light2D
	for id := int32(0); id < 5; id++ {
		lights = append(lights, &Light2D{Name: "l", BlendStyleIndex: 0, TargetLayers: []int32{id}, Intensity: 1})
	}

	cfg := DefaultRendererConfig()
	cfg.BatchSize = 2

	rec := NewCommandRecorder(640, 480)
	executePass(t, cfg, rec, litFrame(layers, lights, 2, true), true)
	cmds := rec.Commands()

	flushes := indicesOfType(cmds, CmdFlush)
	require.Len(t, flushes, 4, "one flush per window plus the frame flush")

	requests := indicesOfType(cmds, CmdRequestTexture)
	draws := indicesOfType(cmds, CmdDrawRenderers)
	require.Len(t, requests, 5)
	require.Len(t, draws, 5)

	// Window layout: composite, flush, draw; 2+2+1 batches.
	windows := []struct {
		count int
		flush int
	}{
		{2, flushes[0]},
		{2, flushes[1]},
		{1, flushes[2]},
	}
	ri, di := 0, 0
	prevFlush := -1
	for w, win := range windows {
		for i := 0; i < win.count; i++ {
			assert.Greater(t, requests[ri], prevFlush, "window %d request out of order", w)
			assert.Less(t, requests[ri], win.flush, "window %d composites after its flush", w)
			ri++
		}
		for i := 0; i < win.count; i++ {
			assert.Greater(t, draws[di], win.flush, "window %d draws before its flush", w)
			di++
		}
		prevFlush = win.flush
	}

	// Releases happen after every window has drawn, before the frame flush.
	releases := indicesOfType(cmds, CmdReleaseTexture)
	require.Len(t, releases, 5)
	lastDraw := draws[len(draws)-1]
	for _, idx := range releases {
		assert.Greater(t, idx, lastDraw)
		assert.Less(t, idx, flushes[3])
	}
	assert.Empty(t, rec.LiveTextures())
}

func TestLightingPassNormalsPrepass(t *testing.T) {
	layers := NewLayerStore(SortingLayer{ID: 0, Name: "Default"})
	light := &Light2D{Name: "bumpy", BlendStyleIndex: 0, TargetLayers: []int32{0}, Intensity: 1, UseNormalMap: true}

	rec := NewCommandRecorder(640, 480)
	pass := executePass(t, DefaultRendererConfig(), rec, litFrame(layers, []*Light2D{light}, 2, true), true)
	cmds := rec.Commands()
	props := buildShaderPropertyTable()

	requests := commandsOfType(cmds, CmdRequestTexture)
	require.Len(t, requests, 2, "normals texture plus one light texture")
	normalsReq := requests[0].(RequestTextureCommand)
	assert.Equal(t, "NormalsTexture_0_0", normalsReq.Label)

	normalDraws := commandsOfType(cmds, CmdDrawNormals)
	require.Len(t, normalDraws, 1)
	assert.True(t, normalDraws[0].(DrawNormalsCommand).WithDepth)
	assert.Equal(t, normalsReq.Handle, normalDraws[0].(DrawNormalsCommand).Target)

	bound := false
	for _, c := range commandsOfType(cmds, CmdSetGlobalTexture) {
		set := c.(SetGlobalTextureCommand)
		if set.Prop == props.normalMap && set.Handle == normalsReq.Handle {
			bound = true
		}
	}
	assert.True(t, bound, "normals texture must be bound to the normal map property")

	// Without scene depth the prepass degrades to normals-only.
	rec.Reset()
	pass.Setup(false)
	pass.Execute(rec, litFrame(layers, []*Light2D{light}, 2, true))
	normalDraws = commandsOfType(rec.Commands(), CmdDrawNormals)
	require.Len(t, normalDraws, 1)
	assert.False(t, normalDraws[0].(DrawNormalsCommand).WithDepth)
}

func TestLightingPassDeterministicAcrossFrames(t *testing.T) {
	layers := NewLayerStore(
		SortingLayer{ID: 0, Name: "Background"},
		SortingLayer{ID: 1, Name: "Default"},
		SortingLayer{ID: 2, Name: "Foreground"},
	)
	lights := []*Light2D{
		{Name: "a", BlendStyleIndex: 0, TargetLayers: []int32{0, 1}, Intensity: 1},
		{Name: "b", BlendStyleIndex: 1, TargetLayers: []int32{2}, Intensity: 1, VolumetricIntensity: 0.2},
	}

	pass, err := NewLightingPass(DefaultRendererConfig(), nil)
	require.NoError(t, err)
	pass.Setup(true)

	rec := NewCommandRecorder(640, 480)
	signature := func() ([]CommandType, []string) {
		var types []CommandType
		var labels []string
		for _, c := range rec.Commands() {
			types = append(types, c.Type())
			if req, ok := c.(RequestTextureCommand); ok {
				labels = append(labels, req.Label)
			}
		}
		return types, labels
	}

	pass.Execute(rec, litFrame(layers, lights, 2, true))
	firstTypes, firstLabels := signature()

	rec.Reset()
	pass.Execute(rec, litFrame(layers, lights, 2, true))
	secondTypes, secondLabels := signature()

	assert.Equal(t, firstTypes, secondTypes, "command stream must be stable across frames")
	assert.Equal(t, firstLabels, secondLabels, "batch boundaries must be stable across frames")

	volumetrics := commandsOfType(rec.Commands(), CmdDrawVolumetric)
	require.Len(t, volumetrics, 1)
	assert.Same(t, lights[1], volumetrics[0].(DrawVolumetricCommand).Light)
}

func TestNewLightingPassValidatesConfig(t *testing.T) {
	cfg := DefaultRendererConfig()
	cfg.BatchSize = 0
	_, err := NewLightingPass(cfg, nil)
	require.Error(t, err)

	cfg = DefaultRendererConfig()
	pass, err := NewLightingPass(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, pass)
}
