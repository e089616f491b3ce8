package graphics2d

import "fmt"

// lightTextureCompositor allocates per-blend-style accumulation textures
// for a batch and records the light sub-passes filling them.
type lightTextureCompositor struct {
	cfg   *RendererConfig
	props *shaderPropertyTable
	log   Logger
}

// setFrameGlobals records the shader-visible scalars that hold for the
// whole frame: HDR emulation scale and its inverse, the scene lit/unlit
// toggle (externally decided) and the base tint. Once per frame, before
// any batch work.
func (c *lightTextureCompositor) setFrameGlobals(ctx RenderContext, litView bool) {
	ctx.SetGlobalFloat(c.props.hdrScale, c.cfg.HDREmulationScale)
	ctx.SetGlobalFloat(c.props.inverseHDRScale, 1/c.cfg.HDREmulationScale)
	ctx.SetGlobalFloat(c.props.useSceneLight, boolToFloat(litView))
	ctx.SetGlobalColor(c.props.rendererColor, c.cfg.DefaultTint)
}

// composite fills the batch's target slots. A batch with no lights gets no
// textures at all; the geometry stage binds the black sentinel instead and
// enables only slot 0. Returns the handles requested for this batch so the
// pass can release them once the whole frame is drawn.
func (c *lightTextureCompositor) composite(ctx RenderContext, cull *CullResult, b *LayerBatch) []TextureHandle {
	if b.Stats.TotalLights == 0 {
		return nil
	}

	width, height := ctx.Viewport()
	lights := cull.lightsInRange(b.First, b.Last)

	var requested []TextureHandle
	for slot := 0; slot < len(c.cfg.BlendStyles); slot++ {
		used := b.Stats.BlendStylesUsed&(1<<uint(slot)) != 0
		b.TargetUsed[slot] = used
		if !used {
			continue
		}

		label := fmt.Sprintf("LightTexture_%d_%d_%s", b.First, b.Last, c.cfg.BlendStyles[slot].Name)
		target := ctx.RequestTexture(label, width, height)
		b.Targets[slot] = target
		requested = append(requested, target)

		// One additive sub-pass per slot; lights never switch blend state
		// individually.
		ctx.BeginLightPass(target, ColorBlack)
		for _, light := range lights {
			if light.BlendStyleIndex == slot {
				ctx.DrawLight(light)
			}
		}
		ctx.EndLightPass()
	}
	return requested
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
