package graphics2d

// geometryRenderer issues the main color-output draw for a batch: slot
// textures (or the sentinel) bound, per-slot enable flags mirroring the
// batch's target usage, draw filtered to the batch range.
type geometryRenderer struct {
	cfg   *RendererConfig
	props *shaderPropertyTable
}

func (g *geometryRenderer) draw(ctx RenderContext, b *LayerBatch, sort SortSettings) {
	black := ctx.BlackTexture()

	if b.Stats.TotalLights == 0 {
		// Degenerate single-blend-style fallback: sentinel everywhere,
		// only slot 0 enabled.
		for slot := 0; slot < MaxBlendStyles; slot++ {
			ctx.SetGlobalTexture(g.props.lightTextures[slot], black)
			ctx.SetGlobalFloat(g.props.useLightTexture[slot], boolToFloat(slot == 0))
		}
	} else {
		for slot := 0; slot < MaxBlendStyles; slot++ {
			handle := b.Targets[slot]
			if !handle.Valid() {
				handle = black
			}
			ctx.SetGlobalTexture(g.props.lightTextures[slot], handle)
			ctx.SetGlobalFloat(g.props.useLightTexture[slot], boolToFloat(b.TargetUsed[slot]))
		}
	}

	ctx.DrawRenderers(b.filter(), DrawSettings{Sort: sort})
}
