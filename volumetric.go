package graphics2d

// volumetricLightRenderer adds light-volume contribution over a batch's
// drawn geometry, directly into the main color target.
type volumetricLightRenderer struct{}

func (volumetricLightRenderer) render(ctx RenderContext, cull *CullResult, b *LayerBatch) {
	if b.Stats.TotalVolumetric == 0 {
		return
	}
	for _, light := range cull.volumetricInRange(b.First, b.Last) {
		ctx.DrawVolumetric(light)
	}
}
