package graphics2d

import "fmt"

// normalsPrepass renders the depth+normal buffer a batch's normal-mapped
// lights sample from.
type normalsPrepass struct {
	props *shaderPropertyTable
}

// render records the prepass when the batch needs it and returns the
// requested texture handle (or the zero handle when skipped). Uses the
// same sort settings as the geometry draw. Without a valid scene depth
// buffer the prepass degrades to normals-only rendering.
func (n *normalsPrepass) render(ctx RenderContext, b *LayerBatch, sort SortSettings, hasValidDepth bool) TextureHandle {
	if b.Stats.NormalMapUsage == 0 {
		return noTexture
	}

	width, height := ctx.Viewport()
	target := ctx.RequestTexture(fmt.Sprintf("NormalsTexture_%d_%d", b.First, b.Last), width, height)
	ctx.DrawNormals(b.filter(), DrawSettings{Sort: sort}, target, hasValidDepth)
	ctx.SetGlobalTexture(n.props.normalMap, target)
	return target
}
