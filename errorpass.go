package graphics2d

// errorObjectRenderer draws placeholder visuals for renderers whose
// material has no usable shader variant. Runs once per frame over the
// whole layer range, independent of batch boundaries.
type errorObjectRenderer struct{}

func (errorObjectRenderer) draw(ctx RenderContext, layerCount int) {
	if layerCount == 0 {
		return
	}
	ctx.DrawFallback(DrawFilter{First: 0, Last: layerCount - 1})
}
