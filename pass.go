package graphics2d

// RenderPass is the execution hook a host render pipeline drives: Setup
// once with the frame's depth availability, then Execute to record the
// pass onto the frame's command stream.
type RenderPass interface {
	Setup(hasValidDepth bool)
	Execute(ctx RenderContext, frame *FrameData)
}

// CameraState is the slice of camera the pass needs: projection kind and
// the per-camera transparency sort override (SortModeDefault defers to the
// renderer configuration).
type CameraState struct {
	Orthographic bool
	SortMode     TransparencySortMode
}

// FrameData is everything Execute consumes for one frame. Cull comes from
// the upstream light-culling step; LitView is the externally decided
// "is this a lit view" flag - the pass never asks the host environment
// itself.
type FrameData struct {
	Camera  CameraState
	Layers  *LayerStore
	Cull    *CullResult
	LitView bool
}

// LightingPass orchestrates the 2D scene-lighting composite: batch
// planning, per-batch light-texture compositing, geometry draws sampling
// those textures, the unlit fallback when nothing is lit, and the final
// error-object pass. Immutable configuration plus per-frame scratch only.
type LightingPass struct {
	cfg   RendererConfig
	props shaderPropertyTable
	log   Logger

	compositor lightTextureCompositor
	normals    normalsPrepass
	geometry   geometryRenderer
	volumetric volumetricLightRenderer
	errors     errorObjectRenderer

	cache         batchCache
	hasValidDepth bool
	frameTextures []TextureHandle
}

var _ RenderPass = (*LightingPass)(nil)

func NewLightingPass(cfg RendererConfig, log Logger) (*LightingPass, error) {
	if log == nil {
		log = NewNopLogger()
	}
	if err := cfg.Validate(log); err != nil {
		return nil, err
	}

	p := &LightingPass{
		cfg:   cfg,
		props: buildShaderPropertyTable(),
		log:   log,
	}
	p.compositor = lightTextureCompositor{cfg: &p.cfg, props: &p.props, log: log}
	p.normals = normalsPrepass{props: &p.props}
	p.geometry = geometryRenderer{cfg: &p.cfg, props: &p.props}
	return p, nil
}

// Setup runs once per frame before Execute.
func (p *LightingPass) Setup(hasValidDepth bool) {
	p.hasValidDepth = hasValidDepth
}

// Execute records the whole pass onto ctx. Single-threaded command
// recording; the only cross-frame state is the planner's layer-ordering
// cache.
func (p *LightingPass) Execute(ctx RenderContext, frame *FrameData) {
	sort := resolveSortSettings(frame.Camera.SortMode, p.cfg.SortMode, frame.Camera.Orthographic, p.cfg.SortAxis)
	layers := p.cache.layersFor(frame.Layers)

	p.compositor.setFrameGlobals(ctx, frame.LitView)

	if frame.Cull.IsSceneLit() {
		p.drawLit(ctx, frame.Cull, layers, sort)
	} else {
		p.drawUnlit(ctx, len(layers), sort)
	}

	// Placeholder visuals for shaderless renderers, regardless of which
	// branch ran.
	p.errors.draw(ctx, len(layers))
	ctx.Flush()
}

// drawUnlit is the whole-scene path when no light affects any layer:
// sentinel in every slot, slot 0 enabled, one unfiltered draw.
func (p *LightingPass) drawUnlit(ctx RenderContext, layerCount int, sort SortSettings) {
	black := ctx.BlackTexture()
	for slot := 0; slot < MaxBlendStyles; slot++ {
		ctx.SetGlobalTexture(p.props.lightTextures[slot], black)
		ctx.SetGlobalFloat(p.props.useLightTexture[slot], boolToFloat(slot == 0))
	}
	if layerCount == 0 {
		return
	}
	ctx.DrawRenderers(DrawFilter{First: 0, Last: layerCount - 1}, DrawSettings{Sort: sort})
}

func (p *LightingPass) drawLit(ctx RenderContext, cull *CullResult, layers []SortingLayer, sort SortSettings) {
	batches := planBatches(layers, cull, p.cache.batches)
	p.cache.batches = batches

	if p.log.DebugEnabled() {
		p.log.Debugf("planned %d batches over %d layers", len(batches), len(layers))
	}

	for start := 0; start < len(batches); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(batches))
		group := batches[start:end]

		for i := range group {
			b := &group[i]
			if handle := p.normals.render(ctx, b, sort, p.hasValidDepth); handle.Valid() {
				p.frameTextures = append(p.frameTextures, handle)
			}
			p.frameTextures = append(p.frameTextures, p.compositor.composite(ctx, cull, b)...)
		}

		// Accumulation textures must reach the device before this window's
		// geometry reads them; slot targets alias across windows, so draws
		// for this window are recorded before the next window composites.
		ctx.Flush()

		for i := range group {
			b := &group[i]
			p.geometry.draw(ctx, b, sort)
			p.volumetric.render(ctx, cull, b)
		}
	}

	// Frame-scoped: requested at compositing, released only after every
	// batch has drawn.
	for _, handle := range p.frameTextures {
		ctx.ReleaseTexture(handle)
	}
	p.frameTextures = p.frameTextures[:0]
}
