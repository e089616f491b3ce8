package graphics2d

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kamyker/graphics2d/shaders"
)

// SpriteRenderer is a drawable quad. Layer is an index into the sorting
// layer list, not a layer id.
type SpriteRenderer struct {
	Name         string
	Layer        int
	Position     mgl32.Vec3
	Size         mgl32.Vec2
	Color        Color
	Texture      TextureHandle
	HasLitShader bool
}

type quadVertex struct {
	Pos [3]float32 `g2d:"layout" format:"float3" location:"0"`
	UV  [2]float32 `g2d:"layout" format:"float2" location:"1"`
}

// Must match the DrawUniform struct in the wgsl shaders.
type drawUniform struct {
	ViewProj mgl32.Mat4
	Model    mgl32.Mat4
	Color    [4]float32
	Params   [4]float32
	Flags    [4]float32
}

type gpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	label   string
}

const lightTextureFormat = wgpu.TextureFormatRGBA8Unorm

// GPUContext records lighting and geometry passes into a single command
// stream on a wgpu device. All passes of one frame share one encoder;
// Flush submits what has been recorded so far and opens a fresh encoder.
type GPUContext struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	width         uint32
	height        uint32
	log           Logger

	lightPipeline       *wgpu.RenderPipeline
	spritePipeline      *wgpu.RenderPipeline
	normalsPipeline     *wgpu.RenderPipeline
	normalsDepthPipe    *wgpu.RenderPipeline
	volumetricPipeline  *wgpu.RenderPipeline
	fallbackPipeline    *wgpu.RenderPipeline
	sampler             *wgpu.Sampler
	quadVertexBuf       *wgpu.Buffer
	quadIndexBuf        *wgpu.Buffer
	depthTexture        *wgpu.Texture
	depthView           *wgpu.TextureView

	textures         map[TextureHandle]*gpuTexture
	blackHandle      TextureHandle
	flatNormalHandle TextureHandle

	globalFloats   map[PropertyID]float32
	globalColors   map[PropertyID]Color
	globalTextures map[PropertyID]TextureHandle
	props          shaderPropertyTable

	renderers []SpriteRenderer
	viewProj  mgl32.Mat4
	viewPos   mgl32.Vec3
	viewDir   mgl32.Vec3

	encoder    *wgpu.CommandEncoder
	targetView *wgpu.TextureView
	lightPass  *wgpu.RenderPassEncoder

	frameBuffers    []*wgpu.Buffer
	frameBindGroups []*wgpu.BindGroup
	pendingRelease  []TextureHandle
}

var _ RenderContext = (*GPUContext)(nil)

// NewGPUContext builds pipelines and shared resources for the given
// device. Panics on setup errors, same as the rest of the gpu bootstrap.
func NewGPUContext(device *wgpu.Device, queue *wgpu.Queue, surfaceFormat wgpu.TextureFormat, width, height uint32, log Logger) *GPUContext {
	if log == nil {
		log = NewNopLogger()
	}
	g := &GPUContext{
		device:         device,
		queue:          queue,
		surfaceFormat:  surfaceFormat,
		width:          width,
		height:         height,
		log:            log,
		textures:       map[TextureHandle]*gpuTexture{},
		globalFloats:   map[PropertyID]float32{},
		globalColors:   map[PropertyID]Color{},
		globalTextures: map[PropertyID]TextureHandle{},
		props:          buildShaderPropertyTable(),
		viewProj:       mgl32.Ident4(),
		viewDir:        mgl32.Vec3{0, 0, -1},
	}

	additive := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
		},
	}
	alpha := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
		Alpha: wgpu.BlendComponent{
			Operation: wgpu.BlendOperationAdd,
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		},
	}
	depthState := &wgpu.DepthStencilState{
		Format:            wgpu.TextureFormatDepth24Plus,
		DepthWriteEnabled: true,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}

	g.lightPipeline = g.createPipeline("Light Pipeline", shaders.LightWGSL, lightTextureFormat, additive, nil)
	g.spritePipeline = g.createPipeline("Sprite Pipeline", shaders.SpriteWGSL, surfaceFormat, alpha, nil)
	g.normalsPipeline = g.createPipeline("Normals Pipeline", shaders.NormalsWGSL, lightTextureFormat, nil, nil)
	g.normalsDepthPipe = g.createPipeline("Normals Depth Pipeline", shaders.NormalsWGSL, lightTextureFormat, nil, depthState)
	g.volumetricPipeline = g.createPipeline("Volumetric Pipeline", shaders.VolumetricWGSL, surfaceFormat, additive, nil)
	g.fallbackPipeline = g.createPipeline("Fallback Pipeline", shaders.FallbackWGSL, surfaceFormat, nil, nil)

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	g.sampler = sampler

	// Unit quad centered on the origin.
	vertices := []quadVertex{
		{Pos: [3]float32{-0.5, -0.5, 0}, UV: [2]float32{0, 1}},
		{Pos: [3]float32{0.5, -0.5, 0}, UV: [2]float32{1, 1}},
		{Pos: [3]float32{0.5, 0.5, 0}, UV: [2]float32{1, 0}},
		{Pos: [3]float32{-0.5, 0.5, 0}, UV: [2]float32{0, 0}},
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	g.quadVertexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Quad Vertex Buffer",
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		panic(err)
	}
	g.quadIndexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Quad Index Buffer",
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		panic(err)
	}

	g.depthTexture, g.depthView = g.createDepthTexture(width, height)
	g.blackHandle = g.uploadTexture("Black Sentinel", []uint8{0, 0, 0, 255}, 1, 1)
	g.flatNormalHandle = g.uploadTexture("Flat Normal", []uint8{128, 128, 255, 255}, 1, 1)

	return g
}

func (g *GPUContext) createPipeline(name string, code string, format wgpu.TextureFormat, blend *wgpu.BlendState, depth *wgpu.DepthStencilState) *wgpu.RenderPipeline {
	shader, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		panic(err)
	}
	defer shader.Release()

	pipeline, err := g.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: name,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout(quadVertex{})},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		panic(err)
	}
	return pipeline
}

func (g *GPUContext) createDepthTexture(width, height uint32) (*wgpu.Texture, *wgpu.TextureView) {
	texture, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return texture, view
}

func (g *GPUContext) uploadTexture(label string, texels []uint8, width, height uint32) TextureHandle {
	extent := wgpu.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
	}
	texture, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	err = g.queue.WriteTexture(
		texture.AsImageCopy(),
		wgpu.ToBytes(texels),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&extent,
	)
	if err != nil {
		panic(err)
	}
	handle := makeTextureHandle()
	g.textures[handle] = &gpuTexture{texture: texture, view: view, label: label}
	return handle
}

// RegisterTexture uploads a decoded image and returns a handle usable as
// a sprite texture.
func (g *GPUContext) RegisterTexture(label string, asset *TextureAsset) TextureHandle {
	return g.uploadTexture(label, asset.Texels, asset.Width, asset.Height)
}

// SetRenderers replaces the sprite list drawn by geometry passes.
func (g *GPUContext) SetRenderers(renderers []SpriteRenderer) {
	g.renderers = renderers
}

// SetView sets the camera transform used for every draw of the frame.
func (g *GPUContext) SetView(viewProj mgl32.Mat4, pos, dir mgl32.Vec3) {
	g.viewProj = viewProj
	g.viewPos = pos
	g.viewDir = dir
}

// BeginFrame opens the frame's command encoder and clears the camera
// target. The target view stays valid until EndFrame.
func (g *GPUContext) BeginFrame(target *wgpu.TextureView, clear Color) {
	encoder, err := g.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	g.encoder = encoder
	g.targetView = target

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(clear[0]),
					G: float64(clear[1]),
					B: float64(clear[2]),
					A: float64(clear[3]),
				},
			},
		},
	})
	pass.End()
	pass.Release()
}

// EndFrame submits whatever is still recorded. Present stays with the
// window owner.
func (g *GPUContext) EndFrame() {
	g.submit()
	g.targetView = nil
}

func (g *GPUContext) Viewport() (uint32, uint32) {
	return g.width, g.height
}

func (g *GPUContext) BlackTexture() TextureHandle {
	return g.blackHandle
}

func (g *GPUContext) RequestTexture(label string, width, height uint32) TextureHandle {
	texture, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        lightTextureFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		panic(err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	handle := makeTextureHandle()
	g.textures[handle] = &gpuTexture{texture: texture, view: view, label: label}
	return handle
}

// ReleaseTexture defers destruction until the next Flush, after the
// commands that still sample the texture have been submitted.
func (g *GPUContext) ReleaseTexture(handle TextureHandle) {
	if _, ok := g.textures[handle]; !ok {
		g.log.Warnf("release of unknown texture %s", handle)
		return
	}
	g.pendingRelease = append(g.pendingRelease, handle)
}

func (g *GPUContext) SetGlobalFloat(prop PropertyID, value float32) {
	g.globalFloats[prop] = value
}

func (g *GPUContext) SetGlobalColor(prop PropertyID, value Color) {
	g.globalColors[prop] = value
}

func (g *GPUContext) SetGlobalTexture(prop PropertyID, handle TextureHandle) {
	g.globalTextures[prop] = handle
}

func (g *GPUContext) BeginLightPass(target TextureHandle, clear Color) {
	if g.lightPass != nil {
		panic("light pass already open")
	}
	tx, ok := g.textures[target]
	if !ok {
		panic(fmt.Sprintf("light pass target %s does not exist", target))
	}
	g.lightPass = g.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    tx.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(clear[0]),
					G: float64(clear[1]),
					B: float64(clear[2]),
					A: float64(clear[3]),
				},
			},
		},
	})
	g.lightPass.SetPipeline(g.lightPipeline)
	g.lightPass.SetVertexBuffer(0, g.quadVertexBuf, 0, wgpu.WholeSize)
	g.lightPass.SetIndexBuffer(g.quadIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	g.lightPass.SetBindGroup(1, g.lightNormalsBindGroup(), nil)
}

// lightNormalsBindGroup binds the normals prepass output for the light
// shader, or the flat-normal sentinel when no prepass ran this batch.
func (g *GPUContext) lightNormalsBindGroup() *wgpu.BindGroup {
	view := g.textures[g.flatNormalHandle].view
	if handle, ok := g.globalTextures[g.props.normalMap]; ok {
		if tx, ok := g.textures[handle]; ok {
			view = tx.view
		}
	}
	layout := g.lightPipeline.GetBindGroupLayout(1)
	defer layout.Release()
	bindGroup, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: g.sampler, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: view, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	g.frameBindGroups = append(g.frameBindGroups, bindGroup)
	return bindGroup
}

func (g *GPUContext) DrawLight(light *Light2D) {
	if g.lightPass == nil {
		panic("DrawLight outside of a light pass")
	}
	u := g.lightUniform(light)
	bindGroup := g.uniformBindGroup(g.lightPipeline, &u)
	g.lightPass.SetBindGroup(0, bindGroup, nil)
	g.lightPass.DrawIndexed(6, 1, 0, 0, 0)
}

func (g *GPUContext) lightUniform(light *Light2D) drawUniform {
	u := drawUniform{
		Color:  [4]float32{light.Color[0], light.Color[1], light.Color[2], 1},
		Params: [4]float32{light.Intensity, light.Radius, float32(g.width), float32(g.height)},
		Flags:  [4]float32{boolToFloat(light.UseNormalMap), 0, 0, 0},
	}
	if light.Type == LightTypeGlobal {
		// A global light covers the whole target; bypass the camera and
		// stretch the unit quad over clip space.
		u.ViewProj = mgl32.Ident4()
		u.Model = mgl32.Scale3D(2, 2, 1)
		u.Params[1] = 0 // flat falloff
	} else {
		size := light.Radius * 2
		if size <= 0 {
			size = 1
		}
		u.ViewProj = g.viewProj
		u.Model = mgl32.Translate3D(light.Position.X(), light.Position.Y(), light.Position.Z()).
			Mul4(mgl32.Scale3D(size, size, 1))
	}
	return u
}

func (g *GPUContext) EndLightPass() {
	if g.lightPass == nil {
		panic("EndLightPass without a light pass")
	}
	g.lightPass.End()
	g.lightPass.Release()
	g.lightPass = nil
}

func (g *GPUContext) DrawNormals(filter DrawFilter, settings DrawSettings, target TextureHandle, withDepth bool) {
	tx, ok := g.textures[target]
	if !ok {
		panic(fmt.Sprintf("normals target %s does not exist", target))
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    tx.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				// Flat +Z normal everywhere nothing draws.
				ClearValue: wgpu.Color{R: 0.5, G: 0.5, B: 1, A: 1},
			},
		},
	}
	pipeline := g.normalsPipeline
	if withDepth {
		pipeline = g.normalsDepthPipe
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            g.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	pass := g.encoder.BeginRenderPass(desc)
	pass.SetPipeline(pipeline)
	pass.SetVertexBuffer(0, g.quadVertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(g.quadIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	for _, r := range g.sortedRenderers(filter, settings.Sort) {
		u := g.rendererUniform(r)
		pass.SetBindGroup(0, g.uniformBindGroup(pipeline, &u), nil)
		pass.DrawIndexed(6, 1, 0, 0, 0)
	}
	pass.End()
	pass.Release()
}

func (g *GPUContext) DrawRenderers(filter DrawFilter, settings DrawSettings) {
	pass := g.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    g.targetView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(g.spritePipeline)
	pass.SetVertexBuffer(0, g.quadVertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(g.quadIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)

	textureGroup := g.spriteTextureGroup()
	for _, r := range g.sortedRenderers(filter, settings.Sort) {
		if !r.HasLitShader {
			continue
		}
		u := g.rendererUniform(r)
		u.Params[0] = g.globalFloats[g.props.hdrScale]
		u.Params[1] = g.globalFloats[g.props.useSceneLight]
		u.Params[2] = float32(g.width)
		u.Params[3] = float32(g.height)
		for slot := 0; slot < MaxBlendStyles; slot++ {
			u.Flags[slot] = g.globalFloats[g.props.useLightTexture[slot]]
		}
		pass.SetBindGroup(0, g.uniformBindGroup(g.spritePipeline, &u), nil)
		pass.SetBindGroup(1, g.spriteBindGroup(r.Texture, textureGroup), nil)
		pass.DrawIndexed(6, 1, 0, 0, 0)
	}
	pass.End()
	pass.Release()
}

func (g *GPUContext) DrawVolumetric(light *Light2D) {
	pass := g.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    g.targetView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(g.volumetricPipeline)
	pass.SetVertexBuffer(0, g.quadVertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(g.quadIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)

	size := light.Radius * 4
	if size <= 0 {
		size = 2
	}
	u := drawUniform{
		ViewProj: g.viewProj,
		Model: mgl32.Translate3D(light.Position.X(), light.Position.Y(), light.Position.Z()).
			Mul4(mgl32.Scale3D(size, size, 1)),
		Color:  [4]float32{light.Color[0], light.Color[1], light.Color[2], 1},
		Params: [4]float32{light.VolumetricIntensity, light.Radius, 0, 0},
	}
	pass.SetBindGroup(0, g.uniformBindGroup(g.volumetricPipeline, &u), nil)
	pass.DrawIndexed(6, 1, 0, 0, 0)
	pass.End()
	pass.Release()
}

func (g *GPUContext) DrawFallback(filter DrawFilter) {
	pass := g.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    g.targetView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(g.fallbackPipeline)
	pass.SetVertexBuffer(0, g.quadVertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(g.quadIndexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	for _, r := range g.renderers {
		if r.HasLitShader || r.Layer < filter.First || r.Layer > filter.Last {
			continue
		}
		u := g.rendererUniform(r)
		pass.SetBindGroup(0, g.uniformBindGroup(g.fallbackPipeline, &u), nil)
		pass.DrawIndexed(6, 1, 0, 0, 0)
	}
	pass.End()
	pass.Release()
}

// Flush submits everything recorded so far and opens a fresh encoder on
// the same frame target. Textures released earlier are destroyed here,
// after the submit that last read them.
func (g *GPUContext) Flush() {
	if g.lightPass != nil {
		panic("Flush inside an open light pass")
	}
	g.submit()
	if g.targetView != nil {
		encoder, err := g.device.CreateCommandEncoder(nil)
		if err != nil {
			panic(err)
		}
		g.encoder = encoder
	}
}

func (g *GPUContext) submit() {
	if g.encoder == nil {
		return
	}
	cmdBuffer, err := g.encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	g.queue.Submit(cmdBuffer)
	cmdBuffer.Release()
	g.encoder.Release()
	g.encoder = nil

	for _, bg := range g.frameBindGroups {
		bg.Release()
	}
	g.frameBindGroups = g.frameBindGroups[:0]
	for _, buf := range g.frameBuffers {
		buf.Release()
	}
	g.frameBuffers = g.frameBuffers[:0]

	for _, handle := range g.pendingRelease {
		if tx, ok := g.textures[handle]; ok {
			tx.view.Release()
			tx.texture.Release()
			delete(g.textures, handle)
		}
	}
	g.pendingRelease = g.pendingRelease[:0]
}

// Release destroys every gpu resource the context owns.
func (g *GPUContext) Release() {
	g.submit()
	for handle, tx := range g.textures {
		tx.view.Release()
		tx.texture.Release()
		delete(g.textures, handle)
	}
	g.depthView.Release()
	g.depthTexture.Release()
	g.quadIndexBuf.Release()
	g.quadVertexBuf.Release()
	g.sampler.Release()
	g.fallbackPipeline.Release()
	g.volumetricPipeline.Release()
	g.normalsDepthPipe.Release()
	g.normalsPipeline.Release()
	g.spritePipeline.Release()
	g.lightPipeline.Release()
}

func (g *GPUContext) rendererUniform(r SpriteRenderer) drawUniform {
	color := r.Color
	if tint, ok := g.globalColors[g.props.rendererColor]; ok {
		for i := range color {
			color[i] *= tint[i]
		}
	}
	return drawUniform{
		ViewProj: g.viewProj,
		Model: mgl32.Translate3D(r.Position.X(), r.Position.Y(), r.Position.Z()).
			Mul4(mgl32.Scale3D(r.Size.X(), r.Size.Y(), 1)),
		Color: [4]float32(color),
	}
}

func (g *GPUContext) uniformBindGroup(pipeline *wgpu.RenderPipeline, u *drawUniform) *wgpu.BindGroup {
	buffer, err := g.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Draw Uniform",
		Contents: unsafe.Slice((*byte)(unsafe.Pointer(u)), int(unsafe.Sizeof(*u))),
		Usage:    wgpu.BufferUsageUniform,
	})
	if err != nil {
		panic(err)
	}
	layout := pipeline.GetBindGroupLayout(0)
	defer layout.Release()
	bindGroup, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buffer,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	g.frameBuffers = append(g.frameBuffers, buffer)
	g.frameBindGroups = append(g.frameBindGroups, bindGroup)
	return bindGroup
}

// Light texture views currently bound through the global property table,
// falling back to the black sentinel for unbound slots.
func (g *GPUContext) spriteTextureGroup() [MaxBlendStyles]*wgpu.TextureView {
	var views [MaxBlendStyles]*wgpu.TextureView
	black := g.textures[g.blackHandle].view
	for slot := 0; slot < MaxBlendStyles; slot++ {
		views[slot] = black
		if handle, ok := g.globalTextures[g.props.lightTextures[slot]]; ok {
			if tx, ok := g.textures[handle]; ok {
				views[slot] = tx.view
			}
		}
	}
	return views
}

func (g *GPUContext) spriteBindGroup(sprite TextureHandle, lightViews [MaxBlendStyles]*wgpu.TextureView) *wgpu.BindGroup {
	spriteView := g.textures[g.blackHandle].view
	if tx, ok := g.textures[sprite]; ok {
		spriteView = tx.view
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Sampler: g.sampler, Size: wgpu.WholeSize},
		{Binding: 1, TextureView: spriteView, Size: wgpu.WholeSize},
	}
	for slot := 0; slot < MaxBlendStyles; slot++ {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(2 + slot),
			TextureView: lightViews[slot],
			Size:        wgpu.WholeSize,
		})
	}
	layout := g.spritePipeline.GetBindGroupLayout(1)
	defer layout.Release()
	bindGroup, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	g.frameBindGroups = append(g.frameBindGroups, bindGroup)
	return bindGroup
}

// sortedRenderers returns the renderers of the filtered layer range.
// Layer order dominates; within a layer the resolved metric sorts back
// to front.
func (g *GPUContext) sortedRenderers(filter DrawFilter, sort SortSettings) []SpriteRenderer {
	var out []SpriteRenderer
	for _, r := range g.renderers {
		if r.Layer < filter.First || r.Layer > filter.Last {
			continue
		}
		out = append(out, r)
	}
	metric := func(r SpriteRenderer) float32 {
		switch sort.Metric {
		case SortMetricPerspective:
			return g.viewPos.Sub(r.Position).Len()
		case SortMetricOrthographic:
			return r.Position.Sub(g.viewPos).Dot(g.viewDir)
		default:
			return r.Position.Dot(sort.Axis)
		}
	}
	slices.SortStableFunc(out, func(a, b SpriteRenderer) int {
		if a.Layer != b.Layer {
			return a.Layer - b.Layer
		}
		da, db := metric(a), metric(b)
		if da > db {
			return -1
		}
		if da < db {
			return 1
		}
		return 0
	})
	return out
}
