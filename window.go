package graphics2d

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window owns the glfw window, the wgpu device and the swapchain. It is
// the outermost piece of state an application creates.
type Window struct {
	windowGlfw *glfw.Window
	Width      int
	Height     int
	title      string

	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

// NewWindow opens a window and brings up the gpu. Must be called from
// the main goroutine.
func NewWindow(width, height int, title string) *Window {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		panic(err)
	}

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	// wraps GLFW window into a wgpu surface.
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))
	// finds a suitable GPU (discrete GPU preferred)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	// allocates the device and command queue
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	// defines how the swapchain behaves (size, format, vsync)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &Window{
		windowGlfw:    win,
		Width:         width,
		Height:        height,
		title:         title,
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}
}

func (w *Window) Device() *wgpu.Device { return w.device }

func (w *Window) Queue() *wgpu.Queue { return w.queue }

func (w *Window) SurfaceFormat() wgpu.TextureFormat { return w.surfaceConfig.Format }

func (w *Window) ShouldClose() bool { return w.windowGlfw.ShouldClose() }

func (w *Window) Poll() { glfw.PollEvents() }

// AcquireFrame grabs the next swapchain image. The returned view stays
// valid until Present.
func (w *Window) AcquireFrame() *wgpu.TextureView {
	texture, err := w.surface.GetCurrentTexture()
	if err != nil {
		panic(err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	w.frameTexture = texture
	w.frameView = view
	return view
}

func (w *Window) Present() {
	w.surface.Present()
	w.frameView.Release()
	w.frameTexture.Release()
	w.frameView = nil
	w.frameTexture = nil
}

func (w *Window) Destroy() {
	w.surface.Release()
	w.device.Release()
	w.adapter.Release()
	w.windowGlfw.Destroy()
	glfw.Terminate()
}
