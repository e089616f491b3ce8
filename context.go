package graphics2d

// DrawFilter restricts a draw to an inclusive range of draw-order positions
// in the frame's sorting-layer sequence.
type DrawFilter struct {
	First int
	Last  int
}

// DrawSettings carries the resolved sort policy for a renderer draw.
type DrawSettings struct {
	Sort SortSettings
}

// RenderContext is the single command stream the lighting pass records
// into. All methods append to the stream in call order; nothing executes
// before Flush. Implementations are not safe for concurrent use - the pass
// records from one goroutine only.
type RenderContext interface {
	// Viewport returns the size light-accumulation textures are created at.
	Viewport() (width, height uint32)

	// BlackTexture returns the constant black sentinel bound in place of
	// absent light textures.
	BlackTexture() TextureHandle

	RequestTexture(label string, width, height uint32) TextureHandle
	ReleaseTexture(handle TextureHandle)

	SetGlobalFloat(prop PropertyID, value float32)
	SetGlobalColor(prop PropertyID, value Color)
	SetGlobalTexture(prop PropertyID, handle TextureHandle)

	// Light accumulation sub-pass: target is cleared, then every DrawLight
	// until EndLightPass accumulates additively into it.
	BeginLightPass(target TextureHandle, clear Color)
	DrawLight(light *Light2D)
	EndLightPass()

	// DrawNormals renders the depth+normal buffer for the filtered range
	// into target. withDepth false skips depth-testing against scene depth.
	DrawNormals(filter DrawFilter, settings DrawSettings, target TextureHandle, withDepth bool)

	// DrawRenderers draws the filtered, sorted renderers into the main
	// color+depth targets.
	DrawRenderers(filter DrawFilter, settings DrawSettings)

	// DrawVolumetric adds one light's volume contribution over the main
	// color target.
	DrawVolumetric(light *Light2D)

	// DrawFallback draws placeholder visuals for renderers in the filtered
	// range that lack a usable shader variant.
	DrawFallback(filter DrawFilter)

	// Flush submits everything recorded so far. Light textures composited
	// before a Flush are readable by draws recorded after it.
	Flush()
}

type CommandType uint8

const (
	CmdRequestTexture CommandType = iota
	CmdReleaseTexture
	CmdSetGlobalFloat
	CmdSetGlobalColor
	CmdSetGlobalTexture
	CmdBeginLightPass
	CmdDrawLight
	CmdEndLightPass
	CmdDrawNormals
	CmdDrawRenderers
	CmdDrawVolumetric
	CmdDrawFallback
	CmdFlush
)

var commandTypeNames = [...]string{
	CmdRequestTexture:   "RequestTexture",
	CmdReleaseTexture:   "ReleaseTexture",
	CmdSetGlobalFloat:   "SetGlobalFloat",
	CmdSetGlobalColor:   "SetGlobalColor",
	CmdSetGlobalTexture: "SetGlobalTexture",
	CmdBeginLightPass:   "BeginLightPass",
	CmdDrawLight:        "DrawLight",
	CmdEndLightPass:     "EndLightPass",
	CmdDrawNormals:      "DrawNormals",
	CmdDrawRenderers:    "DrawRenderers",
	CmdDrawVolumetric:   "DrawVolumetric",
	CmdDrawFallback:     "DrawFallback",
	CmdFlush:            "Flush",
}

func (t CommandType) String() string {
	if int(t) < len(commandTypeNames) {
		return commandTypeNames[t]
	}
	return "Unknown"
}

// Command is one recorded operation. Typed structs instead of a serialized
// stream keep recordings inspectable in tests and debug dumps.
type Command interface {
	Type() CommandType
}

type RequestTextureCommand struct {
	Handle TextureHandle
	Label  string
	Width  uint32
	Height uint32
}

func (RequestTextureCommand) Type() CommandType { return CmdRequestTexture }

type ReleaseTextureCommand struct {
	Handle TextureHandle
}

func (ReleaseTextureCommand) Type() CommandType { return CmdReleaseTexture }

type SetGlobalFloatCommand struct {
	Prop  PropertyID
	Value float32
}

func (SetGlobalFloatCommand) Type() CommandType { return CmdSetGlobalFloat }

type SetGlobalColorCommand struct {
	Prop  PropertyID
	Value Color
}

func (SetGlobalColorCommand) Type() CommandType { return CmdSetGlobalColor }

type SetGlobalTextureCommand struct {
	Prop   PropertyID
	Handle TextureHandle
}

func (SetGlobalTextureCommand) Type() CommandType { return CmdSetGlobalTexture }

type BeginLightPassCommand struct {
	Target TextureHandle
	Clear  Color
}

func (BeginLightPassCommand) Type() CommandType { return CmdBeginLightPass }

type DrawLightCommand struct {
	Light *Light2D
}

func (DrawLightCommand) Type() CommandType { return CmdDrawLight }

type EndLightPassCommand struct{}

func (EndLightPassCommand) Type() CommandType { return CmdEndLightPass }

type DrawNormalsCommand struct {
	Filter    DrawFilter
	Settings  DrawSettings
	Target    TextureHandle
	WithDepth bool
}

func (DrawNormalsCommand) Type() CommandType { return CmdDrawNormals }

type DrawRenderersCommand struct {
	Filter   DrawFilter
	Settings DrawSettings
}

func (DrawRenderersCommand) Type() CommandType { return CmdDrawRenderers }

type DrawVolumetricCommand struct {
	Light *Light2D
}

func (DrawVolumetricCommand) Type() CommandType { return CmdDrawVolumetric }

type DrawFallbackCommand struct {
	Filter DrawFilter
}

func (DrawFallbackCommand) Type() CommandType { return CmdDrawFallback }

type FlushCommand struct{}

func (FlushCommand) Type() CommandType { return CmdFlush }

// CommandRecorder is a RenderContext that only records. It backs the pass
// tests and any host that wants to replay the stream onto its own device
// abstraction.
type CommandRecorder struct {
	width, height uint32
	commands      []Command
	black         TextureHandle
	live          map[TextureHandle]string // outstanding textures by label
}

var _ RenderContext = (*CommandRecorder)(nil)

func NewCommandRecorder(width, height uint32) *CommandRecorder {
	return &CommandRecorder{
		width:    width,
		height:   height,
		commands: make([]Command, 0, 64),
		black:    makeTextureHandle(),
		live:     map[TextureHandle]string{},
	}
}

// Commands returns the recorded stream in record order.
func (r *CommandRecorder) Commands() []Command {
	return r.commands
}

// LiveTextures returns the labels of requested-but-unreleased textures.
func (r *CommandRecorder) LiveTextures() []string {
	var out []string
	for _, label := range r.live {
		out = append(out, label)
	}
	return out
}

// Reset drops the recorded stream but keeps the sentinel handle, matching
// a context reused across frames.
func (r *CommandRecorder) Reset() {
	r.commands = r.commands[:0]
	clear(r.live)
}

func (r *CommandRecorder) Viewport() (uint32, uint32) {
	return r.width, r.height
}

func (r *CommandRecorder) BlackTexture() TextureHandle {
	return r.black
}

func (r *CommandRecorder) RequestTexture(label string, width, height uint32) TextureHandle {
	handle := makeTextureHandle()
	r.live[handle] = label
	r.commands = append(r.commands, RequestTextureCommand{Handle: handle, Label: label, Width: width, Height: height})
	return handle
}

func (r *CommandRecorder) ReleaseTexture(handle TextureHandle) {
	delete(r.live, handle)
	r.commands = append(r.commands, ReleaseTextureCommand{Handle: handle})
}

func (r *CommandRecorder) SetGlobalFloat(prop PropertyID, value float32) {
	r.commands = append(r.commands, SetGlobalFloatCommand{Prop: prop, Value: value})
}

func (r *CommandRecorder) SetGlobalColor(prop PropertyID, value Color) {
	r.commands = append(r.commands, SetGlobalColorCommand{Prop: prop, Value: value})
}

func (r *CommandRecorder) SetGlobalTexture(prop PropertyID, handle TextureHandle) {
	r.commands = append(r.commands, SetGlobalTextureCommand{Prop: prop, Handle: handle})
}

func (r *CommandRecorder) BeginLightPass(target TextureHandle, clearColor Color) {
	r.commands = append(r.commands, BeginLightPassCommand{Target: target, Clear: clearColor})
}

func (r *CommandRecorder) DrawLight(light *Light2D) {
	r.commands = append(r.commands, DrawLightCommand{Light: light})
}

func (r *CommandRecorder) EndLightPass() {
	r.commands = append(r.commands, EndLightPassCommand{})
}

func (r *CommandRecorder) DrawNormals(filter DrawFilter, settings DrawSettings, target TextureHandle, withDepth bool) {
	r.commands = append(r.commands, DrawNormalsCommand{Filter: filter, Settings: settings, Target: target, WithDepth: withDepth})
}

func (r *CommandRecorder) DrawRenderers(filter DrawFilter, settings DrawSettings) {
	r.commands = append(r.commands, DrawRenderersCommand{Filter: filter, Settings: settings})
}

func (r *CommandRecorder) DrawVolumetric(light *Light2D) {
	r.commands = append(r.commands, DrawVolumetricCommand{Light: light})
}

func (r *CommandRecorder) DrawFallback(filter DrawFilter) {
	r.commands = append(r.commands, DrawFallbackCommand{Filter: filter})
}

func (r *CommandRecorder) Flush() {
	r.commands = append(r.commands, FlushCommand{})
}
