package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/torus-gfx/torus/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the application window and the OS message pump. Window
// input is forwarded to the core input system, which fires the matching
// events.
type Platform struct {
	Window *glfw.Window

	resizeCallback func(width, height uint32)
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x, y int, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan and WebGPU.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	if x >= 0 && y >= 0 {
		p.Window.SetPos(x, y)
	}
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once
// the window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// RequestClose asks the window to close; the message pump reports it
// on its next run.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

// SetTitle changes the window title.
func (p *Platform) SetTitle(title string) {
	p.Window.SetTitle(title)
}

// FramebufferSize returns the window's framebuffer size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// OnFramebufferResize registers the callback invoked when the
// framebuffer size changes. Only one callback is kept.
func (p *Platform) OnFramebufferResize(cb func(width, height uint32)) {
	p.resizeCallback = cb
}

// GetRequiredExtensionNames returns the Vulkan instance extensions the
// windowing system needs for surface creation.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// VulkanSupported reports whether a Vulkan loader is available.
func VulkanSupported() bool {
	return glfw.VulkanSupported()
}

// specialKeys maps the non printable GLFW keys to core key codes.
// Printable keys already share the core values.
var specialKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyEscape:       core.KEY_ESCAPE,
	glfw.KeyEnter:        core.KEY_ENTER,
	glfw.KeyTab:          core.KEY_TAB,
	glfw.KeyBackspace:    core.KEY_BACKSPACE,
	glfw.KeyInsert:       core.KEY_INSERT,
	glfw.KeyDelete:       core.KEY_DELETE,
	glfw.KeyRight:        core.KEY_RIGHT,
	glfw.KeyLeft:         core.KEY_LEFT,
	glfw.KeyDown:         core.KEY_DOWN,
	glfw.KeyUp:           core.KEY_UP,
	glfw.KeyPageUp:       core.KEY_PRIOR,
	glfw.KeyPageDown:     core.KEY_NEXT,
	glfw.KeyHome:         core.KEY_HOME,
	glfw.KeyEnd:          core.KEY_END,
	glfw.KeyCapsLock:     core.KEY_CAPITAL,
	glfw.KeyScrollLock:   core.KEY_SCROLL,
	glfw.KeyNumLock:      core.KEY_NUMLOCK,
	glfw.KeyPrintScreen:  core.KEY_SNAPSHOT,
	glfw.KeyPause:        core.KEY_PAUSE,
	glfw.KeyKP0:          core.KEY_NUMPAD0,
	glfw.KeyKP1:          core.KEY_NUMPAD1,
	glfw.KeyKP2:          core.KEY_NUMPAD2,
	glfw.KeyKP3:          core.KEY_NUMPAD3,
	glfw.KeyKP4:          core.KEY_NUMPAD4,
	glfw.KeyKP5:          core.KEY_NUMPAD5,
	glfw.KeyKP6:          core.KEY_NUMPAD6,
	glfw.KeyKP7:          core.KEY_NUMPAD7,
	glfw.KeyKP8:          core.KEY_NUMPAD8,
	glfw.KeyKP9:          core.KEY_NUMPAD9,
	glfw.KeyKPDecimal:    core.KEY_DECIMAL,
	glfw.KeyKPDivide:     core.KEY_DIVIDE,
	glfw.KeyKPMultiply:   core.KEY_MULTIPLY,
	glfw.KeyKPSubtract:   core.KEY_SUBTRACT,
	glfw.KeyKPAdd:        core.KEY_ADD,
	glfw.KeyKPEnter:      core.KEY_ENTER,
	glfw.KeyKPEqual:      core.KEY_NUMPAD_EQUAL,
	glfw.KeyLeftShift:    core.KEY_LSHIFT,
	glfw.KeyLeftControl:  core.KEY_LCONTROL,
	glfw.KeyLeftAlt:      core.KEY_LMENU,
	glfw.KeyLeftSuper:    core.KEY_LWIN,
	glfw.KeyRightShift:   core.KEY_RSHIFT,
	glfw.KeyRightControl: core.KEY_RCONTROL,
	glfw.KeyRightAlt:     core.KEY_RMENU,
	glfw.KeyRightSuper:   core.KEY_RWIN,
	glfw.KeySemicolon:    core.KEY_SEMICOLON,
	glfw.KeyEqual:        core.KEY_PLUS,
	glfw.KeyComma:        core.KEY_COMMA,
	glfw.KeyMinus:        core.KEY_MINUS,
	glfw.KeyPeriod:       core.KEY_PERIOD,
	glfw.KeySlash:        core.KEY_SLASH,
	glfw.KeyGraveAccent:  core.KEY_GRAVE,
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if code, ok := specialKeys[key]; ok {
		return code, true
	}
	// Letters and space are ASCII in both code spaces.
	if (key >= glfw.KeyA && key <= glfw.KeyZ) || key == glfw.KeySpace {
		return core.KeyCode(key), true
	}
	return 0, false
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok {
		return
	}
	core.InputProcessKey(code, action != glfw.Release)
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button > glfw.MouseButtonMiddle {
		return
	}
	core.InputProcessButton(core.Button(button), action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, x, y float64) {
	if x < 0 || y < 0 {
		return
	}
	core.InputProcessMouseMove(uint16(x), uint16(y))
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	if yoff == 0 {
		return
	}
	delta := int8(1)
	if yoff < 0 {
		delta = -1
	}
	core.InputProcessMouseWheel(delta)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if p.resizeCallback != nil {
		p.resizeCallback(uint32(width), uint32(height))
	}
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.ResizeEvent{Width: uint32(width), Height: uint32(height)},
	})
}
