// Package platform wraps the GLFW window the engine presents into. The
// window is created without a client API so the surface belongs entirely to
// Vulkan, and all calls must stay on the thread that created it.
package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"
)

// Window is a resizable GLFW window exposing its drawable extent and a
// sticky resized flag the renderer polls after presenting.
type Window struct {
	handle  *glfw.Window
	width   int
	height  int
	resized bool
}

// Init initializes GLFW and the Vulkan loader. Must be called once, on the
// main thread, before any window is created.
func Init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw reports no vulkan support")
	}
	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		glfw.Terminate()
		return fmt.Errorf("init vulkan loader: %w", err)
	}
	return nil
}

// Terminate shuts GLFW down. Call after every window is destroyed.
func Terminate() {
	glfw.Terminate()
}

// NewWindow opens a window with no OpenGL context attached.
func NewWindow(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{handle: handle, width: width, height: height}
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, newWidth, newHeight int) {
		w.resized = true
		w.width = newWidth
		w.height = newHeight
	})
	return w, nil
}

func (w *Window) Destroy() {
	w.handle.Destroy()
}

// CreateSurface creates a presentation surface on the instance.
func (w *Window) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	surfacePtr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vulkan.NullSurface, fmt.Errorf("create window surface: %w", err)
	}
	return vulkan.SurfaceFromPointer(surfacePtr), nil
}

// RequiredExtensions lists the instance extensions GLFW needs to present.
func (w *Window) RequiredExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

// Extent returns the drawable size in pixels. Zero in either dimension
// means the window is minimized.
func (w *Window) Extent() vulkan.Extent2D {
	return vulkan.Extent2D{Width: uint32(w.width), Height: uint32(w.height)}
}

// WasResized reports whether the framebuffer changed size since the flag
// was last reset.
func (w *Window) WasResized() bool {
	return w.resized
}

func (w *Window) ResetResizedFlag() {
	w.resized = false
}

func (w *Window) ShouldClose() bool {
	return w.handle.ShouldClose()
}

// PollEvents processes pending events without blocking.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents blocks until at least one event arrives. Used to sleep through
// minimization instead of spinning.
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

// Handle exposes the underlying GLFW window for input polling.
func (w *Window) Handle() *glfw.Window {
	return w.handle
}
