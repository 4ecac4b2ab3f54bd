package render

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// ErrFormatChanged is returned when a rebuilt swap chain comes back with a
// different color or depth format than the one pipelines were created
// against. There is no in-place recovery; the caller has to rebuild its
// pipelines or give up.
var ErrFormatChanged = errors.New("swapchain image or depth format changed")

// swapEngine is the presentation collaborator of the Renderer. *SwapChain
// is the production implementation.
type swapEngine interface {
	AcquireNextImage() (uint32, vulkan.Result)
	SubmitCommandBuffers(buffer vulkan.CommandBuffer, imageIndex uint32) vulkan.Result
	ImageFormat() vulkan.Format
	DepthFormat() vulkan.Format
	CompareFormats(imageFormat, depthFormat vulkan.Format) bool
	RenderPass() vulkan.RenderPass
	Framebuffer(index int) vulkan.Framebuffer
	Extent() vulkan.Extent2D
	ExtentAspectRatio() float32
	Destroy()
}

type engineFactory func(device DeviceContext, extent vulkan.Extent2D, previous swapEngine) (swapEngine, error)

func defaultEngineFactory(device DeviceContext, extent vulkan.Extent2D, previous swapEngine) (swapEngine, error) {
	if previous == nil {
		return NewSwapChain(device, extent)
	}
	old, ok := previous.(*SwapChain)
	if !ok {
		return NewSwapChain(device, extent)
	}
	return NewSwapChainFrom(device, extent, old)
}

// Renderer drives the per-frame protocol on top of the swap chain: acquire
// an image, record into the slot's command buffer, submit and present, and
// rebuild the swap chain whenever the surface invalidates it. Callers see
// four calls per frame, BeginFrame / BeginSwapchainRenderPass /
// EndSwapchainRenderPass / EndFrame, and never touch the swap chain
// directly.
type Renderer struct {
	device  DeviceContext
	surface Surface

	engine    swapEngine
	recorder  commandRecorder
	newEngine engineFactory

	session frameSession
	slot    int
}

// NewRenderer builds the swap chain for the surface's current extent and
// allocates one command buffer per frame slot.
func NewRenderer(device DeviceContext, surface Surface) (*Renderer, error) {
	r := &Renderer{
		device:    device,
		surface:   surface,
		recorder:  newVulkanRecorder(device),
		newEngine: defaultEngineFactory,
	}
	if err := r.recreateSwapchain(); err != nil {
		return nil, err
	}
	if err := r.recorder.Allocate(MaxFramesInFlight); err != nil {
		r.engine.Destroy()
		return nil, err
	}
	return r, nil
}

// Destroy releases the command buffers and the swap chain.
func (r *Renderer) Destroy() {
	r.recorder.Free()
	if r.engine != nil {
		r.engine.Destroy()
		r.engine = nil
	}
}

// IsFrameInProgress reports whether a frame is open.
func (r *Renderer) IsFrameInProgress() bool {
	return r.session.inFrame()
}

// CurrentCommandBuffer returns the open frame's command buffer. Panics
// outside a frame.
func (r *Renderer) CurrentCommandBuffer() vulkan.CommandBuffer {
	if !r.session.inFrame() {
		panic("command buffer requested outside a frame")
	}
	return r.recorder.Buffer(r.slot)
}

// FrameIndex returns the active frame-slot index. Panics outside a frame.
func (r *Renderer) FrameIndex() int {
	if !r.session.inFrame() {
		panic("frame index requested outside a frame")
	}
	return r.slot
}

// AspectRatio of the current swap chain extent, for projection setup.
func (r *Renderer) AspectRatio() float32 {
	return r.engine.ExtentAspectRatio()
}

// RenderPass the swap chain renders through. Pipelines are built against it.
func (r *Renderer) RenderPass() vulkan.RenderPass {
	return r.engine.RenderPass()
}

// BeginFrame acquires the next swapchain image and opens the frame slot's
// command buffer. A nil buffer with a nil error means the swap chain was
// out of date and has been rebuilt; the caller skips this frame and tries
// again. Panics if a frame is already open.
func (r *Renderer) BeginFrame() (vulkan.CommandBuffer, error) {
	if r.session.inFrame() {
		panic(fmt.Sprintf("frame begun while %s", r.session.state))
	}

	imageIndex, result := r.engine.AcquireNextImage()
	if result == vulkan.ErrorOutOfDate {
		if err := r.recreateSwapchain(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if result != vulkan.Success && result != vulkan.Suboptimal {
		return nil, fmt.Errorf("acquire swapchain image: %w", NewError(result))
	}

	r.session.beginFrame(imageIndex)
	buffer := r.recorder.Buffer(r.slot)
	if err := r.recorder.Begin(buffer); err != nil {
		r.session.abort()
		return nil, err
	}
	return buffer, nil
}

// EndFrame closes the command buffer, submits it and presents the image.
// An out-of-date or suboptimal result, or a pending surface resize, rebuilds
// the swap chain; the submitted frame still presented (or was dropped by
// the driver) either way. Advances the frame slot.
func (r *Renderer) EndFrame() error {
	buffer := r.recorder.Buffer(r.slot)
	imageIndex := r.session.endFrame()
	if err := r.recorder.End(buffer); err != nil {
		return err
	}

	result := r.engine.SubmitCommandBuffers(buffer, imageIndex)
	r.slot = (r.slot + 1) % MaxFramesInFlight

	if result == vulkan.ErrorOutOfDate || result == vulkan.Suboptimal || r.surface.WasResized() {
		r.surface.ResetResizedFlag()
		return r.recreateSwapchain()
	}
	if result != vulkan.Success {
		return fmt.Errorf("present swapchain image: %w", NewError(result))
	}
	return nil
}

// BeginSwapchainRenderPass opens the render pass on the acquired image's
// framebuffer. The buffer must be the one BeginFrame returned.
func (r *Renderer) BeginSwapchainRenderPass(buffer vulkan.CommandBuffer) {
	r.session.beginPass()
	if buffer != r.recorder.Buffer(r.slot) {
		panic("render pass begun on a command buffer from a different frame")
	}
	r.recorder.BeginPass(buffer, r.engine.RenderPass(), r.engine.Framebuffer(int(r.session.image())), r.engine.Extent())
}

// EndSwapchainRenderPass closes the render pass opened by
// BeginSwapchainRenderPass.
func (r *Renderer) EndSwapchainRenderPass(buffer vulkan.CommandBuffer) {
	r.session.endPass()
	if buffer != r.recorder.Buffer(r.slot) {
		panic("render pass ended on a command buffer from a different frame")
	}
	r.recorder.EndPass(buffer)
}

// recreateSwapchain rebuilds the swap chain for the surface's current
// extent. While the surface reports a zero extent (minimized window) it
// sleeps on the platform event queue instead of spinning, bailing out if
// the window is closed in the meantime. The old swap chain is passed to the
// new one as a reuse hint and destroyed once the replacement exists.
func (r *Renderer) recreateSwapchain() error {
	extent := r.surface.Extent()
	for extent.Width == 0 || extent.Height == 0 {
		if r.surface.ShouldClose() {
			return nil
		}
		r.surface.WaitEvents()
		extent = r.surface.Extent()
	}
	r.device.WaitIdle()

	if r.engine == nil {
		engine, err := r.newEngine(r.device, extent, nil)
		if err != nil {
			return err
		}
		r.engine = engine
		return nil
	}

	old := r.engine
	engine, err := r.newEngine(r.device, extent, old)
	if err != nil {
		return err
	}
	formatsMatch := engine.CompareFormats(old.ImageFormat(), old.DepthFormat())
	old.Destroy()
	r.engine = engine
	if !formatsMatch {
		return ErrFormatChanged
	}
	return nil
}
