package render

import (
	"fmt"
	"log"
	"math"

	"github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of the
// GPU. Two gives double buffering of command buffers and sync objects; the
// swapchain image count is chosen independently by the driver.
const MaxFramesInFlight = 2

// SwapChain owns every object needed to present rendered images to the
// surface: the swapchain itself, one color view, depth buffer and
// framebuffer per image, the render pass they are all compatible with, and
// the semaphores and fences that order CPU and GPU work. It is created as a
// unit and destroyed as a unit; a creation failure tears down whatever was
// already built and leaves nothing behind.
type SwapChain struct {
	device DeviceContext

	imageFormat vulkan.Format
	depthFormat vulkan.Format
	extent      vulkan.Extent2D

	swapchain    vulkan.Swapchain
	images       []vulkan.Image
	imageViews   []vulkan.ImageView
	depthImages  []vulkan.Image
	depthMemory  []vulkan.DeviceMemory
	depthViews   []vulkan.ImageView
	framebuffers []vulkan.Framebuffer
	renderPass   vulkan.RenderPass

	imageAvailable []vulkan.Semaphore
	renderFinished []vulkan.Semaphore
	inFlight       []vulkan.Fence

	windowExtent vulkan.Extent2D
	sched        frameScheduler

	// Reuse hint for the driver during reconstruction. Held only while the
	// constructor runs, nil afterwards.
	previous *SwapChain
}

// NewSwapChain builds a swap chain sized for the given drawable extent.
func NewSwapChain(device DeviceContext, windowExtent vulkan.Extent2D) (*SwapChain, error) {
	return newSwapChain(device, windowExtent, nil)
}

// NewSwapChainFrom builds a replacement swap chain, handing the previous
// instance to the driver as a reuse hint. The previous instance is not
// destroyed here; the caller destroys it once the new one exists.
func NewSwapChainFrom(device DeviceContext, windowExtent vulkan.Extent2D, previous *SwapChain) (*SwapChain, error) {
	return newSwapChain(device, windowExtent, previous)
}

func newSwapChain(device DeviceContext, windowExtent vulkan.Extent2D, previous *SwapChain) (*SwapChain, error) {
	s := &SwapChain{
		device:       device,
		windowExtent: windowExtent,
		previous:     previous,
	}
	if err := s.init(); err != nil {
		s.Destroy()
		return nil, err
	}
	s.previous = nil
	return s, nil
}

func (s *SwapChain) init() error {
	if err := s.createSwapchain(); err != nil {
		return err
	}
	if err := s.createImageViews(); err != nil {
		return err
	}
	if err := s.createRenderPass(); err != nil {
		return err
	}
	if err := s.createDepthResources(); err != nil {
		return err
	}
	if err := s.createFramebuffers(); err != nil {
		return err
	}
	return s.createSyncObjects()
}

// Destroy releases every owned GPU object. Safe to call on a partially
// constructed instance: the depth slices are walked independently because a
// failure mid-construction can leave them at different lengths, and null
// handles are skipped.
func (s *SwapChain) Destroy() {
	dev := s.device.Device()
	for _, view := range s.imageViews {
		if view != vulkan.ImageView(vulkan.NullHandle) {
			vulkan.DestroyImageView(dev, view, nil)
		}
	}
	s.imageViews = nil
	if s.swapchain != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(dev, s.swapchain, nil)
		s.swapchain = vulkan.Swapchain(vulkan.NullHandle)
	}
	for _, view := range s.depthViews {
		if view != vulkan.ImageView(vulkan.NullHandle) {
			vulkan.DestroyImageView(dev, view, nil)
		}
	}
	for _, image := range s.depthImages {
		if image != vulkan.Image(vulkan.NullHandle) {
			vulkan.DestroyImage(dev, image, nil)
		}
	}
	for _, memory := range s.depthMemory {
		if memory != vulkan.DeviceMemory(vulkan.NullHandle) {
			vulkan.FreeMemory(dev, memory, nil)
		}
	}
	s.depthImages, s.depthViews, s.depthMemory = nil, nil, nil
	for _, fb := range s.framebuffers {
		if fb != vulkan.Framebuffer(vulkan.NullHandle) {
			vulkan.DestroyFramebuffer(dev, fb, nil)
		}
	}
	s.framebuffers = nil
	if s.renderPass != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(dev, s.renderPass, nil)
		s.renderPass = vulkan.RenderPass(vulkan.NullHandle)
	}
	for i := range s.imageAvailable {
		vulkan.DestroySemaphore(dev, s.imageAvailable[i], nil)
	}
	for i := range s.renderFinished {
		vulkan.DestroySemaphore(dev, s.renderFinished[i], nil)
	}
	for i := range s.inFlight {
		vulkan.DestroyFence(dev, s.inFlight[i], nil)
	}
	s.imageAvailable, s.renderFinished, s.inFlight = nil, nil, nil
}

// AcquireNextImage blocks until the active frame slot's fence signals, then
// asks the presentation engine for the next image, to be signaled on the
// slot's image-available semaphore. The returned result distinguishes
// success, ErrorOutOfDate (caller must rebuild) and Suboptimal (usable, but
// a rebuild is advised).
func (s *SwapChain) AcquireNextImage() (uint32, vulkan.Result) {
	dev := s.device.Device()
	slot := s.sched.slot()
	vulkan.WaitForFences(dev, 1, []vulkan.Fence{s.inFlight[slot]}, vulkan.True, math.MaxUint64)

	var imageIndex uint32
	result := vulkan.AcquireNextImage(
		dev,
		s.swapchain,
		math.MaxUint64,
		s.imageAvailable[slot],
		vulkan.NullFence,
		&imageIndex,
	)
	return imageIndex, result
}

// SubmitCommandBuffers hands the recorded buffer to the graphics queue and
// queues the image for presentation. If another frame slot still owns the
// target image its fence is awaited first; acquisition alone does not prove
// the GPU is done with the image when the image count exceeds the slot
// count. Advances the frame slot before returning.
func (s *SwapChain) SubmitCommandBuffers(buffer vulkan.CommandBuffer, imageIndex uint32) vulkan.Result {
	dev := s.device.Device()
	slot := s.sched.slot()

	if owner := s.sched.ownerOf(int(imageIndex)); owner != noOwner {
		vulkan.WaitForFences(dev, 1, []vulkan.Fence{s.inFlight[owner]}, vulkan.True, math.MaxUint64)
	}
	s.sched.claim(int(imageIndex))

	vulkan.ResetFences(dev, 1, []vulkan.Fence{s.inFlight[slot]})

	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{s.imageAvailable[slot]},
		PWaitDstStageMask: []vulkan.PipelineStageFlags{
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{buffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{s.renderFinished[slot]},
	}
	if res := vulkan.QueueSubmit(s.device.GraphicsQueue(), 1, []vulkan.SubmitInfo{submitInfo}, s.inFlight[slot]); res != vulkan.Success {
		return res
	}

	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{s.renderFinished[slot]},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{s.swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vulkan.QueuePresent(s.device.PresentQueue(), &presentInfo)

	s.sched.advance()
	return result
}

func (s *SwapChain) ImageCount() int                   { return len(s.images) }
func (s *SwapChain) ImageFormat() vulkan.Format        { return s.imageFormat }
func (s *SwapChain) DepthFormat() vulkan.Format        { return s.depthFormat }
func (s *SwapChain) Extent() vulkan.Extent2D           { return s.extent }
func (s *SwapChain) Width() uint32                     { return s.extent.Width }
func (s *SwapChain) Height() uint32                    { return s.extent.Height }
func (s *SwapChain) RenderPass() vulkan.RenderPass     { return s.renderPass }
func (s *SwapChain) Framebuffer(index int) vulkan.Framebuffer {
	return s.framebuffers[index]
}
func (s *SwapChain) ImageView(index int) vulkan.ImageView {
	return s.imageViews[index]
}

// ExtentAspectRatio is the width/height ratio used for projection setup.
func (s *SwapChain) ExtentAspectRatio() float32 {
	return float32(s.extent.Width) / float32(s.extent.Height)
}

// CompareFormats reports whether the swap chain uses the given color and
// depth formats. The renderer checks every rebuilt swap chain against the
// formats its pipelines were created for; a mismatch invalidates those
// pipelines and is treated as fatal.
func (s *SwapChain) CompareFormats(imageFormat, depthFormat vulkan.Format) bool {
	return s.imageFormat == imageFormat && s.depthFormat == depthFormat
}

func (s *SwapChain) createSwapchain() error {
	support := s.device.SwapchainSupport()

	surfaceFormat := chooseSwapSurfaceFormat(support.Formats)
	presentMode := chooseSwapPresentMode(support.PresentModes)
	extent := chooseSwapExtent(support.Capabilities, s.windowExtent)
	imageCount := chooseImageCount(support.Capabilities)

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          s.device.Surface(),
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
		OldSwapchain:     vulkan.Swapchain(vulkan.NullHandle),
	}
	if s.previous != nil {
		createInfo.OldSwapchain = s.previous.swapchain
	}

	graphicsFamily, presentFamily := s.device.QueueFamilyIndices()
	if graphicsFamily != presentFamily {
		// Both families touch the images, so they need concurrent access.
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{graphicsFamily, presentFamily}
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	}

	var swapchain vulkan.Swapchain
	if res := vulkan.CreateSwapchain(s.device.Device(), &createInfo, nil, &swapchain); res != vulkan.Success {
		return fmt.Errorf("create swapchain: %w", NewError(res))
	}
	s.swapchain = swapchain

	// The driver may allocate more images than the requested minimum.
	var count uint32
	vulkan.GetSwapchainImages(s.device.Device(), s.swapchain, &count, nil)
	s.images = make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(s.device.Device(), s.swapchain, &count, s.images)

	s.imageFormat = surfaceFormat.Format
	s.extent = extent
	return nil
}

func (s *SwapChain) createImageViews() error {
	s.imageViews = make([]vulkan.ImageView, len(s.images))
	for i := range s.images {
		viewInfo := vulkan.ImageViewCreateInfo{
			SType:    vulkan.StructureTypeImageViewCreateInfo,
			Image:    s.images[i],
			ViewType: vulkan.ImageViewType2d,
			Format:   s.imageFormat,
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if res := vulkan.CreateImageView(s.device.Device(), &viewInfo, nil, &s.imageViews[i]); res != vulkan.Success {
			s.imageViews = s.imageViews[:i]
			return fmt.Errorf("create image view %d: %w", i, NewError(res))
		}
	}
	return nil
}

func (s *SwapChain) createRenderPass() error {
	depthFormat, err := s.FindDepthFormat()
	if err != nil {
		return err
	}
	s.depthFormat = depthFormat

	colorAttachment := vulkan.AttachmentDescription{
		Format:         s.imageFormat,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}
	depthAttachment := vulkan.AttachmentDescription{
		Format:         s.depthFormat,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vulkan.AttachmentReference{{
			Attachment: 0,
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}},
		PDepthStencilAttachment: &vulkan.AttachmentReference{
			Attachment: 1,
			Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	// Block this subpass's color/depth writes until the previous frame's
	// color output and early depth tests have finished with the image. The
	// presentation engine hands out images before the GPU necessarily stops
	// reading them.
	dependency := vulkan.SubpassDependency{
		SrcSubpass: vulkan.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vulkan.PipelineStageFlags(
			vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask: vulkan.PipelineStageFlags(
			vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(
			vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	renderPassInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 2,
		PAttachments:    []vulkan.AttachmentDescription{colorAttachment, depthAttachment},
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}
	var renderPass vulkan.RenderPass
	if res := vulkan.CreateRenderPass(s.device.Device(), &renderPassInfo, nil, &renderPass); res != vulkan.Success {
		return fmt.Errorf("create render pass: %w", NewError(res))
	}
	s.renderPass = renderPass
	return nil
}

func (s *SwapChain) createDepthResources() error {
	count := len(s.images)
	s.depthImages = make([]vulkan.Image, 0, count)
	s.depthMemory = make([]vulkan.DeviceMemory, 0, count)
	s.depthViews = make([]vulkan.ImageView, 0, count)

	for i := 0; i < count; i++ {
		imageInfo := vulkan.ImageCreateInfo{
			SType:     vulkan.StructureTypeImageCreateInfo,
			ImageType: vulkan.ImageType2d,
			Extent: vulkan.Extent3D{
				Width:  s.extent.Width,
				Height: s.extent.Height,
				Depth:  1,
			},
			MipLevels:     1,
			ArrayLayers:   1,
			Format:        s.depthFormat,
			Tiling:        vulkan.ImageTilingOptimal,
			InitialLayout: vulkan.ImageLayoutUndefined,
			Usage:         vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
			Samples:       vulkan.SampleCount1Bit,
			SharingMode:   vulkan.SharingModeExclusive,
		}
		image, memory, err := s.device.CreateImageWithInfo(&imageInfo, vulkan.MemoryPropertyDeviceLocalBit)
		if err != nil {
			return fmt.Errorf("create depth image %d: %w", i, err)
		}
		s.depthImages = append(s.depthImages, image)
		s.depthMemory = append(s.depthMemory, memory)

		viewInfo := vulkan.ImageViewCreateInfo{
			SType:    vulkan.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vulkan.ImageViewType2d,
			Format:   s.depthFormat,
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vulkan.ImageView
		if res := vulkan.CreateImageView(s.device.Device(), &viewInfo, nil, &view); res != vulkan.Success {
			return fmt.Errorf("create depth image view %d: %w", i, NewError(res))
		}
		s.depthViews = append(s.depthViews, view)
	}
	return nil
}

func (s *SwapChain) createFramebuffers() error {
	s.framebuffers = make([]vulkan.Framebuffer, len(s.images))
	for i := range s.images {
		framebufferInfo := vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      s.renderPass,
			AttachmentCount: 2,
			PAttachments:    []vulkan.ImageView{s.imageViews[i], s.depthViews[i]},
			Width:           s.extent.Width,
			Height:          s.extent.Height,
			Layers:          1,
		}
		if res := vulkan.CreateFramebuffer(s.device.Device(), &framebufferInfo, nil, &s.framebuffers[i]); res != vulkan.Success {
			s.framebuffers = s.framebuffers[:i]
			return fmt.Errorf("create framebuffer %d: %w", i, NewError(res))
		}
	}
	return nil
}

func (s *SwapChain) createSyncObjects() error {
	s.sched = newFrameScheduler(MaxFramesInFlight, len(s.images))

	semaphoreInfo := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	// Fences start signaled so the first frame's wait returns immediately.
	fenceInfo := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
		Flags: vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit),
	}

	dev := s.device.Device()
	for i := 0; i < MaxFramesInFlight; i++ {
		var imageAvailable, renderFinished vulkan.Semaphore
		var fence vulkan.Fence
		if res := vulkan.CreateSemaphore(dev, &semaphoreInfo, nil, &imageAvailable); res != vulkan.Success {
			return fmt.Errorf("create image-available semaphore %d: %w", i, NewError(res))
		}
		s.imageAvailable = append(s.imageAvailable, imageAvailable)
		if res := vulkan.CreateSemaphore(dev, &semaphoreInfo, nil, &renderFinished); res != vulkan.Success {
			return fmt.Errorf("create render-finished semaphore %d: %w", i, NewError(res))
		}
		s.renderFinished = append(s.renderFinished, renderFinished)
		if res := vulkan.CreateFence(dev, &fenceInfo, nil, &fence); res != vulkan.Success {
			return fmt.Errorf("create in-flight fence %d: %w", i, NewError(res))
		}
		s.inFlight = append(s.inFlight, fence)
	}
	return nil
}

// FindDepthFormat picks the best supported depth format, preferring a pure
// 32-bit float before the combined depth/stencil formats.
func (s *SwapChain) FindDepthFormat() (vulkan.Format, error) {
	return s.device.FindSupportedFormat(
		[]vulkan.Format{
			vulkan.FormatD32Sfloat,
			vulkan.FormatD32SfloatS8Uint,
			vulkan.FormatD24UnormS8Uint,
		},
		vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit),
	)
}

func chooseSwapSurfaceFormat(available []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	for _, format := range available {
		if format.Format == vulkan.FormatB8g8r8a8Srgb && format.ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return available[0]
}

func chooseSwapPresentMode(available []vulkan.PresentMode) vulkan.PresentMode {
	for _, mode := range available {
		if mode == vulkan.PresentModeMailbox {
			log.Println("present mode: mailbox")
			return mode
		}
	}
	log.Println("present mode: fifo (v-sync)")
	return vulkan.PresentModeFifo
}

func chooseSwapExtent(capabilities vulkan.SurfaceCapabilities, windowExtent vulkan.Extent2D) vulkan.Extent2D {
	// MaxUint32 is the sentinel for "the surface follows the window"; any
	// other value is mandated by the surface.
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	extent := windowExtent
	extent.Width = clampU32(extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	extent.Height = clampU32(extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	return extent
}

// chooseImageCount requests one image beyond the driver minimum so a frame
// can be recorded while another is presented. A max of zero means the
// surface imposes no upper bound.
func chooseImageCount(capabilities vulkan.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
