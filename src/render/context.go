package render

import (
	"github.com/vulkan-go/vulkan"
)

// SwapchainSupportDetails carries the surface capability query results a
// swap chain needs to pick its format, present mode and extent.
type SwapchainSupportDetails struct {
	Capabilities vulkan.SurfaceCapabilities
	Formats      []vulkan.SurfaceFormat
	PresentModes []vulkan.PresentMode
}

// DeviceContext is the logical-device collaborator. It owns the GPU
// connection, the queues and the command pool; everything here is queried,
// never mutated, by the render package.
type DeviceContext interface {
	Device() vulkan.Device
	Surface() vulkan.Surface
	GraphicsQueue() vulkan.Queue
	PresentQueue() vulkan.Queue
	QueueFamilyIndices() (graphics, present uint32)
	CommandPool() vulkan.CommandPool
	SwapchainSupport() SwapchainSupportDetails
	FindSupportedFormat(candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error)
	CreateImageWithInfo(info *vulkan.ImageCreateInfo, properties vulkan.MemoryPropertyFlagBits) (vulkan.Image, vulkan.DeviceMemory, error)
	CreateBuffer(size vulkan.DeviceSize, usage vulkan.BufferUsageFlags, properties vulkan.MemoryPropertyFlagBits) (vulkan.Buffer, vulkan.DeviceMemory, error)
	WaitIdle()
}

// Surface is the presentation-surface collaborator: a window that reports
// its drawable size and whether it was resized since the flag was last
// cleared. WaitEvents blocks until the platform delivers an event, which is
// how the renderer sleeps through minimization without spinning.
type Surface interface {
	Extent() vulkan.Extent2D
	WasResized() bool
	ResetResizedFlag()
	WaitEvents()
	ShouldClose() bool
}
