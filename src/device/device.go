// Package device owns the Vulkan instance, the physical and logical device,
// the queues and the command pool, and hands out the small helpers the rest
// of the engine needs for buffers, images and format queries.
package device

import (
	"fmt"
	"log"
	"os"
	"strings"
	"unsafe"

	"github.com/vulkan-go/vulkan"

	"prism/src/render"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

var deviceExtensions = []string{"VK_KHR_swapchain"}

// SurfaceSource creates the presentation surface the device renders to and
// names the instance extensions the platform needs. The platform window
// implements it.
type SurfaceSource interface {
	CreateSurface(instance vulkan.Instance) (vulkan.Surface, error)
	RequiredExtensions() []string
}

// Context implements render.DeviceContext on a real GPU.
type Context struct {
	instance      vulkan.Instance
	debugCallback vulkan.DebugReportCallback
	surface       vulkan.Surface
	physical      vulkan.PhysicalDevice
	device        vulkan.Device
	graphicsQueue vulkan.Queue
	presentQueue  vulkan.Queue

	graphicsFamily uint32
	presentFamily  uint32

	commandPool vulkan.CommandPool

	validation bool
}

// NewContext brings up the full device stack against the given surface
// source: instance, debug callback, surface, physical device, logical
// device with its queues, and the command pool.
func NewContext(source SurfaceSource) (*Context, error) {
	c := &Context{validation: validationEnabled()}

	if err := c.createInstance(source); err != nil {
		return nil, err
	}
	if err := vulkan.InitInstance(c.instance); err != nil {
		c.Destroy()
		return nil, fmt.Errorf("init instance: %w", err)
	}
	if err := c.setupDebugCallback(); err != nil {
		c.Destroy()
		return nil, err
	}
	surface, err := source.CreateSurface(c.instance)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.surface = surface
	if err := c.pickPhysicalDevice(); err != nil {
		c.Destroy()
		return nil, err
	}
	if err := c.createLogicalDevice(); err != nil {
		c.Destroy()
		return nil, err
	}
	if err := c.createCommandPool(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

// Destroy tears the stack down in reverse creation order. Safe on a
// partially constructed context.
func (c *Context) Destroy() {
	if c.device != nil {
		if c.commandPool != vulkan.CommandPool(vulkan.NullHandle) {
			vulkan.DestroyCommandPool(c.device, c.commandPool, nil)
		}
		vulkan.DestroyDevice(c.device, nil)
		c.device = nil
	}
	if c.instance == nil {
		return
	}
	if c.surface != vulkan.NullSurface {
		vulkan.DestroySurface(c.instance, c.surface, nil)
		c.surface = vulkan.NullSurface
	}
	if c.debugCallback != vulkan.DebugReportCallback(vulkan.NullHandle) {
		vulkan.DestroyDebugReportCallback(c.instance, c.debugCallback, nil)
	}
	vulkan.DestroyInstance(c.instance, nil)
	c.instance = nil
}

func (c *Context) Device() vulkan.Device          { return c.device }
func (c *Context) Surface() vulkan.Surface        { return c.surface }
func (c *Context) GraphicsQueue() vulkan.Queue    { return c.graphicsQueue }
func (c *Context) PresentQueue() vulkan.Queue     { return c.presentQueue }
func (c *Context) CommandPool() vulkan.CommandPool { return c.commandPool }

func (c *Context) QueueFamilyIndices() (graphics, present uint32) {
	return c.graphicsFamily, c.presentFamily
}

func (c *Context) WaitIdle() {
	vulkan.DeviceWaitIdle(c.device)
}

// SwapchainSupport queries the surface capabilities, formats and present
// modes of the selected physical device.
func (c *Context) SwapchainSupport() render.SwapchainSupportDetails {
	return querySwapchainSupport(c.physical, c.surface)
}

func validationEnabled() bool {
	switch os.Getenv("VK_VALIDATION") {
	case "0", "false", "False", "FALSE":
		return false
	}
	return true
}

func (c *Context) createInstance(source SurfaceSource) error {
	if c.validation && !validationLayersSupported() {
		log.Println("validation layers requested but not available, continuing without")
		c.validation = false
	}

	extensions := source.RequiredExtensions()
	if c.validation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   "prism\x00",
		ApplicationVersion: vulkan.MakeVersion(0, 1, 0),
		PEngineName:        "prism\x00",
		EngineVersion:      vulkan.MakeVersion(0, 1, 0),
		ApiVersion:         vulkan.MakeVersion(1, 1, 0),
	}
	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: terminatedStrs(extensions),
	}
	if c.validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = terminatedStrs(validationLayers)
	}

	var instance vulkan.Instance
	if res := vulkan.CreateInstance(&createInfo, nil, &instance); res != vulkan.Success {
		return fmt.Errorf("create instance: %w", render.NewError(res))
	}
	c.instance = instance
	return nil
}

func validationLayersSupported() bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	available := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		available[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, layer := range validationLayers {
		if !available[layer] {
			return false
		}
	}
	return true
}

func (c *Context) setupDebugCallback() error {
	if !c.validation {
		return nil
	}
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType,
			object uint64, location uint, messageCode int32, layerPrefix string,
			message string, userData unsafe.Pointer) vulkan.Bool32 {
			log.Printf("[vk][%s] %s (code=%d)", layerPrefix, message, messageCode)
			return vulkan.False
		},
	}
	if res := vulkan.CreateDebugReportCallback(c.instance, &createInfo, nil, &c.debugCallback); res != vulkan.Success {
		return fmt.Errorf("create debug callback: %w", render.NewError(res))
	}
	return nil
}

func (c *Context) pickPhysicalDevice() error {
	var count uint32
	vulkan.EnumeratePhysicalDevices(c.instance, &count, nil)
	if count == 0 {
		return fmt.Errorf("no GPU with vulkan support found")
	}
	devices := make([]vulkan.PhysicalDevice, count)
	vulkan.EnumeratePhysicalDevices(c.instance, &count, devices)

	for _, physical := range devices {
		graphics, present, ok := findQueueFamilies(physical, c.surface)
		if !ok {
			continue
		}
		if !deviceExtensionsSupported(physical) {
			continue
		}
		support := querySwapchainSupport(physical, c.surface)
		if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			continue
		}
		c.physical = physical
		c.graphicsFamily = graphics
		c.presentFamily = present

		var props vulkan.PhysicalDeviceProperties
		vulkan.GetPhysicalDeviceProperties(physical, &props)
		props.Deref()
		log.Printf("using device: %s", vulkan.ToString(props.DeviceName[:]))
		return nil
	}
	return fmt.Errorf("no suitable GPU found among %d devices", count)
}

func findQueueFamilies(physical vulkan.PhysicalDevice, surface vulkan.Surface) (graphics, present uint32, ok bool) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	families := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(physical, &count, families)

	var haveGraphics, havePresent bool
	for i := range families {
		families[i].Deref()
		if families[i].QueueCount == 0 {
			continue
		}
		if !haveGraphics && families[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			graphics = uint32(i)
			haveGraphics = true
		}
		var supported vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(physical, uint32(i), surface, &supported)
		if !havePresent && supported == vulkan.True {
			present = uint32(i)
			havePresent = true
		}
		if haveGraphics && havePresent {
			break
		}
	}
	return graphics, present, haveGraphics && havePresent
}

func deviceExtensionsSupported(physical vulkan.PhysicalDevice) bool {
	var count uint32
	vulkan.EnumerateDeviceExtensionProperties(physical, "", &count, nil)
	props := make([]vulkan.ExtensionProperties, count)
	vulkan.EnumerateDeviceExtensionProperties(physical, "", &count, props)

	available := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		available[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range deviceExtensions {
		if !available[ext] {
			return false
		}
	}
	return true
}

func querySwapchainSupport(physical vulkan.PhysicalDevice, surface vulkan.Surface) render.SwapchainSupportDetails {
	var details render.SwapchainSupportDetails

	vulkan.GetPhysicalDeviceSurfaceCapabilities(physical, surface, &details.Capabilities)
	details.Capabilities.Deref()
	details.Capabilities.CurrentExtent.Deref()
	details.Capabilities.MinImageExtent.Deref()
	details.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, nil)
	if formatCount > 0 {
		details.Formats = make([]vulkan.SurfaceFormat, formatCount)
		vulkan.GetPhysicalDeviceSurfaceFormats(physical, surface, &formatCount, details.Formats)
		for i := range details.Formats {
			details.Formats[i].Deref()
		}
	}

	var modeCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, nil)
	if modeCount > 0 {
		details.PresentModes = make([]vulkan.PresentMode, modeCount)
		vulkan.GetPhysicalDeviceSurfacePresentModes(physical, surface, &modeCount, details.PresentModes)
	}
	return details
}

func (c *Context) createLogicalDevice() error {
	queuePriority := []float32{1.0}
	uniqueFamilies := []uint32{c.graphicsFamily}
	if c.presentFamily != c.graphicsFamily {
		uniqueFamilies = append(uniqueFamilies, c.presentFamily)
	}

	queueInfos := make([]vulkan.DeviceQueueCreateInfo, 0, len(uniqueFamilies))
	for _, family := range uniqueFamilies {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: queuePriority,
		})
	}

	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: terminatedStrs(deviceExtensions),
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{{}},
	}
	if c.validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = terminatedStrs(validationLayers)
	}

	var device vulkan.Device
	if res := vulkan.CreateDevice(c.physical, &createInfo, nil, &device); res != vulkan.Success {
		return fmt.Errorf("create logical device: %w", render.NewError(res))
	}
	c.device = device

	vulkan.GetDeviceQueue(c.device, c.graphicsFamily, 0, &c.graphicsQueue)
	vulkan.GetDeviceQueue(c.device, c.presentFamily, 0, &c.presentQueue)
	return nil
}

func (c *Context) createCommandPool() error {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType: vulkan.StructureTypeCommandPoolCreateInfo,
		Flags: vulkan.CommandPoolCreateFlags(
			vulkan.CommandPoolCreateTransientBit | vulkan.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: c.graphicsFamily,
	}
	var pool vulkan.CommandPool
	if res := vulkan.CreateCommandPool(c.device, &poolInfo, nil, &pool); res != vulkan.Success {
		return fmt.Errorf("create command pool: %w", render.NewError(res))
	}
	c.commandPool = pool
	return nil
}

// FindMemoryType selects a memory type matching the filter and properties.
func (c *Context) FindMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, error) {
	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(c.physical, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 &&
			memProps.MemoryTypes[i].PropertyFlags&vulkan.MemoryPropertyFlags(properties) == vulkan.MemoryPropertyFlags(properties) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches filter 0x%x with properties 0x%x", typeFilter, properties)
}

// FindSupportedFormat returns the first candidate the device supports with
// the given tiling and features.
func (c *Context) FindSupportedFormat(candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {
	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(c.physical, format, &props)
		props.Deref()

		switch tiling {
		case vulkan.ImageTilingLinear:
			if props.LinearTilingFeatures&features == features {
				return format, nil
			}
		case vulkan.ImageTilingOptimal:
			if props.OptimalTilingFeatures&features == features {
				return format, nil
			}
		}
	}
	return vulkan.FormatUndefined, fmt.Errorf("none of %d candidate formats supported", len(candidates))
}

// CreateBuffer creates a buffer and binds freshly allocated memory to it.
func (c *Context) CreateBuffer(size vulkan.DeviceSize, usage vulkan.BufferUsageFlags, properties vulkan.MemoryPropertyFlagBits) (vulkan.Buffer, vulkan.DeviceMemory, error) {
	bufferInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}
	var buffer vulkan.Buffer
	if res := vulkan.CreateBuffer(c.device, &bufferInfo, nil, &buffer); res != vulkan.Success {
		return nullBuffer, nullMemory, fmt.Errorf("create buffer: %w", render.NewError(res))
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(c.device, buffer, &memReq)
	memReq.Deref()

	memory, err := c.allocate(memReq, properties)
	if err != nil {
		vulkan.DestroyBuffer(c.device, buffer, nil)
		return nullBuffer, nullMemory, err
	}
	if res := vulkan.BindBufferMemory(c.device, buffer, memory, 0); res != vulkan.Success {
		vulkan.DestroyBuffer(c.device, buffer, nil)
		vulkan.FreeMemory(c.device, memory, nil)
		return nullBuffer, nullMemory, fmt.Errorf("bind buffer memory: %w", render.NewError(res))
	}
	return buffer, memory, nil
}

// CreateImageWithInfo creates an image and binds freshly allocated memory.
func (c *Context) CreateImageWithInfo(info *vulkan.ImageCreateInfo, properties vulkan.MemoryPropertyFlagBits) (vulkan.Image, vulkan.DeviceMemory, error) {
	var image vulkan.Image
	if res := vulkan.CreateImage(c.device, info, nil, &image); res != vulkan.Success {
		return nullImage, nullMemory, fmt.Errorf("create image: %w", render.NewError(res))
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(c.device, image, &memReq)
	memReq.Deref()

	memory, err := c.allocate(memReq, properties)
	if err != nil {
		vulkan.DestroyImage(c.device, image, nil)
		return nullImage, nullMemory, err
	}
	if res := vulkan.BindImageMemory(c.device, image, memory, 0); res != vulkan.Success {
		vulkan.DestroyImage(c.device, image, nil)
		vulkan.FreeMemory(c.device, memory, nil)
		return nullImage, nullMemory, fmt.Errorf("bind image memory: %w", render.NewError(res))
	}
	return image, memory, nil
}

func (c *Context) allocate(memReq vulkan.MemoryRequirements, properties vulkan.MemoryPropertyFlagBits) (vulkan.DeviceMemory, error) {
	memoryType, err := c.FindMemoryType(memReq.MemoryTypeBits, properties)
	if err != nil {
		return nullMemory, err
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vulkan.DeviceMemory
	if res := vulkan.AllocateMemory(c.device, &allocInfo, nil, &memory); res != vulkan.Success {
		return nullMemory, fmt.Errorf("allocate memory: %w", render.NewError(res))
	}
	return memory, nil
}

var (
	nullBuffer = vulkan.Buffer(vulkan.NullHandle)
	nullImage  = vulkan.Image(vulkan.NullHandle)
	nullMemory = vulkan.DeviceMemory(vulkan.NullHandle)
)

// BeginSingleTimeCommands allocates and begins a throwaway command buffer
// for a one-shot transfer.
func (c *Context) BeginSingleTimeCommands() (vulkan.CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandPool:        c.commandPool,
		CommandBufferCount: 1,
	}
	buffers := make([]vulkan.CommandBuffer, 1)
	if res := vulkan.AllocateCommandBuffers(c.device, &allocInfo, buffers); res != vulkan.Success {
		return nil, fmt.Errorf("allocate one-shot command buffer: %w", render.NewError(res))
	}
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vulkan.BeginCommandBuffer(buffers[0], &beginInfo); res != vulkan.Success {
		vulkan.FreeCommandBuffers(c.device, c.commandPool, 1, buffers)
		return nil, fmt.Errorf("begin one-shot command buffer: %w", render.NewError(res))
	}
	return buffers[0], nil
}

// EndSingleTimeCommands submits the one-shot buffer, waits for the queue to
// drain it and frees it.
func (c *Context) EndSingleTimeCommands(buffer vulkan.CommandBuffer) error {
	defer vulkan.FreeCommandBuffers(c.device, c.commandPool, 1, []vulkan.CommandBuffer{buffer})

	if res := vulkan.EndCommandBuffer(buffer); res != vulkan.Success {
		return fmt.Errorf("end one-shot command buffer: %w", render.NewError(res))
	}
	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{buffer},
	}
	if res := vulkan.QueueSubmit(c.graphicsQueue, 1, []vulkan.SubmitInfo{submitInfo}, vulkan.NullFence); res != vulkan.Success {
		return fmt.Errorf("submit one-shot command buffer: %w", render.NewError(res))
	}
	if res := vulkan.QueueWaitIdle(c.graphicsQueue); res != vulkan.Success {
		return fmt.Errorf("wait for one-shot command buffer: %w", render.NewError(res))
	}
	return nil
}

// CopyBuffer copies size bytes between buffers through a one-shot command.
func (c *Context) CopyBuffer(src, dst vulkan.Buffer, size vulkan.DeviceSize) error {
	buffer, err := c.BeginSingleTimeCommands()
	if err != nil {
		return err
	}
	region := vulkan.BufferCopy{Size: size}
	vulkan.CmdCopyBuffer(buffer, src, dst, 1, []vulkan.BufferCopy{region})
	return c.EndSingleTimeCommands(buffer)
}

// terminatedStrs null-terminates each string for the C side.
func terminatedStrs(strs []string) []string {
	out := make([]string, len(strs))
	for i, s := range strs {
		if strings.HasSuffix(s, "\x00") {
			out[i] = s
			continue
		}
		out[i] = s + "\x00"
	}
	return out
}
