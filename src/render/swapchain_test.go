package render

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vulkan-go/vulkan"
)

func TestChooseSwapSurfaceFormat(t *testing.T) {
	preferred := vulkan.SurfaceFormat{
		Format:     vulkan.FormatB8g8r8a8Srgb,
		ColorSpace: vulkan.ColorSpaceSrgbNonlinear,
	}
	other := vulkan.SurfaceFormat{
		Format:     vulkan.FormatR8g8b8a8Unorm,
		ColorSpace: vulkan.ColorSpaceSrgbNonlinear,
	}
	wrongSpace := vulkan.SurfaceFormat{
		Format:     vulkan.FormatB8g8r8a8Srgb,
		ColorSpace: vulkan.ColorSpace(1),
	}

	for idx, tc := range []struct {
		available []vulkan.SurfaceFormat
		want      vulkan.SurfaceFormat
	}{
		{[]vulkan.SurfaceFormat{preferred}, preferred},
		{[]vulkan.SurfaceFormat{other, preferred}, preferred},
		{[]vulkan.SurfaceFormat{other, wrongSpace}, other},
		{[]vulkan.SurfaceFormat{wrongSpace}, wrongSpace},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			require.Equal(t, tc.want, chooseSwapSurfaceFormat(tc.available))
		})
	}
}

func TestChooseSwapPresentMode(t *testing.T) {
	for idx, tc := range []struct {
		available []vulkan.PresentMode
		want      vulkan.PresentMode
	}{
		{[]vulkan.PresentMode{vulkan.PresentModeFifo, vulkan.PresentModeMailbox}, vulkan.PresentModeMailbox},
		{[]vulkan.PresentMode{vulkan.PresentModeMailbox}, vulkan.PresentModeMailbox},
		{[]vulkan.PresentMode{vulkan.PresentModeFifo}, vulkan.PresentModeFifo},
		{[]vulkan.PresentMode{vulkan.PresentModeImmediate, vulkan.PresentModeFifoRelaxed}, vulkan.PresentModeFifo},
		{nil, vulkan.PresentModeFifo},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			require.Equal(t, tc.want, chooseSwapPresentMode(tc.available))
		})
	}
}

func TestChooseSwapExtent(t *testing.T) {
	caps := func(current, min, max vulkan.Extent2D) vulkan.SurfaceCapabilities {
		return vulkan.SurfaceCapabilities{
			CurrentExtent:  current,
			MinImageExtent: min,
			MaxImageExtent: max,
		}
	}
	undefined := vulkan.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}

	for idx, tc := range []struct {
		caps   vulkan.SurfaceCapabilities
		window vulkan.Extent2D
		want   vulkan.Extent2D
	}{
		// Surface mandates the extent.
		{
			caps(vulkan.Extent2D{Width: 640, Height: 480}, vulkan.Extent2D{Width: 1, Height: 1}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			vulkan.Extent2D{Width: 800, Height: 600},
			vulkan.Extent2D{Width: 640, Height: 480},
		},
		// Window extent inside bounds passes through.
		{
			caps(undefined, vulkan.Extent2D{Width: 1, Height: 1}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			vulkan.Extent2D{Width: 800, Height: 600},
			vulkan.Extent2D{Width: 800, Height: 600},
		},
		// Clamped up to the minimum.
		{
			caps(undefined, vulkan.Extent2D{Width: 200, Height: 200}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			vulkan.Extent2D{Width: 100, Height: 150},
			vulkan.Extent2D{Width: 200, Height: 200},
		},
		// Clamped down to the maximum.
		{
			caps(undefined, vulkan.Extent2D{Width: 1, Height: 1}, vulkan.Extent2D{Width: 1024, Height: 768}),
			vulkan.Extent2D{Width: 1920, Height: 1080},
			vulkan.Extent2D{Width: 1024, Height: 768},
		},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			require.Equal(t, tc.want, chooseSwapExtent(tc.caps, tc.window))
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	for idx, tc := range []struct {
		min, max uint32
		want     uint32
	}{
		{2, 0, 3},  // no upper bound
		{2, 8, 3},  // min+1 within bound
		{3, 3, 3},  // capped at max
		{1, 2, 2},  // capped exactly
	} {
		t.Run(fmt.Sprintf("%d/min=%d,max=%d", idx, tc.min, tc.max), func(t *testing.T) {
			caps := vulkan.SurfaceCapabilities{
				MinImageCount: tc.min,
				MaxImageCount: tc.max,
			}
			require.Equal(t, tc.want, chooseImageCount(caps))
		})
	}
}

func TestCompareFormats(t *testing.T) {
	base := &SwapChain{
		imageFormat: vulkan.FormatB8g8r8a8Srgb,
		depthFormat: vulkan.FormatD32Sfloat,
	}

	for idx, tc := range []struct {
		imageFormat vulkan.Format
		depthFormat vulkan.Format
		want        bool
	}{
		{vulkan.FormatB8g8r8a8Srgb, vulkan.FormatD32Sfloat, true},
		{vulkan.FormatR8g8b8a8Unorm, vulkan.FormatD32Sfloat, false},
		{vulkan.FormatB8g8r8a8Srgb, vulkan.FormatD24UnormS8Uint, false},
		{vulkan.FormatR8g8b8a8Unorm, vulkan.FormatD24UnormS8Uint, false},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			require.Equal(t, tc.want, base.CompareFormats(tc.imageFormat, tc.depthFormat))
		})
	}
}

func TestDestroyPartialDepthResources(t *testing.T) {
	// A depth view creation failure leaves more images and memory blocks than
	// views behind; teardown must still walk every slice to its own end.
	s := &SwapChain{
		device:      &fakeDevice{},
		depthImages: make([]vulkan.Image, 2),
		depthMemory: make([]vulkan.DeviceMemory, 2),
		depthViews:  make([]vulkan.ImageView, 1),
	}

	require.NotPanics(t, s.Destroy)
	require.Empty(t, s.depthImages)
	require.Empty(t, s.depthMemory)
	require.Empty(t, s.depthViews)
}
