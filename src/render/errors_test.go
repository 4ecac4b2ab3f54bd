package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vulkan-go/vulkan"
)

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vulkan.Success))

	err := NewError(vulkan.ErrorDeviceLost)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vulkan error")
	require.Contains(t, err.Error(), "errors_test.go")
}

func TestIsError(t *testing.T) {
	require.False(t, IsError(vulkan.Success))
	require.True(t, IsError(vulkan.ErrorOutOfDate))
	require.True(t, IsError(vulkan.Suboptimal))
}

func TestOrPanic(t *testing.T) {
	require.NotPanics(t, func() { OrPanic(nil) })

	ran := false
	require.Panics(t, func() {
		OrPanic(NewError(vulkan.ErrorDeviceLost), func() { ran = true })
	})
	require.True(t, ran, "finalizer must run before the panic")
}

func TestCheckError(t *testing.T) {
	fn := func() (err error) {
		defer CheckError(&err)
		panic("boom")
	}
	err := fn()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
