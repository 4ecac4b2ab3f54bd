package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameSchedulerSlotCycling(t *testing.T) {
	fs := newFrameScheduler(2, 3)

	want := []int{0, 1, 0, 1, 0}
	for i, slot := range want {
		require.Equal(t, slot, fs.slot(), "advance %d", i)
		fs.advance()
	}
}

func TestFrameSchedulerInitialOwnership(t *testing.T) {
	fs := newFrameScheduler(2, 3)
	require.Equal(t, 3, fs.imageCount())
	for i := 0; i < fs.imageCount(); i++ {
		require.Equal(t, noOwner, fs.ownerOf(i))
	}
}

func TestFrameSchedulerOwnerOfOutOfRange(t *testing.T) {
	fs := newFrameScheduler(2, 3)
	require.Equal(t, noOwner, fs.ownerOf(-1))
	require.Equal(t, noOwner, fs.ownerOf(3))
}

func TestFrameSchedulerClaim(t *testing.T) {
	fs := newFrameScheduler(2, 3)

	fs.claim(1)
	require.Equal(t, 0, fs.ownerOf(1))

	fs.advance()
	fs.claim(2)
	require.Equal(t, 1, fs.ownerOf(2))
	require.Equal(t, 0, fs.ownerOf(1))
	require.Equal(t, noOwner, fs.ownerOf(0))
}

// Three images cycled over two slots: a slot wrapping around must be able
// to tell that a third image is still owned by its previous user, and
// reclaiming an image hands it to the current slot.
func TestFrameSchedulerMoreImagesThanSlots(t *testing.T) {
	fs := newFrameScheduler(2, 3)

	frames := []struct {
		image     int
		wantSlot  int
		prevOwner int
	}{
		{image: 0, wantSlot: 0, prevOwner: noOwner},
		{image: 1, wantSlot: 1, prevOwner: noOwner},
		{image: 2, wantSlot: 0, prevOwner: noOwner},
		{image: 0, wantSlot: 1, prevOwner: 0},
		{image: 1, wantSlot: 0, prevOwner: 1},
	}
	for idx, frame := range frames {
		t.Run(fmt.Sprintf("%d/image=%d", idx, frame.image), func(t *testing.T) {
			require.Equal(t, frame.wantSlot, fs.slot())
			require.Equal(t, frame.prevOwner, fs.ownerOf(frame.image))
			fs.claim(frame.image)
			require.Equal(t, frame.wantSlot, fs.ownerOf(frame.image))
			fs.advance()
		})
	}
}
