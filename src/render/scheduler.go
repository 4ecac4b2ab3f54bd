package render

// noOwner marks a swapchain image that no frame slot has claimed yet.
const noOwner = -1

// frameScheduler tracks the two independent counters of the frame protocol:
// the frame-slot index, which cycles round-robin over the fixed pool of
// in-flight slots, and the image ownership table, which records which slot's
// fence currently guards each swapchain image. The image count N and the
// slot count K are independent; the ownership table is what keeps an image
// from being rewritten while a slot other than the current one still has
// GPU work targeting it.
type frameScheduler struct {
	slots   int
	current int
	owners  []int
}

func newFrameScheduler(slots, images int) frameScheduler {
	owners := make([]int, images)
	for i := range owners {
		owners[i] = noOwner
	}
	return frameScheduler{slots: slots, owners: owners}
}

// slot returns the active frame-slot index.
func (fs *frameScheduler) slot() int {
	return fs.current
}

// ownerOf returns the slot whose fence guards the given image, or noOwner.
func (fs *frameScheduler) ownerOf(image int) int {
	if image < 0 || image >= len(fs.owners) {
		return noOwner
	}
	return fs.owners[image]
}

// claim records the active slot as the owner of the image. The caller must
// have observed the previous owner's fence as signaled first.
func (fs *frameScheduler) claim(image int) {
	fs.owners[image] = fs.current
}

// advance moves to the next frame slot, wrapping modulo the slot count.
func (fs *frameScheduler) advance() {
	fs.current = (fs.current + 1) % fs.slots
}

func (fs *frameScheduler) imageCount() int {
	return len(fs.owners)
}
