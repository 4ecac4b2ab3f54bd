package render

import "fmt"

// frameState is the position of the renderer inside its per-frame protocol.
type frameState int

const (
	stateIdle frameState = iota
	stateFrameOpen
	statePassOpen
	statePassClosed
)

func (st frameState) String() string {
	switch st {
	case stateIdle:
		return "idle"
	case stateFrameOpen:
		return "frame open"
	case statePassOpen:
		return "render pass open"
	case statePassClosed:
		return "render pass closed"
	}
	return fmt.Sprintf("frameState(%d)", int(st))
}

// frameSession enforces the per-frame call protocol: a frame is begun, its
// render pass is opened then closed exactly once, and the frame is ended.
// Protocol violations are programming errors in the caller, so every
// transition panics on misuse rather than returning an error the caller
// would have to invent a recovery for.
type frameSession struct {
	state      frameState
	imageIndex uint32
}

// beginFrame opens a frame targeting the given swapchain image.
func (fs *frameSession) beginFrame(imageIndex uint32) {
	if fs.state != stateIdle {
		panic(fmt.Sprintf("beginFrame while %s", fs.state))
	}
	fs.state = stateFrameOpen
	fs.imageIndex = imageIndex
}

// beginPass opens the frame's render pass.
func (fs *frameSession) beginPass() {
	if fs.state != stateFrameOpen {
		panic(fmt.Sprintf("beginPass while %s", fs.state))
	}
	fs.state = statePassOpen
}

// endPass closes the render pass.
func (fs *frameSession) endPass() {
	if fs.state != statePassOpen {
		panic(fmt.Sprintf("endPass while %s", fs.state))
	}
	fs.state = statePassClosed
}

// endFrame closes the frame. A frame that never opened its render pass may
// end directly; one that did must close the pass first.
func (fs *frameSession) endFrame() uint32 {
	if fs.state != stateFrameOpen && fs.state != statePassClosed {
		panic(fmt.Sprintf("endFrame while %s", fs.state))
	}
	fs.state = stateIdle
	return fs.imageIndex
}

// inFrame reports whether a frame is currently open in any stage.
func (fs *frameSession) inFrame() bool {
	return fs.state != stateIdle
}

func (fs *frameSession) image() uint32 {
	if fs.state == stateIdle {
		panic("image index requested outside a frame")
	}
	return fs.imageIndex
}

// abort drops the session back to idle without the usual endFrame checks.
// Used when swapchain acquisition fails and the frame never really started.
func (fs *frameSession) abort() {
	fs.state = stateIdle
}
