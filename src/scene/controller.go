package scene

import (
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// KeyMappings binds movement actions to keys. The zero value is unusable;
// use DefaultKeyMappings.
type KeyMappings struct {
	MoveLeft     glfw.Key
	MoveRight    glfw.Key
	MoveForward  glfw.Key
	MoveBackward glfw.Key
	MoveUp       glfw.Key
	MoveDown     glfw.Key
}

func DefaultKeyMappings() KeyMappings {
	return KeyMappings{
		MoveLeft:     glfw.KeyA,
		MoveRight:    glfw.KeyD,
		MoveForward:  glfw.KeyW,
		MoveBackward: glfw.KeyS,
		MoveUp:       glfw.KeyE,
		MoveDown:     glfw.KeyQ,
	}
}

const mouseSensitivity = 0.2

// Controller moves an object with WASD-style keys in the XZ plane, QE
// vertically, and mouse look while the left button is held.
type Controller struct {
	Keys      KeyMappings
	MoveSpeed float32
	LookSpeed float32

	firstClick bool
	lastX      float64
	lastY      float64
}

func NewController() *Controller {
	return &Controller{
		Keys:       DefaultKeyMappings(),
		MoveSpeed:  3,
		LookSpeed:  1.5,
		firstClick: true,
	}
}

// MoveInPlaneXZ applies one tick of input to the object. dt is the frame
// time in seconds so speed is framerate independent.
func (c *Controller) MoveInPlaneXZ(window *glfw.Window, dt float32, object *Object) {
	if window.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press {
		x, y := window.GetCursorPos()
		if c.firstClick {
			c.lastX, c.lastY = x, y
			c.firstClick = false
		}
		xOffset := float32(x - c.lastX)
		yOffset := float32(y - c.lastY)
		c.lastX, c.lastY = x, y

		rot := &object.Transform.Rotation
		rot[1] += c.LookSpeed * dt * xOffset * mouseSensitivity
		rot[0] -= c.LookSpeed * dt * yOffset * mouseSensitivity

		// Pitch clamped short of the poles; yaw wrapped into one turn.
		rot[0] = mgl32.Clamp(rot[0], -1.5, 1.5)
		rot[1] = float32(math.Mod(float64(rot[1]), 2*math.Pi))
	} else {
		c.firstClick = true
	}

	yaw := object.Transform.Rotation.Y()
	forward := mgl32.Vec3{float32(math.Sin(float64(yaw))), 0, float32(math.Cos(float64(yaw)))}
	right := mgl32.Vec3{forward.Z(), 0, -forward.X()}
	up := DefaultUp

	var move mgl32.Vec3
	if window.GetKey(c.Keys.MoveForward) == glfw.Press {
		move = move.Add(forward)
	}
	if window.GetKey(c.Keys.MoveBackward) == glfw.Press {
		move = move.Sub(forward)
	}
	if window.GetKey(c.Keys.MoveRight) == glfw.Press {
		move = move.Add(right)
	}
	if window.GetKey(c.Keys.MoveLeft) == glfw.Press {
		move = move.Sub(right)
	}
	if window.GetKey(c.Keys.MoveUp) == glfw.Press {
		move = move.Add(up)
	}
	if window.GetKey(c.Keys.MoveDown) == glfw.Press {
		move = move.Sub(up)
	}

	if move.Dot(move) > 1e-7 {
		object.Transform.Translation = object.Transform.Translation.Add(
			move.Normalize().Mul(c.MoveSpeed * dt))
	}
}
