// Package app wires the window, device and renderer together and runs the
// frame loop.
package app

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"prism/src/device"
	"prism/src/platform"
	"prism/src/render"
	"prism/src/scene"
	"prism/src/sprite"
)

const (
	WindowWidth  = 800
	WindowHeight = 600
	WindowTitle  = "prism"

	vertShaderPath = "shaders/simple.vert.spv"
	fragShaderPath = "shaders/simple.frag.spv"
)

// defaultPalette maps pixel-art indices to colors. Index 4 stays the
// background.
var defaultPalette = map[int]mgl32.Vec3{
	0: {0.1, 0.1, 0.1},
	1: {0.9, 0.2, 0.2},
	2: {0.2, 0.9, 0.2},
	3: {0.2, 0.4, 0.9},
	5: {0.95, 0.85, 0.3},
}

// fallbackCharacter is used when no character file is given, a 4x4 smiley
// in the text grid format.
const fallbackCharacter = `4 4
4 1 1 4
1 0 0 1
1 1 1 1
4 1 1 4
`

// App owns the full engine stack for one window.
type App struct {
	window   *platform.Window
	device   *device.Context
	renderer *render.Renderer
	system   *RenderSystem

	camera     *scene.Camera
	controller *scene.Controller
	viewer     scene.Object
	objects    []*scene.Object
}

// New brings up the window, the device, the renderer and the render
// system, and loads the scene. characterPath may be empty for the built-in
// character.
func New(characterPath string) (*App, error) {
	window, err := platform.NewWindow(WindowWidth, WindowHeight, WindowTitle)
	if err != nil {
		return nil, err
	}
	ctx, err := device.NewContext(window)
	if err != nil {
		window.Destroy()
		return nil, err
	}
	renderer, err := render.NewRenderer(ctx, window)
	if err != nil {
		ctx.Destroy()
		window.Destroy()
		return nil, err
	}
	system, err := NewRenderSystem(ctx, renderer.RenderPass(), vertShaderPath, fragShaderPath)
	if err != nil {
		renderer.Destroy()
		ctx.Destroy()
		window.Destroy()
		return nil, err
	}

	a := &App{
		window:     window,
		device:     ctx,
		renderer:   renderer,
		system:     system,
		camera:     scene.NewCamera(),
		controller: scene.NewController(),
		viewer:     scene.NewObject(),
	}
	a.viewer.Transform.Translation = mgl32.Vec3{0, 0, -2.5}

	if err := a.loadObjects(characterPath); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

// Destroy tears the stack down in reverse construction order.
func (a *App) Destroy() {
	a.device.WaitIdle()
	for _, object := range a.objects {
		if object.Model != nil {
			object.Model.Destroy()
		}
	}
	a.system.Destroy()
	a.renderer.Destroy()
	a.device.Destroy()
	a.window.Destroy()
}

func (a *App) loadObjects(characterPath string) error {
	var grid *sprite.PixelGrid
	var err error
	if characterPath != "" {
		grid, err = sprite.Load(characterPath)
		if err != nil {
			return err
		}
	} else {
		grid, err = sprite.Parse(strings.NewReader(fallbackCharacter))
		if err != nil {
			return fmt.Errorf("parse built-in character: %w", err)
		}
	}

	vertices := sprite.BuildVertices(grid, defaultPalette, sprite.DefaultPixelSize)
	model, err := render.NewModel(a.device, vertices)
	if err != nil {
		return err
	}

	object := scene.NewObject()
	object.Model = model
	object.Color = mgl32.Vec3{1, 1, 1}
	a.objects = append(a.objects, &object)
	log.Printf("loaded character %dx%d (%d vertices)", grid.Width, grid.Height, model.VertexCount())
	return nil
}

// Run drives the frame loop until the window closes, then drains the GPU.
func (a *App) Run() error {
	lastFrame := time.Now()

	for !a.window.ShouldClose() {
		a.window.PollEvents()

		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		a.controller.MoveInPlaneXZ(a.window.Handle(), dt, &a.viewer)
		a.camera.SetViewYXZ(a.viewer.Transform.Translation, a.viewer.Transform.Rotation)

		aspect := a.renderer.AspectRatio()
		a.camera.SetPerspectiveProjection(float32(50*math.Pi/180), aspect, 0.1, 100)

		buffer, err := a.renderer.BeginFrame()
		if err != nil {
			return err
		}
		if buffer == nil {
			// Swap chain was rebuilt, skip this frame.
			continue
		}

		a.renderer.BeginSwapchainRenderPass(buffer)
		a.system.RenderObjects(buffer, a.objects, a.camera)
		a.renderer.EndSwapchainRenderPass(buffer)

		if err := a.renderer.EndFrame(); err != nil {
			return err
		}
	}

	a.device.WaitIdle()
	return nil
}
