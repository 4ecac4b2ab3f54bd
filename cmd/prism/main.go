package main

import (
	"flag"
	"log"
	"runtime"

	"prism/src/app"
	"prism/src/platform"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	characterPath := flag.String("character", "", "path to a pixel-art character file")
	flag.Parse()

	if err := platform.Init(); err != nil {
		log.Fatalf("platform init: %v", err)
	}
	defer platform.Terminate()

	a, err := app.New(*characterPath)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Destroy()

	if err := a.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
