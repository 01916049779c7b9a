package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/goshaderpass/canvas"
	"github.com/richinsley/goshaderpass/encoder"
	"github.com/richinsley/goshaderpass/gldevice"
	"github.com/richinsley/goshaderpass/glfwcontext"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/headless"
	"github.com/richinsley/goshaderpass/options"
	"github.com/richinsley/goshaderpass/renderer"
	"github.com/richinsley/goshaderpass/scene"
	"github.com/richinsley/goshaderpass/softdevice"
)

func init() {
	runtime.LockOSThread()
}

// loadScene builds the planes of the configured scene, or of the paint demo.
func loadScene(opts *options.Options) ([]*canvas.Plane, error) {
	desc := scene.DefaultScene(float32(*opts.BrushRadius), float32(*opts.RegenDuration))
	build := scene.BuildOptions{}
	if *opts.SceneFile != "" {
		var err error
		if desc, err = scene.Load(*opts.SceneFile); err != nil {
			return nil, err
		}
		build.BaseDir = filepath.Dir(*opts.SceneFile)
	}
	if *opts.SeedImage != "" {
		img, err := scene.LoadImage(*opts.SeedImage)
		if err != nil {
			return nil, err
		}
		build.SeedImage = img
	}
	return scene.Build(desc, build)
}

func addPlanes(c *canvas.Canvas, planes []*canvas.Plane) error {
	for _, p := range planes {
		if err := c.Add(p); err != nil {
			return err
		}
	}
	return nil
}

func runWindow(opts *options.Options, planes []*canvas.Plane) error {
	ctx, err := glfwcontext.New(*opts.Width, *opts.Height, "goshaderpass", true)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer ctx.Shutdown()
	ctx.MakeCurrent()

	width, height := ctx.GetFramebufferSize()
	dev, err := gldevice.New(width, height, false)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	c := canvas.New(canvas.Options{Device: dev, Width: width, Height: height, Time: ctx.Time, Input: ctx})
	if err := addPlanes(c, planes); err != nil {
		return err
	}

	// C restarts every pipeline from its seed.
	ctx.RegisterKeyCallback(glfw.KeyC, func() {
		if err := c.Resize(c.Size()); err != nil {
			log.Printf("Warning: failed to clear canvas: %v", err)
		}
	})
	if *opts.Snapshot != "" {
		ctx.RegisterKeyCallback(glfw.KeyS, func() {
			img, err := dev.ReadPixels(nil)
			if err == nil {
				err = writePNG(*opts.Snapshot, img)
			}
			if err != nil {
				log.Printf("Warning: snapshot failed: %v", err)
				return
			}
			log.Printf("Wrote snapshot %s", *opts.Snapshot)
		})
	}

	log.Println("Starting interactive render loop...")
	return runLoop(ctx, c)
}

// runLoop draws the canvas once per host frame until the host closes,
// following framebuffer size changes. A zero size (minimised window) is
// skipped.
func runLoop(host graphics.Context, c *canvas.Canvas) error {
	for !host.ShouldClose() {
		width, height := c.Size()
		if w, h := host.GetFramebufferSize(); (w != width || h != height) && w > 0 && h > 0 {
			if err := c.Resize(w, h); err != nil {
				return err
			}
		}
		if err := c.Update(); err != nil {
			return err
		}
		host.EndFrame()
	}
	return nil
}

func newRecordDevice(opts *options.Options) (renderer.Device, func(), error) {
	switch *opts.Device {
	case "software":
		return softdevice.New(*opts.Width, *opts.Height), func() {}, nil
	case "egl":
		ctx, err := headless.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create EGL context: %w", err)
		}
		dev, err := gldevice.New(*opts.Width, *opts.Height, true)
		if err != nil {
			ctx.Shutdown()
			return nil, nil, err
		}
		return dev, func() {
			dev.Destroy()
			ctx.Shutdown()
		}, nil
	}
	// The hidden window only provides the GL context.
	ctx, err := glfwcontext.New(*opts.Width, *opts.Height, "goshaderpass", false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create offscreen context: %w", err)
	}
	ctx.MakeCurrent()
	dev, err := gldevice.New(*opts.Width, *opts.Height, false)
	if err != nil {
		ctx.Shutdown()
		return nil, nil, err
	}
	return dev, func() {
		dev.Destroy()
		ctx.Shutdown()
	}, nil
}

func runRecord(opts *options.Options, planes []*canvas.Plane) error {
	dev, cleanup, err := newRecordDevice(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	frames := opts.Frames()
	fps := float64(*opts.FPS)
	frame := 0
	pointer := newScriptedPointer(*opts.Width, *opts.Height)
	c := canvas.New(canvas.Options{
		Device: dev,
		Width:  *opts.Width,
		Height: *opts.Height,
		Time:   func() float64 { return float64(frame) / fps },
		Input:  pointer,
	})
	if err := addPlanes(c, planes); err != nil {
		return err
	}

	var rec *encoder.Recorder
	if *opts.OutputFile != "" {
		rec, err = encoder.NewRecorder(encoder.Options{
			Width:         *opts.Width,
			Height:        *opts.Height,
			FPS:           *opts.FPS,
			OutputFile:    *opts.OutputFile,
			FFMPEGPath:    *opts.FFMPEGPath,
			Codec:         *opts.Codec,
			HardwareAccel: *opts.HardwareAccel,
		})
		if err != nil {
			return err
		}
	}

	var last *image.RGBA
	for frame = 0; frame < frames; frame++ {
		pointer.advance(float64(frame) / fps)
		if err := c.Update(); err != nil {
			if rec != nil {
				rec.Close()
			}
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if last, err = dev.ReadPixels(nil); err != nil {
			if rec != nil {
				rec.Close()
			}
			return err
		}
		if rec != nil {
			if err := rec.WriteFrame(last, int64(frame)); err != nil {
				rec.Close()
				return err
			}
		}
		if frame%int(max(fps, 1)) == 0 {
			log.Printf("Rendered frame %d/%d", frame, frames)
		}
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			return err
		}
		log.Printf("Successfully rendered to %s", *opts.OutputFile)
	}
	if *opts.Snapshot != "" && last != nil {
		if err := writePNG(*opts.Snapshot, last); err != nil {
			return err
		}
		log.Printf("Wrote snapshot %s", *opts.Snapshot)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return f.Close()
}

func main() {
	opts, err := options.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	if *opts.Help {
		fmt.Println("Multi-pass shader canvas viewer/recorder")
		flag.PrintDefaults()
		return
	}
	graphics.SetLogger(slog.Default())

	planes, err := loadScene(opts)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}

	needsGLFW := *opts.Mode == "window" || *opts.Device == "gl"
	if needsGLFW {
		if err := glfwcontext.InitGraphics(); err != nil {
			log.Fatalf("Failed to initialize GLFW: %v", err)
		}
		defer glfwcontext.TerminateGraphics()
	}

	switch *opts.Mode {
	case "window":
		err = runWindow(opts, planes)
	case "record":
		err = runRecord(opts, planes)
	}
	if err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}
}
