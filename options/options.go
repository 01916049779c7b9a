package options

import (
	"errors"
	"flag"
	"fmt"
)

var ErrInvalidOption = errors.New("invalid option")

// Options holds the command-line configuration.
type Options struct {
	Help          *bool
	Mode          *string // "window" or "record"
	Device        *string // "gl", "egl" or "software"
	Width         *int
	Height        *int
	Duration      *float64
	FPS           *int
	OutputFile    *string
	FFMPEGPath    *string
	Codec         *string
	HardwareAccel *bool
	SceneFile     *string // JSON scene; the paint demo when empty
	SeedImage     *string // overrides the seed of every pipeline
	BrushRadius   *float64
	RegenDuration *float64
	Snapshot      *string // PNG of the last recorded frame, or of the screen on S
}

// Register defines the flags on fs and returns the options they fill.
func Register(fs *flag.FlagSet) *Options {
	return &Options{
		Help:          fs.Bool("help", false, "Show help message"),
		Mode:          fs.String("mode", "window", "Run mode: window or record"),
		Device:        fs.String("device", "gl", "Render device: gl, egl (headless, record only) or software"),
		Width:         fs.Int("width", 1280, "Width of the canvas"),
		Height:        fs.Int("height", 720, "Height of the canvas"),
		Duration:      fs.Float64("duration", 10.0, "Duration to record in seconds"),
		FPS:           fs.Int("fps", 60, "Frames per second for recording"),
		OutputFile:    fs.String("output", "output.mp4", "Output file name for recording"),
		FFMPEGPath:    fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Codec:         fs.String("codec", "h264", "Video codec: h264 or hevc"),
		HardwareAccel: fs.Bool("hwaccel", false, "Use the platform hardware encoder"),
		SceneFile:     fs.String("scene", "", "Scene JSON file (defaults to the paint demo)"),
		SeedImage:     fs.String("seed", "", "Seed image for every pipeline (PNG or JPEG)"),
		BrushRadius:   fs.Float64("radius", 100, "Brush radius of the paint demo in pixels"),
		RegenDuration: fs.Float64("regen", 1, "Seconds for paint demo strokes to fade, 0 to keep them"),
		Snapshot:      fs.String("snapshot", "", "PNG file for the last recorded frame (record) or the S key (window)"),
	}
}

// Parse registers the flags on fs, parses args and validates the result.
func Parse(fs *flag.FlagSet, args []string) (*Options, error) {
	o := Register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Options) Validate() error {
	switch *o.Mode {
	case "window", "record":
	default:
		return fmt.Errorf("%w: mode %q", ErrInvalidOption, *o.Mode)
	}
	switch *o.Device {
	case "gl", "egl", "software":
	default:
		return fmt.Errorf("%w: device %q", ErrInvalidOption, *o.Device)
	}
	if *o.Mode == "window" && *o.Device != "gl" {
		return fmt.Errorf("%w: window mode needs the gl device", ErrInvalidOption)
	}
	if *o.Width <= 0 || *o.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidOption, *o.Width, *o.Height)
	}
	switch *o.Codec {
	case "h264", "hevc":
	default:
		return fmt.Errorf("%w: codec %q", ErrInvalidOption, *o.Codec)
	}
	if *o.Mode == "record" {
		if *o.FPS <= 0 || *o.Duration <= 0 {
			return fmt.Errorf("%w: %v seconds at %d fps", ErrInvalidOption, *o.Duration, *o.FPS)
		}
	}
	if *o.BrushRadius < 0 || *o.RegenDuration < 0 {
		return fmt.Errorf("%w: negative brush radius or regen duration", ErrInvalidOption)
	}
	return nil
}

// Frames is the number of frames a recording produces.
func (o *Options) Frames() int {
	return int(*o.Duration * float64(*o.FPS))
}
