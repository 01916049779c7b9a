package encoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"runtime"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	ErrClosed        = errors.New("recorder closed")
	ErrFrameSize     = errors.New("frame size does not match the recorder")
	errFFmpegExited  = errors.New("ffmpeg exited")
	errInvalidConfig = errors.New("invalid recorder options")
)

const frameQueue = 3

// Options configures a Recorder.
type Options struct {
	Width      int
	Height     int
	FPS        int
	OutputFile string
	// FFMPEGPath overrides the ffmpeg executable found in PATH.
	FFMPEGPath string
	// Codec is "h264" (default) or "hevc".
	Codec string
	// HardwareAccel selects the platform hardware encoder when available.
	HardwareAccel bool
}

// Frame is one packed RGBA frame, top row first.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Recorder pipes raw RGBA frames into an ffmpeg process. Frames are queued on
// a channel and written by a consumer goroutine.
type Recorder struct {
	opts   Options
	frames chan *Frame
	done   chan error
	closed bool
	err    error
}

// NewRecorder starts ffmpeg and the consumer goroutine.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 || opts.OutputFile == "" {
		return nil, fmt.Errorf("%w: %dx%d at %d fps to %q", errInvalidConfig, opts.Width, opts.Height, opts.FPS, opts.OutputFile)
	}
	r := &Recorder{
		opts:   opts,
		frames: make(chan *Frame, frameQueue),
		done:   make(chan error, 1),
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := getArgs(opts)
	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(opts.OutputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if opts.FFMPEGPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFMPEGPath)
	}

	errc := make(chan error, 1)
	go func() {
		err := ffmpegCmd.Run()
		// Unblock the writer if ffmpeg stops reading early.
		pipeReader.CloseWithError(errFFmpegExited)
		errc <- err
	}()
	go r.run(pipeWriter, errc)

	log.Printf("Recording %dx%d at %d fps to %s", opts.Width, opts.Height, opts.FPS, opts.OutputFile)
	return r, nil
}

// run is the consumer. It writes queued frames to ffmpeg's stdin, closes the
// pipe once the queue is closed and reports ffmpeg's exit status.
func (r *Recorder) run(pipeWriter *io.PipeWriter, errc <-chan error) {
	var writeErr error
	for frame := range r.frames {
		if writeErr != nil {
			continue
		}
		if _, err := pipeWriter.Write(frame.Pixels); err != nil {
			writeErr = fmt.Errorf("failed to write frame %d to ffmpeg: %w", frame.PTS, err)
		}
	}
	pipeWriter.Close()
	ffmpegErr := <-errc
	if ffmpegErr != nil {
		r.done <- fmt.Errorf("ffmpeg: %w", ffmpegErr)
		return
	}
	r.done <- writeErr
}

// WriteFrame queues img, which must match the recorder size.
func (r *Recorder) WriteFrame(img *image.RGBA, pts int64) error {
	if r.closed {
		return ErrClosed
	}
	pixels, err := packFrame(img, r.opts.Width, r.opts.Height)
	if err != nil {
		return err
	}
	r.frames <- &Frame{Pixels: pixels, PTS: pts}
	return nil
}

// Close flushes the queue, waits for ffmpeg and returns its exit error.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	close(r.frames)
	r.err = <-r.done
	return r.err
}

// packFrame copies img into a tightly packed buffer.
func packFrame(img *image.RGBA, width, height int) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), width, height)
	}
	rowSize := width * 4
	pixels := make([]byte, rowSize*height)
	for y := 0; y < height; y++ {
		offset := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pixels[y*rowSize:], img.Pix[offset:offset+rowSize])
	}
	return pixels, nil
}

func getArgs(opts Options) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"r":       opts.FPS,
	}

	outputArgs = ffmpeg.KwArgs{
		"c:v":     videoEncoder(opts.Codec, opts.HardwareAccel, runtime.GOOS),
		"pix_fmt": "yuv420p",
		"b:v":     "25M",
	}
	if opts.Codec == "hevc" && strings.HasSuffix(opts.OutputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// videoEncoder picks the platform hardware encoder when requested and the
// software encoder otherwise.
func videoEncoder(codec string, hardware bool, goos string) string {
	hevc := codec == "hevc"
	if hardware {
		switch goos {
		case "linux", "windows":
			if hevc {
				return "hevc_nvenc"
			}
			return "h264_nvenc"
		case "darwin":
			if hevc {
				return "hevc_videotoolbox"
			}
			return "h264_videotoolbox"
		}
	}
	if hevc {
		return "libx265"
	}
	return "libx264"
}
