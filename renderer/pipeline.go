package renderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

// DefaultInputKey is the uniform a stage or material binds its input to
// unless configured otherwise.
const DefaultInputKey = "map"

var (
	ErrNotInitialized  = errors.New("pipeline not initialized")
	ErrNoStages        = errors.New("pipeline has no stages")
	ErrMissingInputKey = errors.New("shader does not declare the input key uniform")
	ErrNoShader        = errors.New("stage has no shader")
)

// StageDescriptor describes one stage of a pipeline.
type StageDescriptor struct {
	Shader shader.Shader
	// InputKey is the uniform the previous stage's output is bound to.
	// Defaults to "map".
	InputKey string
	// Scale is the render target size relative to the canvas. Defaults to 1.
	Scale float32
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Stages []StageDescriptor
	// KeepResultAcrossFrames feeds each frame's output back as the next
	// frame's seed.
	KeepResultAcrossFrames bool
	// SeedColor is the colour of the initial seed. Defaults to white.
	SeedColor *mgl32.Vec3
	// SeedImage, when set, is resampled to the canvas size and used as the
	// initial seed instead of SeedColor.
	SeedImage image.Image
}

// Pipeline renders an ordered list of stages, each sampling the previous
// stage's output. The first stage samples the seed texture.
type Pipeline struct {
	descriptors []StageDescriptor
	feedback    bool
	seedColor   mgl32.Vec3
	seedImage   image.Image

	device Device
	stages []*Stage
	width  int
	height int

	seed graphics.Texture
	// ownedSeed is the seed the pipeline allocated, released once it is
	// replaced.
	ownedSeed graphics.Texture
}

// NewPipeline validates opts and returns an uninitialised pipeline.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if len(opts.Stages) == 0 {
		return nil, ErrNoStages
	}
	p := &Pipeline{
		descriptors: make([]StageDescriptor, len(opts.Stages)),
		feedback:    opts.KeepResultAcrossFrames,
		seedColor:   mgl32.Vec3{1, 1, 1},
		seedImage:   opts.SeedImage,
	}
	if opts.SeedColor != nil {
		p.seedColor = *opts.SeedColor
	}
	for i, d := range opts.Stages {
		if d.Shader == nil {
			return nil, fmt.Errorf("stage %d: %w", i, ErrNoShader)
		}
		if d.InputKey == "" {
			d.InputKey = DefaultInputKey
		}
		if d.Scale == 0 {
			d.Scale = 1
		}
		if d.Scale < 0 {
			return nil, fmt.Errorf("stage %d: invalid scale %v", i, d.Scale)
		}
		if !d.Shader.Uniforms().Has(d.InputKey) {
			return nil, fmt.Errorf("stage %d: %w: %s does not declare %q", i, ErrMissingInputKey, d.Shader.Name(), d.InputKey)
		}
		p.descriptors[i] = d
	}
	return p, nil
}

// Init allocates every stage and the seed for a width x height canvas.
// Calling Init again releases the previous resources first.
func (p *Pipeline) Init(device Device, width, height int) error {
	if p.stages != nil {
		p.release()
	}
	p.device = device
	p.width, p.height = width, height

	last := len(p.descriptors) - 1
	stages := make([]*Stage, 0, len(p.descriptors))
	for i, d := range p.descriptors {
		s, err := newStage(device, d, width, height, p.feedback && i == last)
		if err != nil {
			for _, built := range stages {
				built.release()
			}
			return fmt.Errorf("stage %d: %w", i, err)
		}
		stages = append(stages, s)
	}
	p.stages = stages
	p.resetSeed()

	graphics.Logger().Info("pipeline initialized",
		"stages", len(stages), "width", width, "height", height, "feedback", p.feedback)
	return nil
}

// Render runs every stage in order and returns the last stage's output.
// With feedback on, the output becomes the next frame's seed.
func (p *Pipeline) Render(frame *graphics.FrameInfo) (graphics.Texture, error) {
	if p.stages == nil {
		return nil, ErrNotInitialized
	}
	input := p.seed
	for i, s := range p.stages {
		if err := s.Render(frame, input); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		input = s.Output()
	}
	if p.feedback {
		p.seed = input
		p.releaseOwnedSeed()
	}
	return input, nil
}

// Resize rebuilds every stage target, camera and quad for the new canvas
// size and resets the seed.
func (p *Pipeline) Resize(width, height int) error {
	if p.stages == nil {
		return ErrNotInitialized
	}
	for i, s := range p.stages {
		if err := s.Resize(width, height); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}
	p.width, p.height = width, height
	p.resetSeed()
	graphics.Logger().Debug("pipeline resized", "width", width, "height", height)
	return nil
}

// Output returns the last stage's most recent render.
func (p *Pipeline) Output() (graphics.Texture, error) {
	if p.stages == nil {
		return nil, ErrNotInitialized
	}
	return p.stages[len(p.stages)-1].Output(), nil
}

// Seed returns the texture the first stage samples next frame.
func (p *Pipeline) Seed() graphics.Texture { return p.seed }

// Stages returns the stages in render order. It is nil before Init.
func (p *Pipeline) Stages() []*Stage { return p.stages }

func (p *Pipeline) Feedback() bool { return p.feedback }

// Size returns the canvas size the pipeline was last initialised or resized
// to.
func (p *Pipeline) Size() (int, int) { return p.width, p.height }

// Destroy releases every stage and the seed. The pipeline must be
// initialised again before use.
func (p *Pipeline) Destroy() {
	if p.stages == nil {
		return
	}
	p.release()
}

func (p *Pipeline) release() {
	for _, s := range p.stages {
		s.release()
	}
	p.stages = nil
	p.releaseOwnedSeed()
	p.seed = nil
}

func (p *Pipeline) resetSeed() {
	p.releaseOwnedSeed()
	var seed *graphics.DataTexture
	if p.seedImage != nil {
		seed = graphics.FromImage(p.seedImage, p.width, p.height)
	} else {
		seed = graphics.Colored(p.seedColor, p.width, p.height)
	}
	p.seed = seed
	p.ownedSeed = seed
}

func (p *Pipeline) releaseOwnedSeed() {
	if p.ownedSeed == nil {
		return
	}
	if p.device != nil {
		p.device.Release(p.ownedSeed)
	}
	p.ownedSeed = nil
}
