package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
	"github.com/richinsley/goshaderpass/shader"
)

func textureShader(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewTextureFragment(nil)
	if err != nil {
		t.Fatalf("NewTextureFragment: %v", err)
	}
	return s
}

func newTestPipeline(t *testing.T, opts PipelineOptions) *Pipeline {
	t.Helper()
	p, err := NewPipeline(opts)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestNewPipelineValidation(t *testing.T) {
	tests := []struct {
		name string
		opts PipelineOptions
		want error
	}{
		{"no stages", PipelineOptions{}, ErrNoStages},
		{"nil shader", PipelineOptions{Stages: []StageDescriptor{{}}}, ErrNoShader},
		{"undeclared default key", PipelineOptions{Stages: []StageDescriptor{{Shader: shader.NewUVFragment()}}}, ErrMissingInputKey},
		{"undeclared custom key", PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t), InputKey: "baseTexture"}}}, ErrMissingInputKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewPipeline(PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t), Scale: -1}}}); err == nil {
		t.Fatal("negative scale accepted")
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t)}}})
	d := p.descriptors[0]
	if d.InputKey != "map" || d.Scale != 1 {
		t.Fatalf("defaults = (%q, %v), want (map, 1)", d.InputKey, d.Scale)
	}
}

func TestPipelineNotInitialized(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t)}}})
	if _, err := p.Render(&graphics.FrameInfo{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Render: err = %v", err)
	}
	if _, err := p.Output(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Output: err = %v", err)
	}
	if err := p.Resize(10, 10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Resize: err = %v", err)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{Stages: []StageDescriptor{
		{Shader: textureShader(t)},
		{Shader: textureShader(t), Scale: 0.5},
		{Shader: textureShader(t)},
	}})
	dev := newFakeDevice()
	if err := p.Init(dev, 100, 80); err != nil {
		t.Fatalf("Init: %v", err)
	}
	seed := p.Seed()
	out, err := p.Render(&graphics.FrameInfo{Width: 100, Height: 80})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	stages := p.Stages()
	if len(dev.draws) != len(stages) {
		t.Fatalf("draws = %d, want %d", len(dev.draws), len(stages))
	}
	wantInput := seed
	for i, s := range stages {
		d := dev.draws[i]
		if d.target != s.Output() {
			t.Errorf("draw %d went to %v, want stage %d target", i, d.target, i)
		}
		if d.mesh != s.Quad() {
			t.Errorf("draw %d used the wrong mesh", i)
		}
		if got := d.samplers["map"]; got != wantInput {
			t.Errorf("stage %d input = %v, want %v", i, got, wantInput)
		}
		wantInput = s.Output()
	}
	if out != stages[2].Output() {
		t.Errorf("Render returned %v, want last stage output", out)
	}
	if got, _ := p.Output(); got != out {
		t.Errorf("Output = %v, want %v", got, out)
	}
	if p.Seed() != seed {
		t.Error("seed changed without feedback")
	}
	if w, h := stages[1].Output().Size(); w != 50 || h != 40 {
		t.Errorf("scaled target = %dx%d, want 50x40", w, h)
	}
}

func TestPipelineFeedback(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{
		Stages:                 []StageDescriptor{{Shader: textureShader(t)}},
		KeepResultAcrossFrames: true,
	})
	dev := newFakeDevice()
	if err := p.Init(dev, 8, 8); err != nil {
		t.Fatalf("Init: %v", err)
	}
	seed := p.Seed()

	out1, err := p.Render(nil)
	if err != nil {
		t.Fatalf("Render 1: %v", err)
	}
	if p.Seed() != out1 {
		t.Fatal("seed was not moved to the frame output")
	}
	if !dev.wasReleased(seed) {
		t.Error("initial seed not released after the swap")
	}

	out2, err := p.Render(nil)
	if err != nil {
		t.Fatalf("Render 2: %v", err)
	}
	if got := dev.draws[1].samplers["map"]; got != out1 {
		t.Errorf("frame 2 input = %v, want frame 1 output", got)
	}
	if dev.draws[1].target == out1 {
		t.Error("frame 2 wrote into the texture it reads")
	}
	if out2 == out1 {
		t.Error("frame 2 output aliases frame 1 output")
	}
	if p.Seed() != out2 {
		t.Error("seed not moved to frame 2 output")
	}

	out3, _ := p.Render(nil)
	if out3 != out1 {
		t.Error("double buffer did not alternate")
	}
}

func TestPipelineResize(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{
		Stages:                 []StageDescriptor{{Shader: textureShader(t), Scale: 0.5}},
		KeepResultAcrossFrames: true,
	})
	dev := newFakeDevice()
	if err := p.Init(dev, 100, 80); err != nil {
		t.Fatalf("Init: %v", err)
	}
	out, _ := p.Render(nil)
	old := p.Stages()[0].Targets()

	if err := p.Resize(200, 100); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	s := p.Stages()[0]
	for _, target := range old {
		if !target.Destroyed() {
			t.Error("old target not released")
		}
	}
	for _, target := range s.Targets() {
		if w, h := target.Size(); w != 100 || h != 50 {
			t.Errorf("target = %dx%d, want 100x50", w, h)
		}
	}
	if c := s.Camera(); c.Left != -100 || c.Right != 100 || c.Top != 50 || c.Bottom != -50 {
		t.Errorf("camera = %+v", *c)
	}
	if s.Quad().Scale != (mgl32.Vec3{200, 100, 1}) {
		t.Errorf("quad scale = %v", s.Quad().Scale)
	}
	if p.Seed() == out {
		t.Error("seed not reset on resize")
	}
	if w, h := p.Seed().Size(); w != 200 || h != 100 {
		t.Errorf("seed = %dx%d, want 200x100", w, h)
	}

	// Resizing to the same size again gives the same observable state.
	if err := p.Resize(200, 100); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	for _, target := range p.Stages()[0].Targets() {
		if w, h := target.Size(); w != 100 || h != 50 {
			t.Errorf("target after second resize = %dx%d", w, h)
		}
	}
}

func TestPipelineResizeAllocationFailure(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t)}}})
	dev := newFakeDevice()
	if err := p.Init(dev, 10, 10); err != nil {
		t.Fatalf("Init: %v", err)
	}
	before := p.Stages()[0].Targets()[0]
	dev.failAlloc = true
	if err := p.Resize(20, 20); err == nil {
		t.Fatal("Resize succeeded with failing allocations")
	}
	if got := p.Stages()[0].Targets()[0]; got != before || before.Destroyed() {
		t.Error("failed resize replaced or released the current target")
	}
}

func TestPipelineSeedColor(t *testing.T) {
	red := mgl32.Vec3{1, 0, 0}
	p := newTestPipeline(t, PipelineOptions{
		Stages:    []StageDescriptor{{Shader: textureShader(t)}},
		SeedColor: &red,
	})
	if err := p.Init(newFakeDevice(), 4, 4); err != nil {
		t.Fatalf("Init: %v", err)
	}
	seed, ok := p.Seed().(*graphics.DataTexture)
	if !ok {
		t.Fatalf("seed is %T", p.Seed())
	}
	if got := seed.Sample(mgl32.Vec2{0.5, 0.5}); !got.ApproxEqual(mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("seed colour = %v", got)
	}
}

func TestPipelineDestroy(t *testing.T) {
	p := newTestPipeline(t, PipelineOptions{Stages: []StageDescriptor{{Shader: textureShader(t)}}})
	dev := newFakeDevice()
	if err := p.Init(dev, 4, 4); err != nil {
		t.Fatalf("Init: %v", err)
	}
	target := p.Stages()[0].Targets()[0]
	p.Destroy()
	if !target.Destroyed() {
		t.Error("target not released")
	}
	if _, err := p.Output(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Output after Destroy: err = %v", err)
	}
}
