package scene

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/canvas"
	"github.com/richinsley/goshaderpass/renderer"
	"github.com/richinsley/goshaderpass/shader"
	"github.com/richinsley/goshaderpass/softdevice"
)

const sceneJSON = `{
  "planes": [{
    "fullSize": true,
    "material": {
      "fragment": {"shader": "texture"},
      "pipeline": {
        "keepResultAcrossFrames": true,
        "seedColor": "#ff0000",
        "stages": [
          {"shader": "color", "uniforms": {"color": [0, 1, 0]}},
          {"shader": "drawable", "inputKey": "baseTexture", "scale": 0.5,
           "uniforms": {"radius": 12, "regenDuration": 2}}
        ]
      }
    }
  }, {
    "width": 10, "height": 20, "position": [1, 2, 0],
    "material": {"fragment": {"shader": "uv"}}
  }]
}`

func TestParseAndBuild(t *testing.T) {
	s, err := Parse([]byte(sceneJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	planes, err := Build(s, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(planes) != 2 {
		t.Fatalf("planes = %d", len(planes))
	}

	p := planes[0].Material().Pipeline()
	if p == nil {
		t.Fatal("first plane has no pipeline")
	}
	if !p.Feedback() {
		t.Error("feedback not enabled")
	}
	if !planes[0].FullSize() {
		t.Error("first plane not full size")
	}

	second := planes[1]
	if w, h := second.Size(); w != 10 || h != 20 {
		t.Errorf("second plane = %vx%v", w, h)
	}
	if pos := second.Mesh().Position; pos != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("position = %v", pos)
	}
	if second.Material().Pipeline() != nil {
		t.Error("second plane has a pipeline")
	}
}

func TestBuildAppliesOverridesAndSeed(t *testing.T) {
	s, err := Parse([]byte(sceneJSON))
	if err != nil {
		t.Fatal(err)
	}
	planes, err := Build(s, BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	p := planes[0].Material().Pipeline()
	dev := softdevice.New(8, 8)
	if err := p.Init(dev, 8, 8); err != nil {
		t.Fatalf("Init: %v", err)
	}
	stages := p.Stages()
	if len(stages) != 2 {
		t.Fatalf("stages = %d", len(stages))
	}
	if r, _ := stages[1].Material().Float("radius"); r != 12 {
		t.Errorf("radius = %v", r)
	}
	if c, _ := stages[0].Material().Vec3("color"); c != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("color = %v", c)
	}
	if stages[1].InputKey() != "baseTexture" || stages[1].Scale() != 0.5 {
		t.Errorf("stage 1 = %q x%v", stages[1].InputKey(), stages[1].Scale())
	}
	seed, ok := p.Seed().(interface{ Size() (int, int) })
	if !ok {
		t.Fatalf("seed = %T", p.Seed())
	}
	if w, h := seed.Size(); w != 8 || h != 8 {
		t.Errorf("seed = %dx%d", w, h)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		scene *Scene
		want  error
	}{
		{
			name:  "empty",
			scene: &Scene{},
			want:  ErrEmptyScene,
		},
		{
			name: "unknown shader",
			scene: &Scene{Planes: []Plane{{Material: Material{
				Fragment: &ShaderRef{Shader: "sparkle"},
			}}}},
			want: shader.ErrUnknownShader,
		},
		{
			name: "bad override",
			scene: &Scene{Planes: []Plane{{Material: Material{
				Fragment: &ShaderRef{Shader: "color", Uniforms: map[string]any{"color": true}},
			}}}},
			want: shader.ErrTypeMismatch,
		},
		{
			name: "fragment without input key",
			scene: &Scene{Planes: []Plane{{Material: Material{
				Fragment: &ShaderRef{Shader: "uv"},
				Pipeline: &Pipeline{Stages: []Stage{{ShaderRef: ShaderRef{Shader: "texture"}}}},
			}}}},
			want: renderer.ErrMissingInputKey,
		},
		{
			name: "no stages",
			scene: &Scene{Planes: []Plane{{Material: Material{
				Fragment: &ShaderRef{Shader: "texture"},
				Pipeline: &Pipeline{},
			}}}},
			want: renderer.ErrNoStages,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.scene, BuildOptions{}); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseRejectsEmptyScene(t *testing.T) {
	if _, err := Parse([]byte(`{"planes": []}`)); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("err = %v", err)
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestLoadResolvesSeedImage(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "seed.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data := `{"planes": [{"fullSize": true, "material": {
		"fragment": {"shader": "texture"},
		"pipeline": {"seedImage": "seed.png", "stages": [{"shader": "texture"}]}}}]}`
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	planes, err := Build(s, BuildOptions{BaseDir: dir})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dev := softdevice.New(1, 1)
	c := canvas.New(canvas.Options{Device: dev, Width: 4, Height: 4})
	if err := c.Add(planes[0]); err != nil {
		t.Fatal(err)
	}
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	out, err := dev.ReadPixels(nil)
	if err != nil {
		t.Fatal(err)
	}
	if px := out.RGBAAt(1, 1); px.R != 0 || px.G != 0 || px.B != 255 {
		t.Errorf("pixel = %v, want blue seed", px)
	}

	if _, err := Build(&Scene{Planes: []Plane{{Material: Material{
		Fragment: &ShaderRef{Shader: "texture"},
		Pipeline: &Pipeline{SeedImage: "missing.png", Stages: []Stage{{ShaderRef: ShaderRef{Shader: "texture"}}}},
	}}}}, BuildOptions{BaseDir: dir}); err == nil {
		t.Error("missing seed image accepted")
	}
}

type pointer struct {
	pos     mgl32.Vec2
	pressed bool
}

func (p *pointer) PointerPosition() (mgl32.Vec2, bool) { return p.pos, true }
func (p *pointer) PointerPressed() bool                { return p.pressed }

func TestDefaultScenePaintsStroke(t *testing.T) {
	planes, err := Build(DefaultScene(100, 1), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dev := softdevice.New(1, 1)
	in := &pointer{pos: mgl32.Vec2{10, 10}}
	clock := 0.0
	c := canvas.New(canvas.Options{Device: dev, Width: 20, Height: 20, Input: in, Time: func() float64 { return clock }})
	if err := c.Add(planes[0]); err != nil {
		t.Fatal(err)
	}

	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	out, _ := dev.ReadPixels(nil)
	if px := out.RGBAAt(10, 10); px.R != 255 {
		t.Fatalf("idle pixel = %v, want white", px)
	}

	in.pressed = true
	clock = 0.016
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	out, _ = dev.ReadPixels(nil)
	if px := out.RGBAAt(10, 10); px.R > 64 {
		t.Errorf("stroke pixel = %v, want dark", px)
	}

	// The stroke survives the next frame through the feedback seed.
	in.pressed = false
	clock = 0.032
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	out, _ = dev.ReadPixels(nil)
	if px := out.RGBAAt(10, 10); px.R > 80 {
		t.Errorf("pixel after release = %v, want still dark", px)
	}
}
