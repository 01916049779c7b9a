// Package scene loads JSON scene descriptions and builds canvas planes with
// their materials and pipelines.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	// Blank imports for image decoders so image.Decode can handle them.
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/canvas"
	"github.com/richinsley/goshaderpass/renderer"
	"github.com/richinsley/goshaderpass/shader"
)

var ErrEmptyScene = errors.New("scene has no planes")

// Scene is the JSON form of a scene.
type Scene struct {
	Planes []Plane `json:"planes"`
}

// Plane describes a canvas plane. Width and Height are ignored when FullSize
// is set.
type Plane struct {
	FullSize bool       `json:"fullSize"`
	Width    float32    `json:"width"`
	Height   float32    `json:"height"`
	Position [3]float32 `json:"position"`
	Material Material   `json:"material"`
}

// Material describes the shaders of a plane. Missing shaders fall back to the
// renderer defaults.
type Material struct {
	Vertex   *ShaderRef `json:"vertex,omitempty"`
	Fragment *ShaderRef `json:"fragment,omitempty"`
	InputKey string     `json:"inputKey,omitempty"`
	Pipeline *Pipeline  `json:"pipeline,omitempty"`
}

// ShaderRef names a registered shader variant and its uniform overrides.
// Overrides accept numbers, [x,y], [x,y,z], booleans and "#rrggbb" colours.
type ShaderRef struct {
	Shader   string         `json:"shader"`
	Uniforms map[string]any `json:"uniforms,omitempty"`
}

// Pipeline describes a multi-stage pipeline.
type Pipeline struct {
	Stages                 []Stage `json:"stages"`
	KeepResultAcrossFrames bool    `json:"keepResultAcrossFrames"`
	SeedColor              any     `json:"seedColor,omitempty"`
	// SeedImage is a PNG or JPEG path, relative to the scene file.
	SeedImage string `json:"seedImage,omitempty"`
}

// Stage is one pipeline stage.
type Stage struct {
	ShaderRef
	InputKey string  `json:"inputKey,omitempty"`
	Scale    float32 `json:"scale,omitempty"`
}

// BuildOptions adjusts how a scene is built.
type BuildOptions struct {
	// BaseDir resolves relative seed image paths.
	BaseDir string
	// SeedImage replaces the seed of every pipeline when set.
	SeedImage image.Image
}

// Parse decodes a JSON scene.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if len(s.Planes) == 0 {
		return nil, ErrEmptyScene
	}
	return &s, nil
}

// Load reads and parses the scene file at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	return Parse(data)
}

// DefaultScene is the paint demo: a full-size plane showing a pipeline that
// copies the seed, then paints the pointer stroke at a tenth of the canvas
// resolution and keeps the result across frames.
func DefaultScene(brushRadius, regenDuration float32) *Scene {
	return &Scene{
		Planes: []Plane{{
			FullSize: true,
			Material: Material{
				Fragment: &ShaderRef{Shader: "texture"},
				Pipeline: &Pipeline{
					Stages: []Stage{
						{ShaderRef: ShaderRef{Shader: "texture"}, Scale: 1},
						{
							ShaderRef: ShaderRef{
								Shader: "drawable",
								Uniforms: map[string]any{
									"drawColor":     "#000000",
									"radius":        brushRadius,
									"regenDuration": regenDuration,
								},
							},
							InputKey: "baseTexture",
							Scale:    0.1,
						},
					},
					KeepResultAcrossFrames: true,
				},
			},
		}},
	}
}

// Build creates the planes of s. Each plane gets its own shader instances.
func Build(s *Scene, opts BuildOptions) ([]*canvas.Plane, error) {
	if len(s.Planes) == 0 {
		return nil, ErrEmptyScene
	}
	planes := make([]*canvas.Plane, 0, len(s.Planes))
	for i, pd := range s.Planes {
		m, err := buildMaterial(pd.Material, opts)
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		plane, err := canvas.NewPlane(canvas.PlaneOptions{
			Material: m,
			Width:    pd.Width,
			Height:   pd.Height,
			FullSize: pd.FullSize,
			Position: mgl32.Vec3(pd.Position),
		})
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		planes = append(planes, plane)
	}
	return planes, nil
}

func buildMaterial(md Material, opts BuildOptions) (*renderer.Material, error) {
	mo := renderer.MaterialOptions{PipelineInputKey: md.InputKey}
	var err error
	if md.Vertex != nil {
		if mo.VertexShader, err = newShader(*md.Vertex); err != nil {
			return nil, fmt.Errorf("vertex: %w", err)
		}
	}
	if md.Fragment != nil {
		if mo.FragmentShader, err = newShader(*md.Fragment); err != nil {
			return nil, fmt.Errorf("fragment: %w", err)
		}
	}
	if md.Pipeline != nil {
		if mo.Pipeline, err = buildPipeline(*md.Pipeline, opts); err != nil {
			return nil, err
		}
	}
	return renderer.NewMaterial(mo)
}

func buildPipeline(pd Pipeline, opts BuildOptions) (*renderer.PipelineOptions, error) {
	po := &renderer.PipelineOptions{
		Stages:                 make([]renderer.StageDescriptor, 0, len(pd.Stages)),
		KeepResultAcrossFrames: pd.KeepResultAcrossFrames,
		SeedImage:              opts.SeedImage,
	}
	for i, sd := range pd.Stages {
		s, err := newShader(sd.ShaderRef)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		po.Stages = append(po.Stages, renderer.StageDescriptor{Shader: s, InputKey: sd.InputKey, Scale: sd.Scale})
	}
	if pd.SeedColor != nil {
		v, err := shader.Coerce(shader.Vec3, pd.SeedColor)
		if err != nil {
			return nil, fmt.Errorf("seed colour: %w", err)
		}
		c := v.(mgl32.Vec3)
		po.SeedColor = &c
	}
	if po.SeedImage == nil && pd.SeedImage != "" {
		path := pd.SeedImage
		if !filepath.IsAbs(path) && opts.BaseDir != "" {
			path = filepath.Join(opts.BaseDir, path)
		}
		img, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		po.SeedImage = img
	}
	return po, nil
}

func newShader(ref ShaderRef) (shader.Shader, error) {
	return shader.New(ref.Shader, ref.Uniforms)
}

// LoadImage decodes a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
