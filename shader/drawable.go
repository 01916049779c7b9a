package shader

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

const drawableMain = `
void main() {
    vec2 scaledPrevMousePosition = prevMousePosition * scale;
    vec2 scaledMousePosition = mousePosition * scale;
    float scaledRadius = radius * scale;

    vec4 pixelColor = texture(baseTexture, vUv);

    float dist = distanceToSegment(gl_FragCoord.xy, scaledMousePosition, scaledPrevMousePosition, scaledRadius);

    if (isDrawing && scaledRadius > 0.0) {
        vec2 mouseDir = scaledMousePosition - scaledPrevMousePosition;
        float maxDistance = length(mouseDir);
        vec2 stepDir = maxDistance > 0.0 ? normalize(mouseDir) * (scaledRadius / 4.0) : vec2(0.0);
        vec2 mouseInterval = scaledPrevMousePosition;
        float stepDistance = 0.0;
        while (stepDistance <= maxDistance) {
            float distInterval = distance(gl_FragCoord.xy, mouseInterval);
            float t = 1.0 - min(distInterval / scaledRadius, 1.0);
            pixelColor = mix(pixelColor, vec4(drawColor.xyz, 1.0), t);
            if (maxDistance == 0.0) {
                break;
            }
            mouseInterval += stepDir;
            stepDistance = distance(scaledPrevMousePosition, mouseInterval);
        }
    }

    if (regenDuration > 0.0 && (!isDrawing || dist > scaledRadius)) {
        pixelColor += deltaTime / regenDuration;
    }

    fragColor = vec4(clamp(pixelColor.xyz, 0.0, 1.0), 1.0);
}
`

func drawableDefinition() Definition {
	return Definition{
		Name:     "DrawableFragmentShader",
		Skeleton: fragmentSkeleton,
		Uniforms: []Declaration{
			{Name: "drawColor", Type: Vec3, Default: graphics.Hex(0x000000)},
			{Name: "radius", Type: Float, Default: 50},
			{Name: "regenDuration", Type: Float, Default: 0},
			{Name: "baseTexture", Type: Sampler2D, Default: defaultWhite()},
			{Name: "scale", Type: Float, Default: 1},
			{Name: "isDrawing", Type: Bool, Default: false},
			{Name: "mousePosition", Type: Vec2, Default: mgl32.Vec2{}},
			{Name: "prevMousePosition", Type: Vec2, Default: mgl32.Vec2{}},
			{Name: "deltaTime", Type: Float, Default: 0},
		},
		Main:   drawableMain,
		Kernel: Kernel{Fragment: drawableFragment},
	}
}

func drawableFragment(in FragmentInput, u Table) mgl32.Vec4 {
	scale := u.Float("scale")
	prev := u.Vec2("prevMousePosition").Mul(scale)
	cur := u.Vec2("mousePosition").Mul(scale)
	radius := u.Float("radius") * scale
	drawing := u.Bool("isDrawing")

	pixel := SampleTexture(u.Texture("baseTexture"), in.UV)
	dist := DistanceToSegment(in.FragCoord, cur, prev, radius)

	if drawing && radius > 0 {
		brush := u.Vec3("drawColor").Vec4(1)
		dir := cur.Sub(prev)
		maxDistance := dir.Len()
		var step mgl32.Vec2
		if maxDistance > 0 {
			step = dir.Normalize().Mul(radius / 4)
		}
		interval := prev
		for stepDistance := float32(0); stepDistance <= maxDistance; {
			t := 1 - min(in.FragCoord.Sub(interval).Len()/radius, 1)
			pixel = mix(pixel, brush, t)
			if maxDistance == 0 {
				break
			}
			interval = interval.Add(step)
			stepDistance = interval.Sub(prev).Len()
		}
	}

	if regen := u.Float("regenDuration"); regen > 0 && (!drawing || dist > radius) {
		add := u.Float("deltaTime") / regen
		pixel = pixel.Add(mgl32.Vec4{add, add, add, add})
	}

	return mgl32.Vec4{clampf(pixel.X(), 0, 1), clampf(pixel.Y(), 0, 1), clampf(pixel.Z(), 0, 1), 1}
}

// Drawable paints a brush stroke into its input texture along the segment
// between the previous and the current pointer positions. With a positive
// regenDuration, pixels outside the brush drift back to white at a rate of
// 1/regenDuration per second.
//
// Drawable keeps pointer state between frames, so an instance must not be
// shared between pipelines.
type Drawable struct {
	*Program
	drawing bool
	prev    mgl32.Vec2
}

// NewDrawableFragment creates a drawable shader. Useful overrides:
// drawColor, radius (canvas pixels) and regenDuration (seconds).
func NewDrawableFragment(overrides map[string]any) (*Drawable, error) {
	p, err := NewProgram(drawableDefinition(), overrides)
	if err != nil {
		return nil, err
	}
	return &Drawable{Program: p}, nil
}

// Update applies bindings, then derives scale, isDrawing, pointer positions
// and deltaTime from the frame.
func (d *Drawable) Update(t Target, frame *graphics.FrameInfo, scale float32, b Bindings) error {
	if err := d.Program.Update(t, frame, scale, b); err != nil {
		return err
	}
	if err := setIfDeclared(t, "scale", scale); err != nil {
		return err
	}
	if frame == nil {
		return nil
	}

	if t.Has("isDrawing") {
		drawing := frame.PointerPressed
		// A new stroke starts at the current pointer.
		if !d.drawing && drawing && frame.HasPointer {
			d.prev = frame.Pointer
		}
		if err := t.Set("isDrawing", drawing); err != nil {
			return err
		}
		d.drawing = drawing
	}

	if d.drawing {
		if err := setIfDeclared(t, "prevMousePosition", d.prev); err != nil {
			return err
		}
	}

	if frame.HasPointer && t.Has("mousePosition") {
		if err := t.Set("mousePosition", frame.Pointer); err != nil {
			return err
		}
		d.prev = frame.Pointer
	}

	return setIfDeclared(t, "deltaTime", frame.DeltaTime)
}
