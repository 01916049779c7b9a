package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

const testSkeleton = "head\n" + SlotUniforms + "\n" + SlotCommons + "\n" + SlotMain + "\ntail\n"

func TestBodyFillsSlots(t *testing.T) {
	p, err := NewProgram(Definition{
		Name:     "T",
		Skeleton: testSkeleton,
		Main:     "void main() {}",
		Uniforms: []Declaration{
			{Name: "zeta", Type: Float, Default: 1},
			{Name: "alpha", Type: Vec3, Default: mgl32.Vec3{}},
			{Name: "map", Type: Sampler2D},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewProgram: %v", err)
	}
	body := p.Body()
	for _, slot := range []string{SlotUniforms, SlotCommons, SlotMain} {
		if strings.Contains(body, slot) {
			t.Errorf("slot %q left in body", slot)
		}
	}
	want := "uniform vec3 alpha;\nuniform sampler2D map;\nuniform float zeta;"
	if !strings.Contains(body, want) {
		t.Errorf("uniform block not sorted:\n%s", body)
	}
	if !strings.Contains(body, "float remap(") || !strings.Contains(body, "float distanceToSegment(") {
		t.Error("commons not injected")
	}
	if !strings.HasPrefix(body, "head\n") || !strings.HasSuffix(body, "tail\n") {
		t.Error("skeleton text outside the slots changed")
	}
	if body != p.Body() {
		t.Error("Body is not deterministic")
	}
}

func TestNewProgramMalformedTemplate(t *testing.T) {
	tests := map[string]string{
		"missing main":   SlotUniforms + SlotCommons,
		"duplicate main": SlotUniforms + SlotCommons + SlotMain + SlotMain,
		"no slots":       "void main() {}",
	}
	for name, skeleton := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewProgram(Definition{Name: "T", Skeleton: skeleton}, nil)
			if !errors.Is(err, ErrMalformedTemplate) {
				t.Fatalf("err = %v, want ErrMalformedTemplate", err)
			}
		})
	}
}

func TestNewProgramRejectsBadDeclarations(t *testing.T) {
	tests := map[string][]Declaration{
		"invalid name":  {{Name: "1x", Type: Float}},
		"reserved name": {{Name: "gl_Foo", Type: Float}},
		"duplicate":     {{Name: "a", Type: Float}, {Name: "a", Type: Float}},
		"bad default":   {{Name: "a", Type: Vec2, Default: "nope"}},
	}
	for name, decls := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewProgram(Definition{Name: "T", Skeleton: testSkeleton, Uniforms: decls}, nil); err == nil {
				t.Fatal("NewProgram succeeded")
			}
		})
	}
}

func TestOverrides(t *testing.T) {
	p, err := NewColorFragment(map[string]any{"color": "#ff0000", "unknown": 3})
	if err != nil {
		t.Fatalf("NewColorFragment: %v", err)
	}
	u := p.Uniforms()
	if got := u.Vec3("color"); got != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("color = %v", got)
	}
	if u.Has("unknown") {
		t.Error("unknown override declared a uniform")
	}

	// The override is applied once: later writes stick.
	if err := u.Set("color", mgl32.Vec3{0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	if got := p.Uniforms().Vec3("color"); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("override reapplied: color = %v", got)
	}

	if _, err := NewColorFragment(map[string]any{"color": true}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("bad override type: err = %v", err)
	}
}

func TestCoerce(t *testing.T) {
	tex := graphics.White(1, 1)
	tests := []struct {
		typ  Type
		in   any
		want any
	}{
		{Float, 2, float32(2)},
		{Float, 0.5, float32(0.5)},
		{Vec2, []any{1.0, 2.0}, mgl32.Vec2{1, 2}},
		{Vec2, [2]float32{3, 4}, mgl32.Vec2{3, 4}},
		{Vec3, 0x00ff00, mgl32.Vec3{0, 1, 0}},
		{Vec3, "#0000ff", mgl32.Vec3{0, 0, 1}},
		{Vec3, []float64{1, 0, 1}, mgl32.Vec3{1, 0, 1}},
		{Bool, true, true},
		{Sampler2D, nil, nil},
	}
	for _, tt := range tests {
		got, err := Coerce(tt.typ, tt.in)
		if err != nil {
			t.Errorf("Coerce(%s, %v): %v", tt.typ, tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Coerce(%s, %v) = %v, want %v", tt.typ, tt.in, got, tt.want)
		}
	}
	if got, err := Coerce(Sampler2D, tex); err != nil || got != graphics.Texture(tex) {
		t.Errorf("Coerce(sampler2D, tex) = %v, %v", got, err)
	}
	for _, bad := range []struct {
		typ Type
		in  any
	}{
		{Float, "1"},
		{Vec2, []any{1.0}},
		{Vec3, "#12"},
		{Bool, 1},
		{Sampler2D, 3},
	} {
		if _, err := Coerce(bad.typ, bad.in); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("Coerce(%s, %v): err = %v", bad.typ, bad.in, err)
		}
	}
}

func TestUpdateBindings(t *testing.T) {
	p, _ := NewTextureFragment(nil)
	table := p.Uniforms().Clone()
	tex := graphics.White(2, 2)
	err := p.Update(table, nil, 1, Bindings{"map": tex, "undeclared": 1})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if table.Texture("map") != graphics.Texture(tex) {
		t.Error("binding not applied")
	}
	if err := p.Update(table, nil, 1, Bindings{"map": 5}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("bad binding: err = %v", err)
	}
}

func TestGradientUpdate(t *testing.T) {
	p, _ := NewGradientFragment(nil)
	table := p.Uniforms().Clone()
	if err := p.Update(table, &graphics.FrameInfo{Width: 200, Height: 100}, 0.5, nil); err != nil {
		t.Fatal(err)
	}
	if got := table.Vec2("screenSize"); got != (mgl32.Vec2{100, 50}) {
		t.Errorf("screenSize = %v", got)
	}
}

func TestPulseUpdate(t *testing.T) {
	p, _ := NewPulseFragment(nil)
	table := p.Uniforms().Clone()
	if err := p.Update(table, &graphics.FrameInfo{ElapsedTime: 2.5}, 1, nil); err != nil {
		t.Fatal(err)
	}
	if got := table.Float("time"); got != 2.5 {
		t.Errorf("time = %v", got)
	}
}

func TestDrawableUpdate(t *testing.T) {
	d, err := NewDrawableFragment(map[string]any{"radius": 10})
	if err != nil {
		t.Fatal(err)
	}
	table := d.Uniforms().Clone()
	step := func(f graphics.FrameInfo) {
		t.Helper()
		if err := d.Update(table, &f, 0.5, nil); err != nil {
			t.Fatal(err)
		}
	}

	step(graphics.FrameInfo{Pointer: mgl32.Vec2{1, 1}, HasPointer: true, DeltaTime: 0.1})
	if table.Bool("isDrawing") {
		t.Error("drawing without a press")
	}
	if table.Float("scale") != 0.5 || table.Float("deltaTime") != 0.1 {
		t.Errorf("scale=%v deltaTime=%v", table.Float("scale"), table.Float("deltaTime"))
	}

	// A press starts the stroke at the current pointer.
	step(graphics.FrameInfo{Pointer: mgl32.Vec2{10, 10}, HasPointer: true, PointerPressed: true})
	if !table.Bool("isDrawing") {
		t.Fatal("isDrawing not set on press")
	}
	if got := table.Vec2("prevMousePosition"); got != (mgl32.Vec2{10, 10}) {
		t.Errorf("prev on press = %v", got)
	}

	step(graphics.FrameInfo{Pointer: mgl32.Vec2{20, 15}, HasPointer: true, PointerPressed: true})
	if got := table.Vec2("prevMousePosition"); got != (mgl32.Vec2{10, 10}) {
		t.Errorf("prev while drawing = %v", got)
	}
	if got := table.Vec2("mousePosition"); got != (mgl32.Vec2{20, 15}) {
		t.Errorf("mouse = %v", got)
	}
}

func TestDistanceToSegment(t *testing.T) {
	a, b := mgl32.Vec2{0, 0}, mgl32.Vec2{10, 0}
	tests := []struct {
		p    mgl32.Vec2
		want float32
	}{
		{mgl32.Vec2{5, 3}, 3},
		{mgl32.Vec2{-4, 3}, 5},
		{mgl32.Vec2{13, 4}, 5},
	}
	for _, tt := range tests {
		if got := DistanceToSegment(tt.p, a, b, 2); !mgl32.FloatEqualThreshold(got, tt.want, 1e-5) {
			t.Errorf("DistanceToSegment(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := DistanceToSegment(mgl32.Vec2{3, 4}, a, a, 0); got != 5 {
		t.Errorf("degenerate segment = %v, want 5", got)
	}
}

func TestRemap(t *testing.T) {
	if got := Remap(0, -1, 1, 0, 1); got != 0.5 {
		t.Errorf("Remap = %v", got)
	}
	if got := Remap(5, 0, 10, 100, 200); got != 150 {
		t.Errorf("Remap = %v", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, tag := range Tags() {
		s, err := New(tag, nil)
		if err != nil {
			t.Errorf("New(%q): %v", tag, err)
			continue
		}
		if s == nil || s.Body() == "" {
			t.Errorf("New(%q) returned an empty shader", tag)
		}
	}
	if _, err := New("nope", nil); !errors.Is(err, ErrUnknownShader) {
		t.Errorf("unknown tag: err = %v", err)
	}
	s, err := New("drawable", map[string]any{"radius": 100.0})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Drawable); !ok {
		t.Errorf("drawable tag built %T", s)
	}
	if got := s.Uniforms().Float("radius"); got != 100 {
		t.Errorf("radius = %v", got)
	}
}

func TestKernelsMatchVariants(t *testing.T) {
	in := FragmentInput{FragCoord: mgl32.Vec2{0.5, 0.5}, Varyings: Varyings{UV: mgl32.Vec2{0.25, 0.75}}}
	uv := NewUVFragment()
	if got := uv.Kernel().Fragment(in, uv.Uniforms()); got != (mgl32.Vec4{0.25, 0.75, 1, 1}) {
		t.Errorf("uv = %v", got)
	}
	base := NewBaseFragment()
	if got := base.Kernel().Fragment(in, base.Uniforms()); got != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("base = %v", got)
	}
}
