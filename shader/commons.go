package shader

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshaderpass/graphics"
)

const remapGLSL = `
float remap(float value, float min1, float max1, float min2, float max2) {
    return min2 + (value - min1) * (max2 - min2) / (max1 - min1);
}
`

const distanceToSegmentGLSL = `
float distanceToSegment(vec2 p, vec2 a, vec2 b, float errorMargin) {
    vec2 u = p - b;
    vec2 v = a - b;

    float distToA = distance(p, a);
    float distToB = distance(p, b);

    // a and b coincide: no projection.
    float lengthV = length(v);
    if (lengthV == 0.0) {
        return distToA;
    }

    vec2 proj = b + (dot(u, v) / (lengthV * lengthV)) * v;
    float dist = distance(p, proj);

    bool isOnSegment = distToA + distToB <= distance(a, b) + errorMargin;
    if (isOnSegment) {
        return dist;
    }
    return min(distToA, distToB);
}
`

// Commons is the shared function library injected at the commons slot.
func Commons() string {
	return remapGLSL + distanceToSegmentGLSL
}

func importCommons(body string) string {
	return strings.Replace(body, SlotCommons, Commons(), 1)
}

// Remap linearly maps value from [min1,max1] to [min2,max2].
func Remap(value, min1, max1, min2, max2 float32) float32 {
	return min2 + (value-min1)*(max2-min2)/(max1-min1)
}

// DistanceToSegment returns the distance from p to segment ab, falling back
// to the nearest endpoint when p's projection is off the segment by more
// than errorMargin.
func DistanceToSegment(p, a, b mgl32.Vec2, errorMargin float32) float32 {
	u := p.Sub(b)
	v := a.Sub(b)
	distToA := p.Sub(a).Len()
	distToB := p.Sub(b).Len()

	lengthV := v.Len()
	if lengthV == 0 {
		return distToA
	}
	proj := b.Add(v.Mul(u.Dot(v) / (lengthV * lengthV)))
	dist := p.Sub(proj).Len()

	if distToA+distToB <= a.Sub(b).Len()+errorMargin {
		return dist
	}
	return float32(math.Min(float64(distToA), float64(distToB)))
}

// SampleTexture reads tex at uv on the CPU. Textures without a CPU path
// sample as transparent black.
func SampleTexture(tex graphics.Texture, uv mgl32.Vec2) mgl32.Vec4 {
	if s, ok := tex.(graphics.Sampler); ok {
		return s.Sample(uv)
	}
	return mgl32.Vec4{}
}

func mix(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func clampf(v, lo, hi float32) float32 {
	return float32(math.Max(float64(lo), math.Min(float64(hi), float64(v))))
}
