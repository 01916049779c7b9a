package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// scriptedPointer drives the pointer in record mode. It traces a Lissajous
// curve around the canvas centre and holds the button for the first half of
// every four-second cycle.
type scriptedPointer struct {
	width, height float64
	pos           mgl32.Vec2
	pressed       bool
}

func newScriptedPointer(width, height int) *scriptedPointer {
	p := &scriptedPointer{width: float64(width), height: float64(height)}
	p.advance(0)
	return p
}

func (p *scriptedPointer) advance(t float64) {
	x := p.width/2 + p.width/3*math.Sin(t*1.3)
	y := p.height/2 + p.height/3*math.Sin(t*0.9+math.Pi/2)
	p.pos = mgl32.Vec2{float32(x), float32(y)}
	p.pressed = math.Mod(t, 4) < 2
}

func (p *scriptedPointer) PointerPosition() (mgl32.Vec2, bool) { return p.pos, true }
func (p *scriptedPointer) PointerPressed() bool                { return p.pressed }
