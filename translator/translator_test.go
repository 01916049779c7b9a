package translator_test

import (
	"strings"
	"testing"

	"github.com/richinsley/goshaderpass/shader"
	"github.com/richinsley/goshaderpass/translator"
)

func TestTranslateRegisteredShaders(t *testing.T) {
	for _, tag := range shader.Tags() {
		t.Run(tag, func(t *testing.T) {
			s, err := shader.New(tag, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			stage := translator.Fragment
			if strings.HasSuffix(tag, "-vertex") {
				stage = translator.Vertex
			}
			for _, gles := range []bool{false, true} {
				r, err := translator.Translate(s.Body(), stage, gles)
				if err != nil {
					t.Fatalf("Translate(gles=%v): %v", gles, err)
				}
				if r.Code == "" {
					t.Fatalf("empty output (gles=%v)", gles)
				}
				m, _ := s.(interface{ Main() string })
				for _, name := range s.Uniforms().Names() {
					if _, ok := r.MappedName(name); !ok && m != nil && strings.Contains(m.Main(), name) {
						t.Errorf("uniform %q used in main but not reported (gles=%v)", name, gles)
					}
				}
			}
		})
	}
}

func TestTranslateVertexAttributes(t *testing.T) {
	r, err := translator.Translate(shader.NewBaseVertex().Body(), translator.Vertex, false)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	for _, name := range []string{"position", "modelViewMatrix", "projectionMatrix"} {
		if _, ok := r.MappedName(name); !ok {
			t.Errorf("%q not reported", name)
		}
	}
}

func TestTranslateRejectsInvalidSource(t *testing.T) {
	if _, err := translator.Translate("#version 300 es\nvoid main() { undefined(); }\n", translator.Fragment, false); err == nil {
		t.Error("invalid source accepted")
	}
}
