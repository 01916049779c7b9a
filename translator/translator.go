package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

const (
	Vertex   = "vertex"
	Fragment = "fragment"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

// GetTranslator returns the process-wide translator, creating it on first
// use.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, initErr
}

// Result is a translated shader stage.
type Result struct {
	Code string
	// Mapped maps declared names to the names used in Code.
	Mapped map[string]string
}

// MappedName returns the translated name of a declared variable.
func (r *Result) MappedName(name string) (string, bool) {
	n, ok := r.Mapped[name]
	return n, ok
}

// Translate converts WebGL2 GLSL source for the given stage to desktop GLSL
// 4.10, or to ESSL when gles is set.
func Translate(source, stage string, gles bool) (*Result, error) {
	t, err := GetTranslator()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", err)
	}
	outputFormat := gst.OutputFormatGLSL410
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := t.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	r := &Result{Code: out.Code, Mapped: make(map[string]string, len(out.Variables))}
	for name, v := range out.Variables {
		r.Mapped[name] = v.MappedName
	}
	return r, nil
}
