// Package render implements the label template engine: flat and dotted-path
// {{key}} substitution without control flow.
package render

import (
	"os"
	"regexp"
	"strings"

	"shippinglabel/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+(?:\.\w+)*)\}\}`)

// Renderer loads template documents and substitutes placeholders.
type Renderer struct {
	// ReadFile defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// NewRenderer returns a Renderer reading templates from disk.
func NewRenderer() *Renderer {
	return &Renderer{ReadFile: os.ReadFile}
}

// Render reads the template at templatePath and substitutes data into it.
func (r *Renderer) Render(templatePath string, data Data) (string, error) {
	read := os.ReadFile
	if r != nil && r.ReadFile != nil {
		read = r.ReadFile
	}
	src, err := read(templatePath)
	if err != nil {
		return "", &domain.RenderError{Path: templatePath, Err: err}
	}
	return Substitute(string(src), data), nil
}

// Substitute replaces every resolvable placeholder in src. Unresolved
// placeholders are left verbatim so missing data stays visible in the output.
func Substitute(src string, data Data) string {
	return placeholderPattern.ReplaceAllStringFunc(src, func(match string) string {
		key := match[2 : len(match)-2]
		v, ok := Resolve(data, key)
		if !ok {
			return match
		}
		text, ok := v.Text()
		if !ok {
			return match
		}
		return text
	})
}

// Resolve walks a dotted key through data.
func Resolve(data Data, key string) (Value, bool) {
	segments := strings.Split(key, ".")
	cur, ok := data[segments[0]]
	if !ok {
		return Value{}, false
	}
	for _, seg := range segments[1:] {
		cur, ok = cur.Lookup(seg)
		if !ok {
			return Value{}, false
		}
	}
	if !cur.Defined() {
		return Value{}, false
	}
	return cur, true
}
