package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mrzor/cefcodec/internal/event"
)

// Record is the read side of an event.
type Record interface {
	Get(field string) (any, bool)
}

// Renderer resolves a compiled template against a record.
type Renderer interface {
	Render(rec Record) string
}

// Engine compiles template text into a Renderer.
type Engine interface {
	Compile(text string) (Renderer, error)
}

// ExprEngine compiles templates whose references may be expr expressions.
type ExprEngine struct{}

// Compile implements Engine.
func (ExprEngine) Compile(text string) (Renderer, error) {
	return Compile(text)
}

// Default is the engine used when none is configured.
var Default Engine = ExprEngine{}

var (
	refPattern = regexp.MustCompile(`%\{([^}]*)\}`)
	// plainRef matches references that can only be field names or paths.
	plainRef = regexp.MustCompile(`^[\w@.\-\[\]]+$`)
)

type part struct {
	literal string
	ref     string
	program *vm.Program
}

// Template is a compiled template. It is immutable and safe for concurrent
// use.
type Template struct {
	text  string
	parts []part
}

// Compile parses text and pre-compiles every reference that is a valid
// expression. It fails only when a reference is neither a field name nor a
// valid expression.
func Compile(text string) (*Template, error) {
	t := &Template{text: text}

	last := 0
	for _, loc := range refPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			t.parts = append(t.parts, part{literal: text[last:loc[0]]})
		}
		last = loc[1]

		ref := strings.TrimSpace(text[loc[2]:loc[3]])
		if ref == "" {
			// An empty reference is kept as text.
			t.parts = append(t.parts, part{literal: text[loc[0]:loc[1]]})
			continue
		}
		p := part{ref: ref}
		program, err := expr.Compile(ref, expr.AllowUndefinedVariables())
		switch {
		case err == nil:
			p.program = program
		case !plainRef.MatchString(ref):
			return nil, fmt.Errorf("failed to compile reference %q: %w", ref, err)
		}
		t.parts = append(t.parts, p)
	}
	if last < len(text) {
		t.parts = append(t.parts, part{literal: text[last:]})
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string) *Template {
	t, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the source text.
func (t *Template) String() string {
	return t.text
}

// Static reports whether the template has no references.
func (t *Template) Static() bool {
	for _, p := range t.parts {
		if p.ref != "" {
			return false
		}
	}
	return true
}

// Render implements Renderer.
func (t *Template) Render(rec Record) string {
	if t.Static() {
		return t.text
	}

	var (
		b   strings.Builder
		env map[string]any
	)
	for _, p := range t.parts {
		if p.ref == "" {
			b.WriteString(p.literal)
			continue
		}
		if v, ok := rec.Get(p.ref); ok {
			text, _ := event.FormatValue(v)
			b.WriteString(text)
			continue
		}
		if p.program == nil {
			continue
		}
		if env == nil {
			env = environment(rec)
		}
		out, err := expr.Run(p.program, env)
		if err != nil {
			slog.Debug("template reference failed", "ref", p.ref, "error", err)
			continue
		}
		text, _ := event.FormatValue(out)
		b.WriteString(text)
	}
	return b.String()
}

// environment builds the expression environment for rec. Records that
// cannot expose their fields get an empty environment.
func environment(rec Record) map[string]any {
	if m, ok := rec.(interface{ Map() map[string]any }); ok {
		return m.Map()
	}
	return map[string]any{}
}
