package travel

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
)

const dateLayout = "2006-01-02"

const (
	datePattern       = `^\d{4}-\d{2}-\d{2}$`
	hotelClassPattern = `^\s*[1-5]\s*(,\s*[1-5]\s*)*$`
)

var dateRe = regexp.MustCompile(datePattern)

// Hotel sort orders accepted by SerpAPI: relevance is the default when
// sort_by is omitted.
const (
	SortLowestPrice   = 3
	SortHighestRating = 8
	SortMostReviewed  = 13
)

// enumNumbers restricts a numeric property to the given values.
func enumNumbers(values ...int) mcp.PropertyOption {
	return func(schema map[string]any) {
		enum := make([]any, len(values))
		for i, v := range values {
			enum[i] = v
		}
		schema["enum"] = enum
	}
}

// integer marks a number property as a JSON Schema integer.
func integer() mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["type"] = "integer"
	}
}

func readOnlyAnnotations(title string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithTitleAnnotation(title),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

// argSchema validates normalized tool arguments against a tool's input
// schema.
type argSchema struct {
	schema *gojsonschema.Schema
}

func compileArgSchema(tool mcp.Tool) (*argSchema, error) {
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", tool.Name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", tool.Name, err)
	}
	return &argSchema{schema: schema}, nil
}

func mustCompileArgSchema(tool mcp.Tool) *argSchema {
	s, err := compileArgSchema(tool)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate returns one message per schema violation, sorted for stable output.
func (s *argSchema) Validate(args map[string]any) []string {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	sort.Strings(problems)
	return problems
}

// argReader normalizes raw MCP arguments. Problems are collected rather than
// returned so that a caller sees every bad argument at once.
type argReader struct {
	args     map[string]any
	problems []string
}

func newArgReader(args map[string]any) *argReader {
	if args == nil {
		args = map[string]any{}
	}
	return &argReader{args: args}
}

func (r *argReader) fail(format string, a ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, a...))
}

// String reads a trimmed string. Absent and null values return "".
func (r *argReader) String(name string) string {
	v, ok := r.args[name]
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		r.fail("%s: must be a string", name)
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail("%s: must be a string", name)
		return ""
	}
	return strings.TrimSpace(s)
}

// Int reads an integer, truncating fractional numbers. Absent and null values
// return def.
func (r *argReader) Int(name string, def int) int {
	v, ok := r.args[name]
	if !ok || v == nil {
		return def
	}
	return r.toInt(name, v, def)
}

// IntOrDefault is like Int but also treats zero, false and "" as unset.
func (r *argReader) IntOrDefault(name string, def int) int {
	v, ok := r.args[name]
	if !ok || isFalsy(v) {
		return def
	}
	return r.toInt(name, v, def)
}

// StringOrDefault is like String but also treats zero, false and "" as unset.
func (r *argReader) StringOrDefault(name string, def string) string {
	v, ok := r.args[name]
	if !ok || isFalsy(v) {
		return def
	}
	if s := r.String(name); s != "" {
		return s
	}
	return def
}

func (r *argReader) toInt(name string, v any, def int) int {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		r.fail("%s: must be an integer", name)
		return def
	}
	return int(f)
}

// Date reads a YYYY-MM-DD string and checks that it is a real calendar
// date. Malformed strings are left to the schema pattern.
func (r *argReader) Date(name string) (string, time.Time) {
	s := r.String(name)
	if s == "" || !dateRe.MatchString(s) {
		return s, time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		r.fail("%s: %q is not a valid calendar date", name, s)
		return s, time.Time{}
	}
	return s, t
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}

// invalidArguments formats validation problems for an MCP error result.
func invalidArguments(tool string, problems []string) *mcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid arguments for %s:", tool)
	for _, p := range problems {
		b.WriteString("\n- ")
		b.WriteString(p)
	}
	return mcp.NewToolResultError(b.String())
}
