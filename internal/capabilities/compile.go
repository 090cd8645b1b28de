package capabilities

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

//go:embed profiles/*.cue
var builtinProfiles embed.FS

// CompileError reports a profile that does not satisfy the schema.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	list := errors.Errors(err)
	if len(list) == 0 {
		return err
	}

	first := list[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	var pos token.Pos
	if positions := errors.Positions(first); len(positions) > 0 {
		pos = positions[0]
	}
	return &CompileError{
		Field:   field,
		Message: first.Error(),
		Pos:     pos,
	}
}

// CompileDocument compiles a CUE profile against the embedded schema.
// The source must define a top-level "profile" struct.
func CompileDocument(filename string, src []byte) (Document, error) {
	var doc Document

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return doc, fmt.Errorf("capability schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return doc, formatCUEError(err)
	}

	profile := v.LookupPath(cue.ParsePath("profile"))
	if !profile.Exists() {
		return doc, &CompileError{
			Field:   "profile",
			Message: "profile is required",
			Pos:     v.Pos(),
		}
	}

	unified := schema.LookupPath(cue.ParsePath("#Profile")).Unify(profile)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return doc, formatCUEError(err)
	}
	if err := unified.Decode(&doc); err != nil {
		return doc, formatCUEError(err)
	}
	return doc, nil
}

// Compile compiles a CUE profile into a capability snapshot.
func Compile(filename string, src []byte) (DataSourceCapabilities, error) {
	doc, err := CompileDocument(filename, src)
	if err != nil {
		return DataSourceCapabilities{}, err
	}
	caps, err := FromDocument(doc)
	if err != nil {
		return DataSourceCapabilities{}, &CompileError{Field: "profile", Message: err.Error()}
	}
	return caps, nil
}

var (
	builtinMu    sync.Mutex
	builtinCache = map[string]DataSourceCapabilities{}
)

// Builtin returns the embedded profile of a bundled backend ("sqlite",
// "memory"). Results are cached; capability values are immutable.
func Builtin(name string) (DataSourceCapabilities, error) {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	if c, ok := builtinCache[name]; ok {
		return c, nil
	}
	filename := "profiles/" + name + ".cue"
	src, err := builtinProfiles.ReadFile(filename)
	if err != nil {
		return DataSourceCapabilities{}, fmt.Errorf("no builtin capability profile %q", name)
	}
	c, err := Compile(filename, src)
	if err != nil {
		return DataSourceCapabilities{}, err
	}
	builtinCache[name] = c
	return c, nil
}

// BuiltinNames lists the embedded profiles.
func BuiltinNames() []string {
	entries, err := builtinProfiles.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".cue"))
	}
	sort.Strings(names)
	return names
}
