package tables

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed default.cue
var defaultCUE []byte

// DefaultName is the filename reported for positions in the embedded tables.
const DefaultName = "default.cue"

// Default compiles the embedded tables.
func Default() (*runid.Codec, error) {
	return Compile(DefaultName, defaultCUE)
}

// Load compiles the tables in path, or the embedded defaults when path is
// empty.
func Load(path string) (*runid.Codec, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables: %w", err)
	}
	return Compile(path, data)
}

// Compile unifies src with the schema and builds a validated codec.
func Compile(filename string, src []byte) (*runid.Codec, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	layout, err := compileLayout(v.LookupPath(cue.ParsePath("layout")))
	if err != nil {
		return nil, err
	}

	var tables []*runid.Table
	for _, dim := range runid.BucketedDimensions {
		tv := v.LookupPath(cue.ParsePath("tables." + dim.String()))
		if !tv.Exists() {
			continue
		}
		table, err := compileTable(dim, tv)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	codec, err := runid.NewCodec(tables, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return codec, nil
}
