package codegen

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fixed output locations, relative to the project root. Paths always use
// forward slashes.
const (
	SpokesDir     = "src/data/spokes"
	IndexPath     = SpokesDir + "/index.ts"
	ERDPath       = "src/data/ERD.md"
	SchemaSQLPath = "src/data/db/schema.sql"
)

// TypesPath is the TypeScript interface file for a spoke.
func TypesPath(spoke string) string { return SpokesDir + "/" + spoke + "/types.ts" }

// SchemaPath is the Zod schema file for a spoke.
func SchemaPath(spoke string) string { return SpokesDir + "/" + spoke + "/schema.ts" }

// File is one generated artifact.
type File struct {
	Path    string
	Content string
}

// Output is the ordered set of generated files. Iteration order is insertion
// order and is part of the generator's contract.
type Output struct {
	files []File
	index map[string]int
}

func newOutput() *Output {
	return &Output{index: make(map[string]int)}
}

func (o *Output) add(path, content string) error {
	if _, dup := o.index[path]; dup {
		return fmt.Errorf("path %s generated twice", path)
	}
	o.index[path] = len(o.files)
	o.files = append(o.files, File{Path: path, Content: content})
	return nil
}

// Files returns the generated files in order. The slice must not be modified.
func (o *Output) Files() []File { return o.files }

// Len is the number of generated files.
func (o *Output) Len() int { return len(o.files) }

// Paths returns the output paths in order.
func (o *Output) Paths() []string {
	paths := make([]string, len(o.files))
	for i, f := range o.files {
		paths[i] = f.Path
	}
	return paths
}

// Lookup returns the content generated for path.
func (o *Output) Lookup(path string) (string, bool) {
	i, ok := o.index[path]
	if !ok {
		return "", false
	}
	return o.files[i].Content, true
}

// Digest is an xxh3 hash over every path and content in order. Two outputs
// with the same digest are byte-identical.
func (o *Output) Digest() string {
	h := xxh3.New()
	for _, f := range o.files {
		_, _ = h.WriteString(f.Path)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(f.Content)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Hash is the xxh3 hash of a single file's content, as used in drift reports.
func Hash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}
