package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed specs/*.cue
var builtinSpecs embed.FS

// ErrStorageNotFound is wrapped by Get for unknown storage names.
var ErrStorageNotFound = errors.New("storage not found")

// Catalog is a set of compiled storages keyed by name.
type Catalog struct {
	storages map[string]*Storage
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))

	entries, err := fs.ReadDir(builtinSpecs, "specs")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := builtinSpecs.ReadFile("specs/" + entry.Name())
		if err != nil {
			return nil, err
		}
		value = value.Unify(ctx.CompileBytes(data, cue.Filename(entry.Name())))
	}
	return Compile(value)
})

// Default returns the built-in catalog: events, transactions and functions.
// The catalog is compiled once and shared; callers must not modify it.
func Default() (*Catalog, error) {
	return defaultCatalog()
}

// LoadDir loads and compiles the CUE storage specs in dir. The specs are
// checked against the built-in schema.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("specs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(cueFiles) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	return Compile(schema.Unify(value))
}

// Compile builds a catalog from a CUE value holding a top-level storage
// struct.
func Compile(value cue.Value) (*Catalog, error) {
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	storagesVal := value.LookupPath(cue.ParsePath("storage"))
	if !storagesVal.Exists() {
		return nil, &CompileError{Field: "storage", Message: "no storage specs found"}
	}

	iter, err := storagesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	c := &Catalog{storages: make(map[string]*Storage)}
	for iter.Next() {
		s, err := CompileStorage(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("storage.%s: %w", iter.Selector().String(), err)
		}
		c.storages[s.Name()] = s
	}
	if len(c.storages) == 0 {
		return nil, &CompileError{Field: "storage", Message: "no storage specs found"}
	}
	return c, nil
}

// Get returns the storage called name.
func (c *Catalog) Get(name string) (*Storage, error) {
	s, ok := c.storages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrStorageNotFound, name, c.Names())
	}
	return s, nil
}

// Names returns the storage names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.storages))
	for name := range c.storages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a catalog with the storages of both; other wins on name
// clashes. Neither input is modified.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{storages: make(map[string]*Storage, len(c.storages)+len(other.storages))}
	for name, s := range c.storages {
		out.storages[name] = s
	}
	for name, s := range other.storages {
		out.storages[name] = s
	}
	return out
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
