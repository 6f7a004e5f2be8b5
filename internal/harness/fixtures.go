package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/splitq/internal/catalog"
	"github.com/roach88/splitq/internal/ir"
)

// LoadFixtures reads a standalone fixtures file: the fixtures block of a
// scenario at top level.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	var f Fixtures
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return Fixtures{}, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return f, nil
}

// FixtureRows expands the fixtures of a scenario into storage rows.
// Generated rows come first, explicit rows follow in file order.
func FixtureRows(storage *catalog.Storage, f Fixtures) ([]ir.IRObject, error) {
	var rows []ir.IRObject
	if f.Generate != nil {
		generated, err := generateRows(storage, *f.Generate)
		if err != nil {
			return nil, err
		}
		rows = append(rows, generated...)
	}

	for i, raw := range f.Rows {
		v, err := ir.FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("fixtures.rows[%d]: %w", i, err)
		}
		rows = append(rows, v.(ir.IRObject))
	}
	return rows, nil
}

func generateRows(storage *catalog.Storage, g Generate) ([]ir.IRObject, error) {
	start, err := ir.ParseDateTime(g.Start)
	if err != nil {
		return nil, fmt.Errorf("fixtures.generate.start: %w", err)
	}
	projects := g.Projects
	if projects == 0 {
		projects = 1
	}

	values := make(map[string]ir.IRArray, len(g.Values))
	for col, raw := range g.Values {
		if _, ok := storage.Column(col); !ok {
			return nil, fmt.Errorf("fixtures.generate.values: unknown column %q", col)
		}
		v, err := ir.FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("fixtures.generate.values[%s]: %w", col, err)
		}
		values[col] = v.(ir.IRArray)
	}

	sc := storage.Split()
	rows := make([]ir.IRObject, g.Count)
	for i := range rows {
		row := make(ir.IRObject)
		for _, c := range storage.Schema() {
			switch cycle, ok := values[c.Name]; {
			case ok:
				row[c.Name] = cycle[i%len(cycle)]
			case c.Name == storage.TimeColumn():
				row[c.Name] = ir.NewDateTime(start.Time().Add(time.Duration(i) * g.Interval))
			case c.Name == sc.IDColumn:
				row[c.Name] = ir.IRString(fmt.Sprintf("%032x", i+1))
			case c.Name == sc.ProjectColumn:
				row[c.Name] = ir.IRInt(i%projects + 1)
			default:
				row[c.Name] = defaultValue(c, i, start)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// defaultValue fills a column nobody asked for. Nullable columns stay NULL.
func defaultValue(c catalog.Column, i int, start ir.IRDateTime) ir.IRValue {
	switch {
	case c.Nullable:
		return ir.IRNull{}
	case c.IsInteger():
		return ir.IRInt(0)
	case c.Type == "Float64":
		return ir.IRFloat(0)
	case c.IsArray():
		return ir.IRArray{}
	case c.IsDateTime():
		return start
	default:
		return ir.IRString(fmt.Sprintf("%s-%d", c.Name, i))
	}
}
