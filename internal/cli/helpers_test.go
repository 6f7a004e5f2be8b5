package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// wideDoc selects enough columns for the column split.
const wideDoc = `storage: events
selected_columns: [event_id, project_id, timestamp, level, logger, message]
conditions:
  - [timestamp, ">=", "2019-09-19T10:00:00"]
  - [timestamp, "<", "2019-09-19T11:00:00"]
  - [project_id, IN, [1, 2, 3]]
orderby: [-timestamp]
limit: 3
`

const sixEvents = `generate:
  count: 6
  start: "2019-09-19T10:00:00"
  interval: 3m
  projects: 3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
