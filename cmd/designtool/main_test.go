package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/van-studio/internal/design"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dir string) int64 {
	t.Helper()
	st := design.State{
		Objects: []design.Object{
			{ID: 7, Type: design.TypeVehicle, ModelID: "sprinter", Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
			{ID: 8, Type: design.TypeFurniture, ModelID: "table", Position: design.Vec3{X: 1.5}, Scale: design.Vec3{X: 1, Y: 1, Z: 1}},
		},
		CameraPosition: design.Vec3{X: 5, Y: 3, Z: 5},
		ShowGrid:       true,
	}
	id, err := design.NewFileStore(dir).Save(context.Background(), "alice", "Weekend", 0, st)
	require.NoError(t, err)
	return id
}

func TestListShowDelete(t *testing.T) {
	dir := t.TempDir()
	id := seed(t, dir)

	out, err := run(t, "list", "--designs", dir, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekend")

	out, err = run(t, "list", "--designs", dir, "--user", "bob")
	require.NoError(t, err)
	assert.NotContains(t, out, "Weekend", "designs are per user")

	out, err = run(t, "show", "1", "--designs", dir, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "sprinter")
	assert.Contains(t, out, "(1.50, 0.00, 0.00)")

	_, err = run(t, "show", "abc", "--designs", dir, "--user", "alice")
	assert.Error(t, err)

	out, err = run(t, "delete", "1", "--designs", dir, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted design 1")
	assert.Equal(t, int64(1), id)

	_, err = run(t, "delete", "1", "--designs", dir, "--user", "alice")
	assert.ErrorIs(t, err, design.ErrNotFound)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir)
	file := filepath.Join(t.TempDir(), "out", "weekend.json")

	_, err := run(t, "export", "1", "-o", file, "--designs", dir, "--user", "alice")
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	st, err := design.Parse(data)
	require.NoError(t, err)
	assert.Len(t, st.Objects, 2)

	out, err := run(t, "import", file, "--name", "Copy", "--designs", dir, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported design 2 (2 objects)")
}

func TestCatalog(t *testing.T) {
	out, err := run(t, "catalog", "--catalog", filepath.Join("..", "..", "catalog.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "sprinter")
	assert.Contains(t, out, "walnut")
	assert.Contains(t, out, "kitchen")

	_, err = run(t, "model", "nope", "--catalog", filepath.Join("..", "..", "catalog.yaml"), "--root", t.TempDir())
	assert.Error(t, err)
}
