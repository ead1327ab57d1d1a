package buildcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePath(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"/project/openapi.json", "/project/.tsoapi-cache"},
		{"/project/dist/api.yaml", "/project/dist/.tsoapi-cache"},
		{"openapi.json", ".tsoapi-cache"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CachePath(tt.output), tt.output)
	}
}

func TestHashConfig(t *testing.T) {
	type settings struct {
		Title  string            `json:"title"`
		Indent string            `json:"indent"`
		Paths  map[string]string `json:"paths"`
	}
	hash := func(s settings, roots ...string) string {
		t.Helper()
		h, err := HashConfig(s, roots)
		require.NoError(t, err)
		return h
	}
	base := settings{Title: "Users", Indent: "  ", Paths: map[string]string{"@app/*": "src/*", "@lib/*": "lib/*"}}
	roots := []string{"src/a.ts", "src/b.ts"}

	want := hash(base, roots...)
	assert.Len(t, want, 64)
	assert.Equal(t, want, hash(base, "src/b.ts", "src/a.ts", "src/a.ts"), "root order and duplicates don't matter")
	assert.Equal(t, want, hash(settings{Title: "Users", Indent: "  ", Paths: map[string]string{"@lib/*": "lib/*", "@app/*": "src/*"}}, roots...))

	indented := base
	indented.Indent = "    "
	assert.NotEqual(t, want, hash(indented, roots...), "indent override")
	retitled := base
	retitled.Title = "Accounts"
	assert.NotEqual(t, want, hash(retitled, roots...), "defaulted title")
	assert.NotEqual(t, want, hash(base, "src/a.ts"), "fewer roots")

	_, err := HashConfig(func() {}, nil)
	assert.Error(t, err)
}

func TestHashInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ts")
	b := filepath.Join(dir, "b.ts")
	require.NoError(t, os.WriteFile(a, []byte("export class A {}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("export class B {}"), 0o644))

	base := HashInputs([]string{a, b})
	assert.Equal(t, base, HashInputs([]string{b, a, b}), "order and duplicates don't matter")
	assert.NotEqual(t, base, HashInputs([]string{a}))

	require.NoError(t, os.WriteFile(b, []byte("export class B { x: string }"), 0o644))
	assert.NotEqual(t, base, HashInputs([]string{a, b}))

	changed := HashInputs([]string{a, b})
	require.NoError(t, os.Remove(b))
	assert.NotEqual(t, changed, HashInputs([]string{a, b}))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FileName)

	original := New("1.0.0", "cfg", []string{"/a/b.ts", "/a/a.ts"}, []string{"/a/openapi.json"})
	assert.Equal(t, []string{"/a/a.ts", "/a/b.ts"}, original.Inputs)
	require.NoError(t, Save(path, original))

	loaded := Load(path)
	require.NotNil(t, loaded)
	assert.Equal(t, original, loaded)

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestLoad_Miss(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, Load(filepath.Join(dir, "missing")))

	corrupt := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	assert.Nil(t, Load(corrupt))
}

func TestIsValid(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "openapi.json")
	root := filepath.Join(dir, "users.controller.ts")
	dep := filepath.Join(dir, "user.dto.ts")
	require.NoError(t, os.WriteFile(output, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(root, []byte("export class UsersController {}"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte("export class User {}"), 0o644))

	valid := func() *Cache { return New("1.0.0", "cfg", []string{root, dep}, []string{output}) }
	roots := []string{root}

	assert.True(t, valid().IsValid("1.0.0", "cfg", roots))

	var nilCache *Cache
	assert.False(t, nilCache.IsValid("1.0.0", "cfg", roots))

	old := valid()
	old.V = SchemaVersion + 1
	assert.False(t, old.IsValid("1.0.0", "cfg", roots))

	assert.False(t, valid().IsValid("1.0.1", "cfg", roots), "tool upgrade")
	assert.False(t, valid().IsValid("1.0.0", "other", roots), "config changed")
	assert.False(t, valid().IsValid("1.0.0", "cfg", []string{root, filepath.Join(dir, "new.ts")}), "new root file")

	c := valid()
	require.NoError(t, os.WriteFile(dep, []byte("export class User { id: number }"), 0o644))
	assert.False(t, c.IsValid("1.0.0", "cfg", roots), "imported file changed")

	require.NoError(t, os.Remove(output))
	assert.False(t, valid().IsValid("1.0.0", "cfg", roots), "output deleted")
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, New("v", "", nil, nil)))
	Delete(path)
	assert.Nil(t, Load(path))
	Delete(path)
}
