package openapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("openapi.json"))
	assert.Equal(t, FormatYAML, FormatFor("api/openapi.YAML"))
	assert.Equal(t, FormatYAML, FormatFor("openapi.yml"))
	assert.Equal(t, FormatJSON, FormatFor("openapi"))
}

func TestDocument_Encode(t *testing.T) {
	doc := validDocument()

	compact, err := doc.Encode(FormatJSON, "")
	require.NoError(t, err)
	assert.NotContains(t, string(compact[:len(compact)-1]), "\n")
	assert.Equal(t, byte('\n'), compact[len(compact)-1])
	assert.JSONEq(t, `{
		"openapi": "3.0.3",
		"info": {"title": "Test API", "version": "1.0.0"},
		"paths": {"/users/{id}": {"get": {
			"parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
			"responses": {"default": {"description": "Success"}}
		}}}
	}`, string(compact))

	indented, err := doc.Encode(FormatJSON, "  ")
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"info\": {")

	yamlOut, err := doc.Encode(FormatYAML, "")
	require.NoError(t, err)
	assert.Contains(t, string(yamlOut), "openapi: 3.0.3")
	assert.Contains(t, string(yamlOut), "title: Test API")
}

func TestMarshalJSON_SortedKeys(t *testing.T) {
	data, err := MarshalJSON(map[string]int{"b": 2, "a": 1, "c": 3}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1,\"b\":2,\"c\":3}\n", string(data))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "openapi.json")

	require.NoError(t, WriteFile(path, []byte("one")))
	require.NoError(t, WriteFile(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}
