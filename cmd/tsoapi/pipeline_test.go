package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/tsgonest/tsoapi/internal/buildcache"
	"github.com/tsgonest/tsoapi/internal/diagnostic"
)

const projectArchive = `
-- package.json --
{"name": "users-service", "version": "1.2.3", "description": "Manages users."}
-- tsoapi.config.json --
{
  "info": {},
  "servers": [{"url": "https://api.example.com"}],
  "securitySchemes": {"bearer": {"type": "http", "scheme": "bearer"}},
  "securityTemplates": {"": {"bearer": []}},
  "indent": 2
}
-- src/users.controller.ts --
import { JsonController, Get, Post, Param, Body, QueryParam, Authorized } from "routing-controllers";
import { CreateUser, User } from "./user.dto";

/** Everything about users. */
@JsonController("/users")
export class UsersController {
    @Get("/:id")
    one(@Param("id") id: number): Promise<User> {}

    @Get("/")
    list(@QueryParam("limit") limit: number = 20): User[] {}

    @Post("/")
    @Authorized()
    create(@Body() body: CreateUser): User {}
}
-- src/user.dto.ts --
export class User {
    id: number;
    /** Display name. */
    name: string;
    email?: string;
}

export class CreateUser {
    name: string;
    email?: string;
}
`

func writeProject(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, f.Data, 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerate_EndToEnd(t *testing.T) {
	dir := writeProject(t, projectArchive)

	_, stderr, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"info\": {", "indent from config")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Equal(t, map[string]any{"title": "users-service", "version": "1.2.3", "description": "Manages users."}, doc["info"])
	assert.Equal(t, []any{map[string]any{"name": "Users", "description": "Everything about users."}}, doc["tags"])

	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/users/{id}")
	assert.Contains(t, paths, "/users/")

	post := paths["/users/"].(map[string]any)["post"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"bearer": []any{}}}, post["security"])
	content := post["requestBody"].(map[string]any)["content"].(map[string]any)
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/CreateUser"}, content["application/json"].(map[string]any)["schema"])

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	assert.Contains(t, schemas, "User")
	assert.Contains(t, schemas, "CreateUser")

	c := buildcache.Load(filepath.Join(dir, buildcache.FileName))
	require.NotNil(t, c)
	assert.Equal(t, version, c.ToolVersion)
	assert.Len(t, c.Inputs, 2, "root file and its import")

	_, stderr, err = execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)
	assert.Contains(t, stderr, "up to date")

	_, stderr, err = execute(t, "--cwd", dir, "generate", "--force")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "up to date")
	assert.Contains(t, stderr, "wrote document")
}

func TestGenerate_DependencyChangeInvalidatesCache(t *testing.T) {
	dir := writeProject(t, projectArchive)

	_, _, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)

	dto := filepath.Join(dir, "src", "user.dto.ts")
	require.NoError(t, os.WriteFile(dto, []byte("export class User { id: number; }\nexport class CreateUser { name: string; }\n"), 0o644))

	_, stderr, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "up to date")
}

func TestGenerate_IndentOverrideInvalidatesCache(t *testing.T) {
	dir := writeProject(t, projectArchive)

	_, _, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)

	_, stderr, err := execute(t, "--cwd", dir, "generate", "--indent", "4")
	require.NoError(t, err, stderr)
	assert.NotContains(t, stderr, "up to date")

	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"info\": {")

	_, stderr, err = execute(t, "--cwd", dir, "generate", "--indent", "4")
	require.NoError(t, err)
	assert.Contains(t, stderr, "up to date")
}

func TestGenerate_PackageJSONChangeInvalidatesCache(t *testing.T) {
	dir := writeProject(t, projectArchive)

	_, _, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)

	pkg := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(pkg, []byte(`{"name": "users-service", "version": "2.0.0"}`), 0o644))

	_, stderr, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err, stderr)
	assert.NotContains(t, stderr, "up to date")

	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	require.NoError(t, err)
	var doc struct {
		Info map[string]any `json:"info"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{"title": "users-service", "version": "2.0.0"}, doc.Info)
}

func TestGenerate_ExplicitFilesInvalidateCache(t *testing.T) {
	dir := writeProject(t, projectArchive+`-- src/orders.controller.ts --
import { JsonController, Get } from "routing-controllers";

@JsonController("/orders")
export class OrdersController {
    @Get("/")
    list(): string[] {}
}
`)

	_, _, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)

	_, stderr, err := execute(t, "--cwd", dir, "generate", "src/users.controller.ts")
	require.NoError(t, err, stderr)
	assert.NotContains(t, stderr, "up to date")

	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "/users/{id}")
	assert.NotContains(t, string(data), "/orders/")

	_, stderr, err = execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "up to date", "back to the configured globs")
}

func TestGenerate_YAMLOutputAndExplicitFiles(t *testing.T) {
	dir := writeProject(t, projectArchive)

	_, stderr, err := execute(t, "--cwd", dir, "generate", "-o", "out/api.yaml", "src/users.controller.ts")
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(filepath.Join(dir, "out", "api.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "openapi: 3.0.3\n")
	assert.Contains(t, string(data), "/users/{id}")
}

func TestGenerate_FatalErrorWritesNothing(t *testing.T) {
	dir := writeProject(t, `
-- tsoapi.config.json --
{"info": {"title": "Broken", "version": "0.0.1"}}
-- src/twice.ts --
import { Controller, JsonController } from "routing-controllers";

@JsonController("/a")
@Controller("/b")
export class TwiceController {}
`)

	_, _, err := execute(t, "--cwd", dir, "generate")
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostic.ErrDuplicateDeclaration)

	_, statErr := os.Stat(filepath.Join(dir, "openapi.json"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, buildcache.FileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_MissingConfig(t *testing.T) {
	_, _, err := execute(t, "--cwd", t.TempDir(), "generate")
	assert.ErrorIs(t, err, diagnostic.ErrMissingConfig)
}

func TestGenerate_NoSourcesMatched(t *testing.T) {
	dir := writeProject(t, `
-- tsoapi.config.json --
{"info": {"title": "Empty", "version": "0.0.1"}, "files": ["src/**/*.ts"]}
`)
	_, _, err := execute(t, "--cwd", dir, "generate")
	assert.ErrorContains(t, err, "no source files matched")
}

func TestValidateCommand(t *testing.T) {
	dir := writeProject(t, projectArchive)
	_, _, err := execute(t, "--cwd", dir, "generate")
	require.NoError(t, err)

	path := filepath.Join(dir, "openapi.json")
	stdout, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Equal(t, path+": valid\n", stdout)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"openapi": "3.0.3", "info": {"title": "x"}, "paths": {}}`), 0o644))
	_, _, err = execute(t, "validate", bad)
	assert.Error(t, err)
}

func TestDumpCommand(t *testing.T) {
	dir := writeProject(t, projectArchive)

	stdout, _, err := execute(t, "--cwd", dir, "dump")
	require.NoError(t, err)

	var controllers []controllerDump
	require.NoError(t, json.Unmarshal([]byte(stdout), &controllers))
	require.Len(t, controllers, 1)
	c := controllers[0]
	assert.Equal(t, "UsersController", c.Name)
	assert.Equal(t, "/users", c.Route)
	assert.Equal(t, "application/json", c.MediaType)
	require.Len(t, c.Methods, 3)
	assert.Equal(t, []routeDump{{Verb: "get", Path: "/:id"}}, c.Methods[0].Routes)
	assert.Equal(t, "Promise<User>", c.Methods[0].Returns)
	assert.Equal(t, parameterDump{Name: "limit", In: "query", Type: "number", Default: float64(20)}, c.Methods[1].Parameters[0])

	_, err = os.Stat(filepath.Join(dir, "openapi.json"))
	assert.True(t, os.IsNotExist(err), "dump never writes the document")
}
