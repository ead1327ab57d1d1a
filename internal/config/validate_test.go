package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := Config{Info: InfoConfig{Title: "API", Version: "1.0.0"}}
	cfg.ApplyDefaults(PackageJSON{})
	return cfg
}

func TestValidateDetailed_Valid(t *testing.T) {
	cfg := validConfig()
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid(), result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateDetailed_MissingInfo(t *testing.T) {
	cfg := validConfig()
	cfg.Info = InfoConfig{}
	result := cfg.ValidateDetailed()
	assert.Len(t, result.Errors, 2)
}

func TestValidateDetailed_WeirdIncludePattern(t *testing.T) {
	cfg := validConfig()
	cfg.Files = []string{"src/controllers"}
	result := cfg.ValidateDetailed()
	assert.True(t, result.IsValid())
	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "src/controllers/**/*.ts")
}

func TestValidateDetailed_UnusualOutputExtension(t *testing.T) {
	cfg := validConfig()
	cfg.OutputFile = "openapi.txt"
	result := cfg.ValidateDetailed()
	assert.Len(t, result.Warnings, 1)
}

func TestValidateDetailed_Security(t *testing.T) {
	cfg := validConfig()
	cfg.SecuritySchemes = map[string]SecuritySchemeConfig{
		"key":    {Type: "apiKey"},
		"bearer": {Type: "http", Scheme: "bearer"},
		"weird":  {Type: "magic"},
	}
	cfg.SecurityTemplates = map[string]map[string][]string{
		"admin": {"bearer": {"write"}, "oauth": nil},
	}
	result := cfg.ValidateDetailed()
	assert.Len(t, result.Errors, 3, "apiKey without name, invalid type, missing default template")
	assert.Equal(t, []string{`securityTemplates["admin"]: scheme "oauth" is not defined in securitySchemes`}, result.Warnings)
}
