package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsgonest/tsoapi/internal/analyzer"
	"github.com/tsgonest/tsoapi/internal/buildcache"
	"github.com/tsgonest/tsoapi/internal/compiler"
	"github.com/tsgonest/tsoapi/internal/config"
	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/openapi"
)

// generateResult describes a finished run.
type generateResult struct {
	ConfigPath string
	// Root is the config file's directory; globs and outputFile are
	// relative to it.
	Root       string
	OutputPath string
	// UpToDate is set when the cache allowed skipping generation.
	UpToDate    bool
	Controllers int
	Operations  int
}

// loadConfig resolves, loads and overrides the configuration.
func loadConfig(opts *GenerateOptions, logger *slog.Logger) (*config.Config, string, error) {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = config.Discover(opts.Cwd); err != nil {
			return nil, "", err
		}
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(opts.Cwd, path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	logger.Info("loaded config", "path", path)

	result := cfg.ValidateDetailed()
	for _, w := range result.Warnings {
		logger.Warn("config: " + w)
	}
	if !result.IsValid() {
		return nil, "", diagnostic.Errorf(diagnostic.CategoryConfigInvalid, "invalid config %s: %s", path, strings.Join(result.Errors, "; "))
	}

	if len(opts.Files) > 0 {
		cfg.Files = opts.Files
	}
	if opts.Out != "" {
		cfg.OutputFile = opts.Out
	}
	if opts.Indent != nil {
		cfg.Indent = *opts.Indent
	}
	return cfg, path, nil
}

// documentConfig maps the file configuration onto the assembler's settings.
func documentConfig(cfg *config.Config) openapi.DocumentConfig {
	docCfg := openapi.DocumentConfig{
		Title:             cfg.Info.Title,
		Description:       cfg.Info.Description,
		Version:           cfg.Info.Version,
		SecurityTemplates: cfg.SecurityTemplates,
	}
	for _, s := range cfg.Servers {
		docCfg.Servers = append(docCfg.Servers, openapi.Server{URL: s.URL, Description: s.Description})
	}
	if cfg.SecuritySchemes != nil {
		docCfg.SecuritySchemes = make(map[string]*openapi.SecurityScheme, len(cfg.SecuritySchemes))
		for name, s := range cfg.SecuritySchemes {
			docCfg.SecuritySchemes[name] = &openapi.SecurityScheme{
				Type:             s.Type,
				Description:      s.Description,
				Name:             s.Name,
				In:               s.In,
				Scheme:           s.Scheme,
				BearerFormat:     s.BearerFormat,
				Flows:            s.Flows,
				OpenIDConnectURL: s.OpenIDConnectURL,
			}
		}
	}
	return docCfg
}

// generate runs config → discovery → program → controllers → document →
// compliance → encode → write → cache. Diagnostics are printed to
// opts.Stderr. Nothing is written when an error is returned.
func generate(ctx context.Context, opts *GenerateOptions, logger *slog.Logger, force bool) (*generateResult, error) {
	var t timings
	start := time.Now()
	if opts.Timing {
		defer func() {
			t.total = time.Since(start)
			t.print(opts.Stderr)
		}()
	}

	phase := time.Now()
	cfg, configPath, err := loadConfig(opts, logger)
	if err != nil {
		return nil, err
	}
	res := &generateResult{ConfigPath: configPath, Root: filepath.Dir(configPath)}
	res.OutputPath = cfg.OutputFile
	if !filepath.IsAbs(res.OutputPath) {
		res.OutputPath = filepath.Join(res.Root, res.OutputPath)
	}
	t.config = time.Since(phase)

	phase = time.Now()
	fsys := os.DirFS(res.Root)
	files, err := analyzer.ExpandGlobs(fsys, cfg.Files, cfg.Exclude)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, fmt.Errorf("no source files matched %s", strings.Join(cfg.Files, ", "))
	}
	logger.Debug("discovered sources", "count", len(files))
	t.discovery = time.Since(phase)

	cachePath := buildcache.CachePath(res.OutputPath)
	configHash, err := buildcache.HashConfig(cfg, files)
	if err != nil {
		return res, err
	}
	if !force {
		if c := buildcache.Load(cachePath); c.IsValid(version, configHash, absPaths(res.Root, files)) {
			logger.Info("up to date", "output", res.OutputPath)
			res.UpToDate = true
			return res, nil
		}
	}

	diags := diagnostic.NewCollector(opts.Strict, opts.Quiet)
	defer diags.Print(opts.Stderr)

	phase = time.Now()
	prog, err := compiler.NewProgram(ctx, fsys, files, compiler.ProgramOptions{
		Paths:       cfg.Paths,
		BaseURL:     cfg.BaseURL,
		Diagnostics: diags,
		Logger:      logger,
	})
	if err != nil {
		return res, err
	}
	defer prog.Close()
	t.program = time.Since(phase)

	phase = time.Now()
	controllers, err := analyzer.NewControllerAnalyzer(prog, diags).Analyze()
	if err != nil {
		return res, err
	}
	res.Controllers = len(controllers)
	for _, c := range controllers {
		for _, m := range c.Methods {
			res.Operations += len(m.Routes)
		}
	}
	logger.Info("found controllers", "controllers", res.Controllers, "routes", res.Operations)
	t.controllers = time.Since(phase)

	phase = time.Now()
	gen := openapi.NewGenerator(documentConfig(cfg), diags)
	doc, err := gen.Generate(controllers)
	if err != nil {
		return res, err
	}
	logger.Debug("compiled schemas", "components", gen.Table().Len())
	t.document = time.Since(phase)

	phase = time.Now()
	openapi.Check(ctx, doc, diags)
	t.compliance = time.Since(phase)
	if diags.HasErrors() {
		return res, fmt.Errorf("generation failed with %s", diags.Summary())
	}

	phase = time.Now()
	data, err := doc.Encode(openapi.FormatFor(res.OutputPath), string(cfg.Indent))
	if err != nil {
		return res, err
	}
	if err := openapi.WriteFile(res.OutputPath, data); err != nil {
		return res, err
	}
	logger.Info("wrote document", "path", res.OutputPath, "bytes", len(data))
	t.write = time.Since(phase)

	inputs := make([]string, 0, len(prog.Files()))
	for _, f := range prog.Files() {
		inputs = append(inputs, f.Path)
	}
	c := buildcache.New(version, configHash, absPaths(res.Root, inputs), []string{res.OutputPath})
	if err := buildcache.Save(cachePath, c); err != nil {
		logger.Warn("could not save build cache", "err", err)
	}
	return res, nil
}

func absPaths(root string, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Join(root, filepath.FromSlash(f))
	}
	return out
}

// watchTargets returns the directories and config file to watch. A run that
// failed before the config loaded falls back to the working directory.
func watchTargets(opts *GenerateOptions, res *generateResult) ([]string, string) {
	if res == nil {
		return []string{opts.Cwd}, ""
	}
	return []string{res.Root}, res.ConfigPath
}
