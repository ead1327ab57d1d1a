package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tsgonest/tsoapi/internal/analyzer"
	"github.com/tsgonest/tsoapi/internal/compiler"
	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
	"github.com/tsgonest/tsoapi/internal/openapi"
)

// controllerDump is the JSON shape printed by the dump command.
type controllerDump struct {
	Name          string            `json:"name"`
	Route         string            `json:"route"`
	Description   string            `json:"description,omitempty"`
	MediaType     string            `json:"mediaType,omitempty"`
	Authorization *string           `json:"authorization,omitzero"`
	Methods       []methodDump      `json:"methods"`
	Location      metadata.Location `json:"location"`
}

type methodDump struct {
	Name          string            `json:"name"`
	Routes        []routeDump       `json:"routes"`
	Summary       string            `json:"summary,omitempty"`
	Deprecated    bool              `json:"deprecated,omitzero"`
	Parameters    []parameterDump   `json:"parameters"`
	Returns       string            `json:"returns"`
	MediaType     string            `json:"mediaType,omitempty"`
	Authorization *string           `json:"authorization,omitzero"`
	Location      metadata.Location `json:"location"`
}

type routeDump struct {
	Verb string `json:"verb"`
	Path string `json:"path"`
}

type parameterDump struct {
	Name       string `json:"name"`
	In         string `json:"in"`
	Type       string `json:"type"`
	File       bool   `json:"file,omitzero"`
	WholeParam bool   `json:"wholeParam,omitzero"`
	Required   bool   `json:"required"`
	Default    any    `json:"default,omitzero"`
	MediaType  string `json:"mediaType,omitempty"`
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [files or globs...]",
		Short: "Print the analyzed controllers as JSON",
		Long:  "Print the controllers, routes and parameters tsoapi found, with their declared types, as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := baseOptions(cmd, args)
			if err != nil {
				return err
			}
			data, err := runDump(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func runDump(ctx context.Context, opts *GenerateOptions) ([]byte, error) {
	logger := newLogger(opts.Stderr, opts.Verbose)
	cfg, configPath, err := loadConfig(opts, logger)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(filepath.Dir(configPath))
	files, err := analyzer.ExpandGlobs(fsys, cfg.Files, cfg.Exclude)
	if err != nil {
		return nil, err
	}

	diags := diagnostic.NewCollector(false, false)
	defer diags.Print(opts.Stderr)

	prog, err := compiler.NewProgram(ctx, fsys, files, compiler.ProgramOptions{
		Paths:       cfg.Paths,
		BaseURL:     cfg.BaseURL,
		Diagnostics: diags,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	defer prog.Close()

	controllers, err := analyzer.NewControllerAnalyzer(prog, diags).Analyze()
	if err != nil {
		return nil, err
	}
	data, err := openapi.MarshalJSON(dumpControllers(controllers), "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding controllers: %w", err)
	}
	return data, nil
}

func dumpControllers(controllers []*analyzer.Controller) []controllerDump {
	out := make([]controllerDump, 0, len(controllers))
	for _, c := range controllers {
		cd := controllerDump{
			Name:          c.Name,
			Route:         c.Route,
			Description:   c.Description,
			MediaType:     c.MediaType,
			Authorization: c.Authorization,
			Methods:       make([]methodDump, 0, len(c.Methods)),
			Location:      c.Location,
		}
		for _, m := range c.Methods {
			md := methodDump{
				Name:          m.Name,
				Summary:       m.Summary,
				Deprecated:    m.Deprecated,
				Parameters:    make([]parameterDump, 0, len(m.Parameters)),
				Returns:       metadata.Describe(m.ReturnType),
				MediaType:     m.MediaType,
				Authorization: m.Authorization,
				Location:      m.Location,
			}
			for _, r := range m.Routes {
				md.Routes = append(md.Routes, routeDump{Verb: r.Verb, Path: r.Path})
			}
			for _, p := range m.Parameters {
				md.Parameters = append(md.Parameters, parameterDump{
					Name:       p.Name,
					In:         string(p.In),
					Type:       metadata.Describe(p.Type),
					File:       p.File,
					WholeParam: p.WholeParam,
					Required:   p.Required,
					Default:    p.Default,
					MediaType:  p.MediaType,
				})
			}
			cd.Methods = append(cd.Methods, md)
		}
		out = append(out, cd)
	}
	return out
}
