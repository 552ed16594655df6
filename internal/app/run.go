package app

import (
	"context"

	"github.com/spf13/afero"
	"github.com/specialistvlad/perplex/internal/compiler"
	"github.com/specialistvlad/perplex/internal/ctxlog"
	"github.com/specialistvlad/perplex/internal/fsutil"
	"github.com/specialistvlad/perplex/internal/gencontext"
	"github.com/specialistvlad/perplex/internal/generr"
	"github.com/specialistvlad/perplex/internal/pattern"
	"github.com/specialistvlad/perplex/internal/template"
	"go.uber.org/multierr"
)

// Run generates the scanner described by the configured specification.
// Output files are only written when every stage succeeded.
func (a *App) Run(ctx context.Context) error {
	cfg := a.config
	ctx, logger := ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "input", cfg.InputPath)
	logger.Debug("App.Run method started.")

	src, err := afero.ReadFile(a.fs, cfg.InputPath)
	if err != nil {
		return generr.IO(cfg.InputPath, "reading specification", err)
	}

	gc := gencontext.Begin(gencontext.Options{
		HeaderRequested: cfg.HeaderPath != "",
		SafeMode:        cfg.SafeMode,
		UsingConditions: cfg.Conditions,
		LineDirectives:  !cfg.NoLine,
	}, gencontext.Paths{
		Input:    cfg.InputPath,
		Output:   cfg.OutputPath,
		Header:   cfg.HeaderPath,
		Template: cfg.TemplatePath,
	})

	comp := compiler.New(gc, pattern.NewRegexp())
	if err := a.parser.Parse(ctx, cfg.InputPath, src, comp); err != nil {
		return err
	}
	snap, err := gc.Finalize()
	if err != nil {
		return err
	}
	logger.Debug("Specification consumed.", "rules", len(snap.Rules), "conditions", len(snap.Conditions))

	tmpl, err := a.template()
	if err != nil {
		return err
	}
	res, err := template.Render(ctx, snap, tmpl)
	if err != nil {
		return err
	}

	if err := a.write(ctx, res); err != nil {
		return err
	}
	logger.Info("Scanner generated.", "rules", len(snap.Rules), "markers", len(res.Markers))
	logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) template() ([]byte, error) {
	if a.config.TemplatePath == "" {
		return template.Bundled(), nil
	}
	data, err := afero.ReadFile(a.fs, a.config.TemplatePath)
	if err != nil {
		return nil, generr.IO(a.config.TemplatePath, "reading template", err)
	}
	return data, nil
}

// write stages the header and output files and commits them together. The
// output goes to standard output only after the files are in place.
func (a *App) write(ctx context.Context, res *template.Result) error {
	cfg := a.config
	stage := fsutil.NewStage(a.fs)

	files := []struct {
		path string
		data []byte
	}{
		{cfg.HeaderPath, res.Header},
		{cfg.OutputPath, res.Output},
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if err := stage.Add(f.path, f.data); err != nil {
			return generr.IO(f.path, "writing output", multierr.Append(err, stage.Abort()))
		}
	}

	if err := ctx.Err(); err != nil {
		return multierr.Append(err, stage.Abort())
	}
	staged := stage.Len()
	if err := stage.Commit(); err != nil {
		return generr.IO(cfg.OutputPath, "committing output", err)
	}
	ctxlog.FromContext(ctx).Debug("Output files committed.", "files", staged, "output", cfg.OutputPath, "header", cfg.HeaderPath)

	if cfg.OutputPath == "" {
		if _, err := a.outW.Write(res.Output); err != nil {
			return generr.IO("<stdout>", "writing output", err)
		}
	}
	return nil
}
