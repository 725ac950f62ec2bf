package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ccollicutt/log2sql/pkg/config"
	"github.com/ccollicutt/log2sql/pkg/dedup"
	"github.com/ccollicutt/log2sql/pkg/parser"
	"github.com/ccollicutt/log2sql/pkg/sqlgen"
	"github.com/ccollicutt/log2sql/pkg/store"
)

// Convert runs a validated configuration over source.
//
// Without a database every statement is printed to stdout and no pruning
// happens. With one, the table is prepared first, all rows are written in a
// single transaction that is committed even when reading fails part way, and
// the dedup passes run after the commit.
func Convert(ctx context.Context, cfg *config.Config, source parser.LogSource, stdout io.Writer, logger *slog.Logger) (*Result, error) {
	if !cfg.Validated() {
		return nil, config.ErrNotValidated
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tmpl := cfg.CompiledTemplate()
	desc := cfg.ParsedSchema()
	result := newResult(desc.Table)

	logger.Debug("template", "source", tmpl.Source(), "pattern", tmpl.Pattern())
	logger.Debug("schema", "description", desc.String())

	if cfg.PrintOnly() {
		logger.Info("no database given, printing statements; duplicate removal skipped")
		p := New(tmpl, cfg.Resolver(), sqlgen.New(desc.Table, desc.Columns), NewPrintSink(stdout), WithLogger(logger))
		if err := p.Run(ctx, source, result); err != nil {
			return result, err
		}
		return result, nil
	}

	path := store.Path(cfg.Database)
	result.Database = path

	st, err := store.Open(ctx, path)
	if err != nil {
		return result, err
	}
	defer st.Close()

	usable, err := st.Prepare(ctx, desc)
	if err != nil {
		return result, err
	}

	w, err := st.Begin(ctx)
	if err != nil {
		return result, err
	}

	p := New(tmpl, cfg.Resolver(), sqlgen.New(desc.Table, usable), w, WithLogger(logger))
	runErr := p.Run(ctx, source, result)

	if err := w.Commit(); err != nil {
		_ = w.Rollback()
		return result, errors.Join(runErr, err)
	}
	if runErr != nil {
		return result, runErr
	}

	engine := dedup.New(st.DB(), desc.Table, usable, logger)
	res, err := engine.Run(ctx, dedup.Options{
		KeepDuplicates: cfg.KeepDuplicates,
		KeepMidpoints:  cfg.KeepMidpoints,
	})
	if res != nil && (res.DuplicatesRan || res.MidpointsRan) {
		result.Dedup = res
	}
	result.EndTime = time.Now()
	if err != nil {
		return result, fmt.Errorf("pruning %s: %w", desc.Table, err)
	}

	return result, nil
}
