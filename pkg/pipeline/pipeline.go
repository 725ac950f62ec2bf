package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
	"github.com/ccollicutt/log2sql/pkg/parser"
	"github.com/ccollicutt/log2sql/pkg/resolve"
	"github.com/ccollicutt/log2sql/pkg/sqlgen"
	"github.com/ccollicutt/log2sql/pkg/template"
)

// Pipeline turns lines into statements for one template and schema.
type Pipeline struct {
	tmpl     *template.Template
	resolver *resolve.Resolver
	builder  *sqlgen.Builder
	sink     Sink
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for per-line and per-source messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline.
func New(tmpl *template.Template, resolver *resolve.Resolver, builder *sqlgen.Builder, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		tmpl:     tmpl,
		resolver: resolver,
		builder:  builder,
		sink:     sink,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one line. Row-local failures are reported through the
// outcome with a nil error; a non-nil error is fatal.
func (p *Pipeline) Process(ctx context.Context, line string) (Outcome, error) {
	line = strings.TrimSpace(line)
	p.logger.Debug("line", "text", line)

	raw, ok := p.tmpl.Match(line)
	if !ok {
		return OutcomeNoMatch, nil
	}
	p.logger.Debug("line matches", "fields", map[string]string(raw))

	row, err := p.resolver.Resolve(raw)
	if err != nil {
		return classify(err)
	}

	stmt, err := p.builder.Build(row)
	if err != nil {
		return classify(err)
	}
	p.logger.Debug("statement", "sql", stmt.String())

	if err := p.sink.Write(ctx, stmt); err != nil {
		if errdefs.IsRowError(err) {
			p.logger.Warn("row rejected", "error", err)
			return OutcomeRejected, nil
		}
		return "", err
	}

	return OutcomeInserted, nil
}

func classify(err error) (Outcome, error) {
	switch {
	case errors.Is(err, errdefs.ErrFieldNotFound):
		return OutcomeFieldNotFound, nil
	case errors.Is(err, errdefs.ErrTypeCoercion):
		return OutcomeTypeCoercion, nil
	default:
		return "", err
	}
}

// Run processes every line of source into result. It stops at the first
// fatal error; counts gathered so far are kept in result.
func (p *Pipeline) Run(ctx context.Context, source parser.LogSource, result *Result) error {
	current := ""

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading log source: %w", err)
		}

		if line.Source != current {
			current = line.Source
			result.Sources = append(result.Sources, current)
			p.logger.Info("processing", "source", sourceName(current))
		}

		result.LinesRead++

		outcome, err := p.Process(ctx, line.Content)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", sourceName(line.Source), line.LineNum, err)
		}
		result.Counts[outcome]++

		if outcome != OutcomeInserted {
			p.logger.Debug("line skipped", "source", sourceName(line.Source), "line", line.LineNum, "outcome", outcome)
		}
	}

	result.EndTime = time.Now()
	return nil
}

func sourceName(s string) string {
	if s == parser.StdinName {
		return "stdin"
	}
	return s
}
