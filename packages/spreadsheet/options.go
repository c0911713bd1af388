package spreadsheet

import "log/slog"

// Options holds the collaborators of an Engine
type Options struct {
	// Parser evaluates formula cells
	Parser FormulaParser

	// Logger receives debug events about cycles, failed evaluations, and
	// recompute sizes
	Logger *slog.Logger

	// Matchers is the auto-fill registry, in priority order
	Matchers []AutoFillMatcher
}

// DefaultOptions returns the default evaluator, a discarding logger, and the
// default auto-fill matchers
func DefaultOptions() Options {
	return Options{
		Parser:   NewEvaluator(),
		Logger:   slog.New(slog.DiscardHandler),
		Matchers: DefaultMatchers(),
	}
}

// Option mutates Options
type Option func(*Options)

// WithParser injects the formula parser
func WithParser(parser FormulaParser) Option {
	return func(o *Options) {
		if parser != nil {
			o.Parser = parser
		}
	}
}

// WithLogger injects the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMatchers replaces the auto-fill registry
func WithMatchers(matchers ...AutoFillMatcher) Option {
	return func(o *Options) {
		o.Matchers = matchers
	}
}
