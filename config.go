package dinia

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-dinia/reactive"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Option configures a Container.
type Option func(*containerConfig)

type containerConfig struct {
	logger       *zap.Logger
	actionLogger ActionLogger
	warnings     bool
	flush        reactive.Flush
	engine       string
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	testing      bool
}

func applyOptions(opts []Option) containerConfig {
	cfg := containerConfig{
		warnings: true,
		engine:   EngineExpr,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.L()
	}
	if cfg.actionLogger == nil {
		cfg.actionLogger = noopActionLogger{}
	}
	return cfg
}

// WithLogger sets the logger used for diagnostics. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithActionLogger records every action call.
func WithActionLogger(logger ActionLogger) Option {
	return func(cfg *containerConfig) {
		if logger == nil {
			cfg.actionLogger = noopActionLogger{}
			return
		}
		cfg.actionLogger = logger
	}
}

// WithWarnings toggles the plain state and getter collision warnings.
func WithWarnings(enabled bool) Option {
	return func(cfg *containerConfig) {
		cfg.warnings = enabled
	}
}

// WithDefaultFlush sets the flush mode used by subscriptions that do not pick
// one.
func WithDefaultFlush(flush reactive.Flush) Option {
	return func(cfg *containerConfig) {
		cfg.flush = flush
	}
}

// WithEvaluator sets the evaluator used by expression getters.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *containerConfig) {
		cfg.evaluator = evaluator
	}
}

// WithEngine selects the built in evaluator used when none is set with
// WithEvaluator: EngineExpr, EngineCEL or EngineJS.
func WithEngine(engine string) Option {
	return func(cfg *containerConfig) {
		cfg.engine = engine
	}
}

// WithProgramCache caches compiled expressions across stores.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *containerConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes the functions of registry to expression
// getters.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *containerConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for expression getters.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *containerConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithTestingMode marks the container as a testing container. An active
// testing container takes precedence over containers carried by a context.
func WithTestingMode() Option {
	return func(cfg *containerConfig) {
		cfg.testing = true
	}
}

// Config is the file form of the container settings.
type Config struct {
	Warnings     *bool  `yaml:"warnings"`
	Engine       string `yaml:"engine"`
	Flush        string `yaml:"flush"`
	ProgramCache bool   `yaml:"program_cache"`
}

// LoadConfig decodes a YAML document into Config. Unknown keys are rejected
// and an empty document yields the zero Config.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("dinia: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports unknown engines and flush modes.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.Engine)) {
	case "", EngineExpr, EngineCEL, EngineJS:
	default:
		errs = append(errs, fmt.Errorf("dinia: unknown engine %q", c.Engine))
	}
	if _, err := reactive.ParseFlush(c.Flush); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// WithConfig applies cfg. Fields left empty keep their defaults.
func WithConfig(c Config) Option {
	return func(cfg *containerConfig) {
		if c.Warnings != nil {
			cfg.warnings = *c.Warnings
		}
		if engine := strings.ToLower(strings.TrimSpace(c.Engine)); engine != "" {
			cfg.engine = engine
		}
		if flush, err := reactive.ParseFlush(c.Flush); err == nil && c.Flush != "" {
			cfg.flush = flush
		}
		if c.ProgramCache && cfg.programCache == nil {
			cfg.programCache = NewProgramCache()
		}
	}
}
