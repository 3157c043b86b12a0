// Package sqlwarden validates SQL statements against a declarative security
// policy before they reach a database. It is meant to sit in front of a
// query-execution path (an LLM-generated-SQL pipeline in particular): the
// caller hands over a raw query string, the guard screens it lexically,
// parses it, walks the AST through a chain of validators and returns a
// deterministic accept/reject decision with a categorized reason.
//
// The guard never executes, rewrites or sanitizes queries, and its injection
// screens are defense in depth, not a replacement for parameterized queries
// upstream.
package sqlwarden

import (
	"fmt"

	"github.com/xwb1989/sqlparser"
	"go.uber.org/zap"

	"github.com/marketconnect/sqlwarden/schema"
	"github.com/marketconnect/sqlwarden/validate"
	"github.com/marketconnect/sqlwarden/violation"
)

// Config tunes guard behavior without touching the policy itself.
type Config struct {
	// LogQueries enables logging of every validated query and its verdict.
	LogQueries bool `yaml:"log_queries" env:"LOG_QUERIES" env-default:"false"`

	// RaiseOnViolation controls how rejections surface: when true,
	// ValidateQuery returns the violation as an error; when false it
	// returns plain (false, nil).
	RaiseOnViolation bool `yaml:"raise_on_violation" env:"RAISE_ON_VIOLATION" env-default:"true"`

	// AllowExplain is a passthrough flag for the embedding layer; the core
	// validators do not consume it.
	AllowExplain bool `yaml:"allow_explain" env:"ALLOW_EXPLAIN" env-default:"false"`

	// StrictValidation additionally screens every string literal in the
	// parsed statement through libinjection.
	StrictValidation bool `yaml:"strict_validation" env:"STRICT_VALIDATION" env-default:"false"`
}

// DefaultConfig returns the stock configuration: violations are returned as
// errors, everything else off.
func DefaultConfig() Config {
	return Config{RaiseOnViolation: true}
}

// Option customizes a Guard at construction time.
type Option func(*Guard)

// WithLogger supplies the logger used when Config.LogQueries is set.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// Guard is the public entry point. It is safe for concurrent use: the policy
// is normalized once at construction and read-only afterwards, and
// validation keeps no state between calls. Callers hot-reloading rules must
// swap in a freshly built Guard rather than mutating the policy in place.
type Guard struct {
	policy *schema.SecurityPolicy
	config Config
	logger *zap.Logger

	injection  *validate.InjectionValidator
	length     *validate.LengthValidator
	literals   *validate.LiteralValidator
	queryType  *validate.QueryTypeValidator
	structural []validate.Validator
}

// New builds a guard over the given policy. A nil policy yields the default
// (schema-less, keyword screening only). The policy is normalized here;
// construction fails on case-folded duplicate keys.
func New(policy *schema.SecurityPolicy, config Config, opts ...Option) (*Guard, error) {
	if policy == nil {
		p := schema.NewSecurityPolicy()
		policy = &p
	}
	if err := policy.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid security policy: %w", err)
	}

	g := &Guard{
		policy:    policy,
		config:    config,
		injection: validate.NewInjectionValidator(policy),
		length:    validate.NewLengthValidator(policy),
		literals:  validate.NewLiteralValidator(),
		queryType: validate.NewQueryTypeValidator(policy),
		structural: []validate.Validator{
			validate.NewTableValidator(policy),
			validate.NewSubqueryValidator(policy),
			validate.NewJoinValidator(policy),
			validate.NewColumnValidator(policy),
			validate.NewWhereValidator(policy),
			validate.NewAggregationValidator(policy),
			validate.NewGroupByValidator(policy),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

// Policy returns the guard's normalized policy.
func (g *Guard) Policy() *schema.SecurityPolicy {
	return g.policy
}

// ValidateQuery runs the full validation chain over a raw query string.
// It returns (true, nil) when the query is acceptable. On a violation it
// returns (false, err) when RaiseOnViolation is set, else (false, nil);
// either way the first failing stage decides the outcome.
func (g *Guard) ValidateQuery(query string) (bool, error) {
	if g.config.LogQueries {
		g.logger.Info("validating query", zap.String("query", query))
	}

	if err := g.validate(query); err != nil {
		if g.config.LogQueries {
			kind, _ := violation.KindOf(err)
			g.logger.Warn("query validation failed",
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		if g.config.RaiseOnViolation {
			return false, err
		}
		return false, nil
	}

	if g.config.LogQueries {
		g.logger.Info("query validation successful")
	}
	return true, nil
}

// validate is the fail-fast chain; the first violation aborts the rest.
func (g *Guard) validate(query string) error {
	if err := g.length.Screen(query); err != nil {
		return err
	}
	if err := g.injection.Screen(query); err != nil {
		return err
	}

	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return violation.Syntaxf("invalid SQL syntax: %v", err)
	}

	if g.config.StrictValidation {
		if err := g.literals.Validate(stmt); err != nil {
			return err
		}
	}
	if err := g.queryType.Validate(stmt); err != nil {
		return err
	}

	// Schema-less mode: with no tables declared, only the lexical, syntax
	// and type checks apply.
	if len(g.policy.Tables) == 0 {
		return nil
	}
	for _, v := range g.structural {
		if err := v.Validate(stmt); err != nil {
			return err
		}
	}
	return nil
}
