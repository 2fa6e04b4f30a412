package filter

import (
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/s0up4200/sonarr-hunter/sonarr"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size <= 0 {
			return
		}
		if cache, err := lru.New[string, CompiledFilter](size); err == nil {
			c.cache = cache
		}
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles a single expression with a fresh compiler
func Compile(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lru.Cache[string, CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// The zero episode gives the checker the field types
	program, err := expr.Compile(expression,
		expr.Env(createRuntimeEnvironment(c.helperFuncs, sonarr.Episode{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Add(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Evaluate evaluates the filter against an episode. An evaluation error
// counts as no match.
func (f *exprFilter) Evaluate(episode sonarr.Episode) bool {
	ok, err := f.Check(episode)
	return err == nil && ok
}

// Check evaluates the filter and returns any runtime error
func (f *exprFilter) Check(episode sonarr.Episode) (bool, error) {
	result, err := expr.Run(f.program, createRuntimeEnvironment(f.helpers, episode))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Episode:    episode.Label(),
			Err:        err,
		}
	}

	// Result is guaranteed to be bool due to AsBool() option during compilation
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the static helper functions. String tests
// use the contains, startsWith and endsWith operators.
func createHelperFunctions() map[string]any {
	return map[string]any{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

// createRuntimeEnvironment creates the environment for one evaluation
func createRuntimeEnvironment(helpers map[string]any, episode sonarr.Episode) map[string]any {
	env := make(map[string]any, len(helpers)+12)
	maps.Copy(env, helpers)

	env["Episode"] = episode
	env["ID"] = episode.ID
	env["SeriesID"] = episode.SeriesID
	env["SeriesTitle"] = episode.SeriesTitle
	env["Title"] = episode.Title
	env["SeasonNumber"] = episode.SeasonNumber
	env["EpisodeNumber"] = episode.EpisodeNumber
	env["Monitored"] = episode.Monitored
	env["HasFile"] = episode.HasFile

	env["isSpecial"] = func() bool {
		return episode.SeasonNumber == 0
	}
	env["inSeries"] = func(title string) bool {
		return strings.EqualFold(episode.SeriesTitle, title)
	}

	return env
}
