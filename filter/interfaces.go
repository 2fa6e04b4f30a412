package filter

import (
	"github.com/s0up4200/sonarr-hunter/sonarr"
)

// Filter defines the basic interface for episode filters
type Filter interface {
	// Evaluate checks if an episode matches the filter criteria
	Evaluate(episode sonarr.Episode) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string

	// Check evaluates the filter and reports evaluation errors
	Check(episode sonarr.Episode) (bool, error)
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
