package analyzer

import "context"

// RootAnalyzer is the interface that project-level analyzers implement.
// It analyzes everything under a root directory with context support.
type RootAnalyzer[T any] interface {
	// Analyze processes the project rooted at root and returns the result.
	// The context can be used for cancellation and progress reporting.
	Analyze(ctx context.Context, root string) (T, error)
}
