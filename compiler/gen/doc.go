// Package gen renders a model into source files and keeps them up to date.
//
// # Architecture
//
// The emission pipeline follows this flow:
//
//	model.Graph (entities, generated link members)
//	        ↓
//	   order.Resolve (declaration order of the units)
//	        ↓
//	   View (read-only projection handed to backends)
//	        ↓
//	   Backend (gen/cpp, gen/golang)
//	        ↓
//	   Emitter (staleness check, atomic writes)
//
// A unit is a classifier owned directly by a module. Every unit renders to
// one or more files; the project adds an umbrella file and a build
// descriptor, each behind a feature flag.
//
// # Interface Hierarchy
//
//	Backend
//	├── Name() string
//	├── UnitGenerator (per-unit files)
//	└── ProjectGenerator (umbrella and build descriptor)
//
//	SupportGenerator (optional, detected at runtime)
//
// # Staleness
//
// The Emitter records, for every path, the content hash and the file
// modification time read back after the last successful write. Without
// force, a file is left alone when it exists, its content hash is unchanged
// and its modification time is not older than the recorded one, and a file
// whose bytes already match is not rewritten. Forced emission always
// rewrites and refreshes the recorded time. Failed writes leave the
// recorded state untouched so the file is retried.
//
// # Error Handling
//
//   - ConfigError: configuration errors, matching ErrInvalidOption
//   - GenerationError: per-unit render or write failures, matching
//     ErrGenerationFailed
//
// Example error handling:
//
//	report, err := g.Generate(ctx, graph, false)
//	if err != nil {
//		return err // canceled, or the units cannot be ordered
//	}
//	for _, f := range report.Failures {
//		if gen.IsGenerationError(f) {
//			log.Warn("unit failed", zap.Error(f))
//		}
//	}
package gen
