package batch

import (
	"context"
	"log/slog"
)

// DefaultChunkSize matches what the relational store tolerates comfortably
// per IN-clause lookup.
const DefaultChunkSize = 20

// FetchFunc loads the records for one chunk of keys.
type FetchFunc[T any] func(ctx context.Context, keys []string) ([]T, error)

// Result carries the concatenated items plus how many chunks degraded to
// empty because their fetch failed.
type Result[T any] struct {
	Items          []T
	DegradedChunks int
}

// Fetch splits keys into chunks and invokes fn sequentially per chunk.
// Sequential on purpose: the store behind fn is rate limited, and slower
// always beats throttled. A failing chunk is logged and contributes an
// empty result; the rest of the operation continues. Total key count is
// unbounded.
func Fetch[T any](ctx context.Context, keys []string, chunkSize int, logger *slog.Logger, fn FetchFunc[T]) Result[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	result := Result[T]{Items: make([]T, 0, len(keys))}
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		items, err := fn(ctx, chunk)
		if err != nil {
			result.DegradedChunks++
			logger.WarnContext(ctx, "batch chunk fetch failed, continuing with empty chunk",
				"chunk_start", start,
				"chunk_size", len(chunk),
				"error", err,
			)
			continue
		}
		result.Items = append(result.Items, items...)
	}

	return result
}

// Chunks splits keys without fetching, for callers that manage their own
// iteration.
func Chunks(keys []string, chunkSize int) [][]string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	out := make([][]string, 0, (len(keys)+chunkSize-1)/chunkSize)
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}
