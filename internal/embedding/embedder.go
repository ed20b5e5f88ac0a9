// Package embedding produces fixed-width, L2-normalized vectors through an
// ordered chain of provider tiers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/cortexnotes/cortex/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	// Dimensions is the fixed output width of every tier.
	Dimensions = domain.EmbeddingDimensions

	// zeroNormEps guards the division in Normalize. Vectors below it cannot
	// be normalized and are treated as ingestion errors, never stored.
	zeroNormEps = 1e-12

	// batchConcurrency bounds parallel provider calls during batch embedding.
	batchConcurrency = 4
)

// ErrZeroNorm is returned when a vector cannot be L2-normalized.
var ErrZeroNorm = errors.New("vector has near-zero norm")

// ErrAllTiersFailed is returned when every tier in the chain failed.
var ErrAllTiersFailed = errors.New("all embedding tiers failed")

// Tier is one provider in the fallback chain. TryEmbed returns the provider's
// raw vector; the Embedder fits and normalizes it.
type Tier interface {
	Name() string
	TryEmbed(ctx context.Context, text string) ([]float32, error)
}

// Embedder iterates tiers in order and stops at the first success. Regardless
// of tier, output is exactly Dimensions floats, L2-normalized, and
// deterministic for identical input on the same tier.
type Embedder struct {
	tiers []Tier
}

// New creates an Embedder over the given ordered tiers.
func New(tiers ...Tier) *Embedder {
	return &Embedder{tiers: tiers}
}

// Embed converts text to a normalized Dimensions-width vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, tier := range e.tiers {
		raw, err := tier.TryEmbed(ctx, text)
		if err != nil {
			log.Printf("embedding tier %s failed, trying next: %v", tier.Name(), err)
			lastErr = err
			continue
		}
		vec, err := Normalize(Fit(raw, Dimensions))
		if err != nil {
			log.Printf("embedding tier %s returned unnormalizable vector, trying next", tier.Name())
			lastErr = err
			continue
		}
		return vec, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllTiersFailed, lastErr)
	}
	return nil, ErrAllTiersFailed
}

// EmbedBatch embeds texts with bounded internal parallelism. Output order
// matches input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fit pads a vector with zeros or truncates it to exactly width dimensions.
func Fit(v []float32, width int) []float32 {
	if len(v) == width {
		return v
	}
	out := make([]float32, width)
	copy(out, v)
	return out
}

// Normalize scales v to unit L2 norm. It is idempotent for already-normalized
// vectors and returns ErrZeroNorm when the norm is numerically zero.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm < zeroNormEps {
		return nil, ErrZeroNorm
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
