package embedding

import (
	"context"
	"crypto/sha256"
)

// EmbeddingAPI is the raw-vector contract both the local and remote providers
// satisfy.
type EmbeddingAPI interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ProviderTier adapts a provider client into the chain. The local Ollama tier
// and the remote API tier are both ProviderTiers; only their clients differ.
type ProviderTier struct {
	name string
	api  EmbeddingAPI
}

func NewProviderTier(name string, api EmbeddingAPI) *ProviderTier {
	return &ProviderTier{name: name, api: api}
}

func (t *ProviderTier) Name() string { return t.name }

func (t *ProviderTier) TryEmbed(ctx context.Context, text string) ([]float32, error) {
	return t.api.CreateEmbedding(ctx, text)
}

// HashTier is the last-resort tier: a deterministic pseudo-embedding expanded
// from a SHA-256 digest of the text. Quality is explicitly degraded; it exists
// so ingestion stays available when every real provider is down.
type HashTier struct{}

func (HashTier) Name() string { return "hash" }

func (HashTier) TryEmbed(_ context.Context, text string) ([]float32, error) {
	digest := sha256.Sum256([]byte(text))

	vec := make([]float32, Dimensions)
	for i := range vec {
		vec[i] = float32(digest[i%len(digest)]) / 255.0
	}
	return vec, nil
}
