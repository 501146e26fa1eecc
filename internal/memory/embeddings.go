package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder is the narrow interface Report Memory needs: text in,
// vector out. langchaingo's embeddings.Embedder already has this
// shape; Report Memory depends on our own narrower interface so a
// deterministic offline embedder can stand in when no provider
// credentials are configured, mirroring internal/ml's
// pretrained-or-synthetic loading policy.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// langchainEmbedder adapts langchaingo's embeddings.Embedder (batch
// EmbedDocuments contract) to AETHERA's single-string Embed call.
type langchainEmbedder struct {
	inner embeddings.Embedder
}

// NewOpenAIEmbedder builds an Embedder backed by an OpenAI-compatible
// langchaingo LLM client, the provider the pack's example repos reach
// for when they need hosted embeddings.
func NewOpenAIEmbedder(llm *openai.LLM) (Embedder, error) {
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &langchainEmbedder{inner: e}, nil
}

func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.inner.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// hashDims is the dimensionality of HashEmbedder's deterministic
// synthetic vectors.
const hashDims = 32

// HashEmbedder is a deterministic, offline embedding stand-in: it
// hashes the whole input text and expands the digest into a
// fixed-length vector. It produces no semantically meaningful geometry:
// identical texts get identical vectors, while any edit yields an
// unrelated one, so report similarity search degrades to exact-text
// matching when no embedding provider is configured.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, hashDims)
	for i := 0; i < hashDims; i++ {
		// Re-hash with a per-dimension salt byte so dims aren't just a
		// truncated reinterpretation of the same 32 hash bytes.
		salted := append([]byte{byte(i)}, sum[:]...)
		h := sha256.Sum256(salted)
		bits := binary.BigEndian.Uint32(h[:4])
		vec[i] = float32(bits%2000)/1000 - 1 // in [-1, 1)
	}
	return vec, nil
}
