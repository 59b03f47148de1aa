package embedding

import "context"

type batchedProvider struct {
	inner EmbeddingProvider
	size  int
}

// Batched splits large inputs into requests of at most size texts.
// A size <= 0 returns p unchanged.
func Batched(p EmbeddingProvider, size int) EmbeddingProvider {
	if size <= 0 {
		return p
	}
	return &batchedProvider{inner: p, size: size}
}

func (b *batchedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= b.size {
		return b.inner.Embed(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.size, len(texts))
		vectors, err := b.inner.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if err := CheckCount("batch", len(vectors), end-start); err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}
