// Package mock provides scripted stand-ins for the review generator and
// embedder.
//
// The default generator reads the row count and topic back out of the review
// prompt and answers with that many well-formed reviews, so a pipeline run
// succeeds end to end without a model. Set CompleteFunc or EmbedTextsFunc to
// feed malformed output or transport failures instead:
//
//	provider := mock.NewStaticProvider(`[{"Product Name":"A","Sentiment":"Positive"}]`)
//	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("embedding service down")
//	}
//
// Embeddings are deterministic unit vectors derived from an FNV hash of the
// text, so identical reviews always land on the same point.
package mock
