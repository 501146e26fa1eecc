package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertAndFindSimilar(t *testing.T) {
	store := NewStore(HashEmbedder{})
	ctx := context.Background()

	_, err := store.Upsert(ctx, "r1", []SectionInput{
		{SectionID: "summary", Text: "solar farm biodiversity impact near wetland"},
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "r2", []SectionInput{
		{SectionID: "summary", Text: "solar farm biodiversity impact near wetland"},
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "r3", []SectionInput{
		{SectionID: "summary", Text: "completely unrelated industrial port expansion report"},
	})
	require.NoError(t, err)

	matches, err := store.FindSimilar(ctx, "solar farm biodiversity impact near wetland", 2, 0.99, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(matches), 2)
	for _, m := range matches {
		require.Contains(t, []string{"r1", "r2"}, m.ReportID)
		require.Equal(t, "summary", m.SectionID)
	}
}

func TestFindSimilarDefaultsApplyWhenUnset(t *testing.T) {
	store := NewStore(HashEmbedder{})
	ctx := context.Background()
	_, err := store.Upsert(ctx, "r1", []SectionInput{{SectionID: "summary", Text: "a report"}})
	require.NoError(t, err)

	matches, err := store.FindSimilar(ctx, "a report", 0, 0, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(matches), DefaultK)
}

func TestFindSimilarFiltersByMetadata(t *testing.T) {
	store := NewStore(HashEmbedder{})
	ctx := context.Background()

	_, err := store.Upsert(ctx, "r1", []SectionInput{
		{SectionID: "summary", Text: "solar farm biodiversity impact", Metadata: map[string]interface{}{"country": "PRT"}},
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "r2", []SectionInput{
		{SectionID: "summary", Text: "solar farm biodiversity impact", Metadata: map[string]interface{}{"country": "ESP"}},
	})
	require.NoError(t, err)

	matches, err := store.FindSimilar(ctx, "solar farm biodiversity impact", 5, 0.5, map[string]interface{}{"country": "ESP"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "r2", matches[0].ReportID)
	require.Equal(t, "ESP", matches[0].Metadata["country"])
}

func TestFindSimilarEmbedsLazilyWhenAbsentAtWriteTime(t *testing.T) {
	store := NewStore(HashEmbedder{})
	ctx := context.Background()

	_, err := store.Upsert(ctx, "r1", []SectionInput{{SectionID: "summary", Text: "a report about wetlands"}})
	require.NoError(t, err)

	store.mu.RLock()
	rec := store.sections[sectionKey{reportID: "r1", sectionID: "summary"}]
	store.mu.RUnlock()
	require.Nil(t, rec.Embedding)

	matches, err := store.FindSimilar(ctx, "a report about wetlands", 1, 0.99, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	store.mu.RLock()
	rec = store.sections[sectionKey{reportID: "r1", sectionID: "summary"}]
	store.mu.RUnlock()
	require.NotNil(t, rec.Embedding)
}

func TestRecordFeedbackRequiresExistingReport(t *testing.T) {
	store := NewStore(HashEmbedder{})
	err := store.RecordFeedback("missing", "reviewer-1", 5, "great")
	require.Error(t, err)
}

func TestRecordFeedbackAppends(t *testing.T) {
	store := NewStore(HashEmbedder{})
	ctx := context.Background()
	_, err := store.Upsert(ctx, "r1", []SectionInput{{SectionID: "summary", Text: "a report"}})
	require.NoError(t, err)

	require.NoError(t, store.RecordFeedback("r1", "reviewer-1", 4, "useful"))
	fb := store.Feedback("r1")
	require.Len(t, fb, 1)
	require.Equal(t, "reviewer-1", fb[0].Reviewer)
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, 2, 3}
	require.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarityZeroVectorIsZero(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
