package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgerelay/relay/internal/domain"
)

func TestIndexManager_AddDocuments_MismatchedBatchRejectedBeforeEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newMemVectorStore()
	manager := NewIndexManager(embedder, store)

	err := manager.AddDocuments(context.Background(), "p1",
		[]string{"id-1", "id-2"},
		[]string{"only one text"},
		[]domain.VectorMetadata{{}, {}},
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMisalignedBatch)
	assert.Equal(t, 0, embedder.calls)
	assert.Empty(t, store.upserts)
}

func TestIndexManager_AddDocuments_UpsertsIntoProjectCollection(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := newMemVectorStore()
	manager := NewIndexManager(embedder, store)

	err := manager.AddDocuments(context.Background(), "p1",
		[]string{"qa_a", "qa_b"},
		[]string{"first answer", "second answer"},
		[]domain.VectorMetadata{
			{Type: domain.VectorKindStaticQA, ProjectID: "p1"},
			{Type: domain.VectorKindStaticQA, ProjectID: "p1"},
		},
	)

	require.NoError(t, err)
	records := store.upserts["project_p1"]
	require.Len(t, records, 2)
	assert.Equal(t, "qa_a", records[0].ID)
	assert.Equal(t, "first answer", records[0].Content)
	assert.NotEmpty(t, records[0].Embedding)
}

func TestIndexManager_AddDocuments_EmptyBatchIsNoOp(t *testing.T) {
	embedder := &fakeEmbedder{}
	manager := NewIndexManager(embedder, newMemVectorStore())

	err := manager.AddDocuments(context.Background(), "p1", nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, embedder.calls)
}

func TestIndexManager_QueryDocuments_EmbedFailureDegradesToEmpty(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	manager := NewIndexManager(embedder, newMemVectorStore())

	hits := manager.QueryDocuments(context.Background(), "p1", "anything", 5)

	assert.Empty(t, hits)
}

func TestIndexManager_QueryDocuments_SearchFailureDegradesToEmpty(t *testing.T) {
	store := newMemVectorStore()
	store.failFind = errors.New("index offline")
	manager := NewIndexManager(&fakeEmbedder{}, store)

	hits := manager.QueryDocuments(context.Background(), "p1", "anything", 5)

	assert.Empty(t, hits)
}

func TestIndexManager_QueryDocuments_EmptyCollectionReturnsEmpty(t *testing.T) {
	manager := NewIndexManager(&fakeEmbedder{}, newMemVectorStore())

	hits := manager.QueryDocuments(context.Background(), "fresh-project", "what database?", 5)

	assert.Empty(t, hits)
}

func TestNormalizeForEmbedding_CollapsesNoiseStably(t *testing.T) {
	a := normalizeForEmbedding("What   database\tdo we\nuse?")
	b := normalizeForEmbedding("What database do we use?")

	assert.Equal(t, b, a)
}

func TestNormalizeForEmbedding_UnicodeFormsAreStable(t *testing.T) {
	// Precomposed and combining-mark spellings of the same word must
	// produce the same embedding input.
	precomposed := normalizeForEmbedding("café menu")
	decomposed := normalizeForEmbedding("café menu")

	assert.Equal(t, precomposed, decomposed)
}

func TestNormalizeForEmbedding_NonASCIICollapsesToWhitespace(t *testing.T) {
	got := normalizeForEmbedding("shutdown — restart order")

	assert.Equal(t, "shutdown restart order", got)
}
