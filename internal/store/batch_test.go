package store

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestDeleteAllPagesThroughTheCollection(t *testing.T) {
	mem := NewMemoryStore()
	for i := 0; i < 950; i++ {
		mem.Seed("restaurants", fmt.Sprintf("DOC-%04d", i), map[string]any{"n": i})
	}

	w := NewBatchWriter(mem, testLog())
	deleted, err := w.DeleteAll(context.Background(), "restaurants", 400)
	require.NoError(t, err)

	assert.Equal(t, 950, deleted)
	assert.Equal(t, 0, mem.Count("restaurants"))
	// 400 + 400 + 150, each page one atomic batch.
	assert.Equal(t, 3, mem.DeleteBatchCalls)
}

func TestDeleteAllEmptyCollection(t *testing.T) {
	mem := NewMemoryStore()
	w := NewBatchWriter(mem, testLog())

	deleted, err := w.DeleteAll(context.Background(), "restaurants", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Equal(t, 0, mem.DeleteBatchCalls)
}

func TestUpsertAllGroupsIntoPages(t *testing.T) {
	mem := NewMemoryStore()
	w := NewBatchWriter(mem, testLog())

	var docs []Document
	for i := 0; i < 950; i++ {
		docs = append(docs, Document{ID: fmt.Sprintf("DOC-%04d", i), Data: map[string]any{"n": i}})
	}

	written, skipped, err := w.UpsertAll(context.Background(), "restaurants", docs, 400, false)
	require.NoError(t, err)
	assert.Equal(t, 950, written)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 950, mem.Count("restaurants"))
	assert.Equal(t, 3, mem.SetBatchCalls)
}

func TestUpsertAllSkipsBlankIDs(t *testing.T) {
	mem := NewMemoryStore()
	w := NewBatchWriter(mem, testLog())

	docs := []Document{
		{ID: "A", Data: map[string]any{"name": "a"}},
		{ID: "", Data: map[string]any{"name": "nameless"}},
		{ID: "B", Data: map[string]any{"name": "b"}},
	}

	written, skipped, err := w.UpsertAll(context.Background(), "restaurants", docs, 400, false)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, mem.Count("restaurants"))
}

func TestUpsertAllRetriesFailedPageIndividually(t *testing.T) {
	mem := NewMemoryStore()
	mem.FailIDs["BAD"] = true
	w := NewBatchWriter(mem, testLog())

	docs := []Document{
		{ID: "A", Data: map[string]any{"name": "a"}},
		{ID: "BAD", Data: map[string]any{"name": "poison"}},
		{ID: "B", Data: map[string]any{"name": "b"}},
	}

	written, skipped, err := w.UpsertAll(context.Background(), "restaurants", docs, 400, false)
	require.NoError(t, err)

	// The poisoned document sinks only itself, not its page.
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, mem.Count("restaurants"))
	_, ok := mem.Get("restaurants", "BAD")
	assert.False(t, ok)
}

func TestUpsertAllMergePreservesOtherFields(t *testing.T) {
	mem := NewMemoryStore()
	mem.Seed("restaurants", "A", map[string]any{"name": "old", "notes": "keep me"})
	w := NewBatchWriter(mem, testLog())

	docs := []Document{{ID: "A", Data: map[string]any{"name": "new"}}}
	written, skipped, err := w.UpsertAll(context.Background(), "restaurants", docs, 400, true)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 0, skipped)

	got, ok := mem.Get("restaurants", "A")
	require.True(t, ok)
	assert.Equal(t, "new", got["name"])
	assert.Equal(t, "keep me", got["notes"])
}

func TestUpsertAllReplaceDropsOtherFields(t *testing.T) {
	mem := NewMemoryStore()
	mem.Seed("restaurants", "A", map[string]any{"name": "old", "notes": "stale"})
	w := NewBatchWriter(mem, testLog())

	docs := []Document{{ID: "A", Data: map[string]any{"name": "new"}}}
	_, _, err := w.UpsertAll(context.Background(), "restaurants", docs, 400, false)
	require.NoError(t, err)

	got, ok := mem.Get("restaurants", "A")
	require.True(t, ok)
	assert.Equal(t, "new", got["name"])
	_, hasNotes := got["notes"]
	assert.False(t, hasNotes)
}
