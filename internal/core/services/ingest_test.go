package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

func TestIngestor_IngestNewFile(t *testing.T) {
	f := newIngestFixture()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ingestor.now = func() time.Time { return now }
	f.files.set("/docs/pets.md", "Cats sleep a lot.\n\nDogs like walks.")
	ctx := context.Background()

	ids, err := f.ingestor.Ingest(ctx, "/docs/pets.md")

	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 2, f.vectors.Len())

	rec, err := f.metadata.Get(ctx, "/docs/pets.md")
	require.NoError(t, err)
	assert.Equal(t, ids, rec.ChunkIDs)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, NewChangeDetector().Fingerprint([]byte("Cats sleep a lot.\n\nDogs like walks.")), rec.ContentHash)

	stored, err := f.vectors.Get(ctx, ids[:1])
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Cats sleep a lot.", stored[0].Content)
	assert.Equal(t, "/docs/pets.md", stored[0].Meta.FileName)
	assert.Equal(t, domain.ContentTypeText, stored[0].Meta.ContentType)
	assert.NotEmpty(t, stored[0].Embedding.Sparse)
}

func TestIngestor_UnchangedFileIsSkipped(t *testing.T) {
	f := newIngestFixture()
	f.files.set("/docs/a.md", "alpha")
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, "/docs/a.md")
	require.NoError(t, err)
	calls := f.embedder.calls

	ids, err := f.ingestor.Ingest(ctx, "/docs/a.md")

	require.NoError(t, err)
	assert.Nil(t, ids)
	assert.Equal(t, calls, f.embedder.calls)
}

func TestIngestor_ModifiedFileReplacesChunks(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.files.set("/docs/a.md", "old paragraph\n\nkept paragraph")
	oldIDs, err := f.ingestor.Ingest(ctx, "/docs/a.md")
	require.NoError(t, err)

	f.files.set("/docs/a.md", "new paragraph\n\nkept paragraph")
	newIDs, err := f.ingestor.Ingest(ctx, "/docs/a.md")

	require.NoError(t, err)
	require.Len(t, newIDs, 2)
	assert.Equal(t, oldIDs[1], newIDs[1])
	assert.Equal(t, 2, f.vectors.Len())

	gone, err := f.vectors.Get(ctx, oldIDs[:1])
	require.NoError(t, err)
	assert.Empty(t, gone)

	rec, err := f.metadata.Get(ctx, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, newIDs, rec.ChunkIDs)
}

func TestIngestor_SkipsIgnoredAndEmptyFiles(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.files.set("/docs/empty.md", "")
	f.files.set("/docs/photo.jpg", "binary")
	f.files.set("/docs/.draft.md", "secret")

	for _, path := range []string{"/docs/empty.md", "/docs/photo.jpg", "/docs/.draft.md"} {
		ids, err := f.ingestor.Ingest(ctx, path)
		require.NoError(t, err, path)
		assert.Nil(t, ids, path)
	}

	names, err := f.metadata.ListAllNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestIngestor_ReadAndParseErrors(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	_, err := f.ingestor.Ingest(ctx, "/docs/missing.md")
	assert.Error(t, err)

	f.files.set("/docs/broken.md", "text")
	f.ingestor.parsers = &fakeParsers{files: f.files, err: domain.ErrUnsupportedFile}
	_, err = f.ingestor.Ingest(ctx, "/docs/broken.md")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFile)

	names, err := f.metadata.ListAllNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestIngestor_RetriesFailedChunksOnce(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.files.set("/docs/a.md", "flaky once\n\nalways broken\n\nfine")
	f.embedder.failures["flaky once"] = 1
	f.embedder.failures["always broken"] = 2

	ids, err := f.ingestor.Ingest(ctx, "/docs/a.md")

	require.NoError(t, err)
	require.Len(t, ids, 2)
	stored, err := f.vectors.Get(ctx, ids)
	require.NoError(t, err)
	contents := []string{stored[0].Content, stored[1].Content}
	assert.ElementsMatch(t, []string{"flaky once", "fine"}, contents)

	rec, err := f.metadata.Get(ctx, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, ids, rec.ChunkIDs)
}

func TestIngestor_MetadataRetry(t *testing.T) {
	t.Run("second attempt succeeds", func(t *testing.T) {
		f := newIngestFixture()
		f.metadata.upsertFailures = 1
		f.files.set("/docs/a.md", "alpha")

		ids, err := f.ingestor.Ingest(context.Background(), "/docs/a.md")

		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("both attempts fail", func(t *testing.T) {
		f := newIngestFixture()
		f.metadata.upsertFailures = 2
		f.files.set("/docs/a.md", "alpha")
		ctx := context.Background()

		ids, err := f.ingestor.Ingest(ctx, "/docs/a.md")

		assert.ErrorIs(t, err, domain.ErrMetadataStale)
		assert.Len(t, ids, 1)
		assert.Equal(t, 1, f.vectors.Len())

		// The next ingest sees no record and repairs it.
		ids, err = f.ingestor.Ingest(ctx, "/docs/a.md")
		require.NoError(t, err)
		assert.Len(t, ids, 1)
		_, err = f.metadata.Get(ctx, "/docs/a.md")
		assert.NoError(t, err)
	})
}

func TestIngestor_ImageChunksSaveAssets(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.files.set("/docs/report.md", "Revenue grew.\n\nIMG chart.png")

	ids, err := f.ingestor.Ingest(ctx, "/docs/report.md")

	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 1, f.assets.count())

	stored, err := f.vectors.Get(ctx, ids[1:])
	require.NoError(t, err)
	require.Len(t, stored, 1)
	img := stored[0]
	assert.Equal(t, domain.ContentTypeImage, img.Meta.ContentType)
	assert.Equal(t, "/assets/"+ids[1]+".png", img.Meta.ContentURL)
	assert.Equal(t, "figure chart.png", img.Content)

	require.NoError(t, f.ingestor.Retract(ctx, "/docs/report.md"))
	assert.Equal(t, 0, f.assets.count())
	assert.Equal(t, 0, f.vectors.Len())
}

func TestIngestor_DuplicateChunksStoredOnce(t *testing.T) {
	f := newIngestFixture()
	f.files.set("/docs/a.md", "same\n\nsame\n\nother")

	ids, err := f.ingestor.Ingest(context.Background(), "/docs/a.md")

	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, 2, f.vectors.Len())
}

func TestIngestor_RetractKeepsSharedChunks(t *testing.T) {
	tests := []struct {
		retract, survivor string
	}{
		{retract: "/docs/a.md", survivor: "/docs/b.md"},
		{retract: "/docs/b.md", survivor: "/docs/a.md"},
	}

	for _, tc := range tests {
		t.Run(filepath.Base(tc.retract), func(t *testing.T) {
			f := newIngestFixture()
			ctx := context.Background()
			f.files.set("/docs/a.md", "shared paragraph\n\nonly in a")
			f.files.set("/docs/b.md", "shared paragraph\n\nonly in b")
			idsA, err := f.ingestor.Ingest(ctx, "/docs/a.md")
			require.NoError(t, err)
			_, err = f.ingestor.Ingest(ctx, "/docs/b.md")
			require.NoError(t, err)
			require.Equal(t, 3, f.vectors.Len())

			require.NoError(t, f.ingestor.Retract(ctx, tc.retract))

			assert.Equal(t, 2, f.vectors.Len())
			shared, err := f.vectors.Get(ctx, idsA[:1])
			require.NoError(t, err)
			require.Len(t, shared, 1)
			assert.Equal(t, tc.survivor, shared[0].Meta.FileName)
			_, err = f.metadata.Get(ctx, tc.retract)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			survivor, err := f.metadata.Get(ctx, tc.survivor)
			require.NoError(t, err)
			assert.Contains(t, survivor.ChunkIDs, idsA[0])
		})
	}
}

func TestIngestor_RetractNoops(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	assert.NoError(t, f.ingestor.Retract(ctx, "/docs/never.md"))
	assert.NoError(t, f.ingestor.Retract(ctx, "/docs/ignored.exe"))
}

func TestIngestor_Ignore(t *testing.T) {
	f := newIngestFixture()

	assert.False(t, f.ingestor.Ignore("/docs/a.md"))
	assert.True(t, f.ingestor.Ignore("/docs/a.exe"))
}

func TestUniqueChunks(t *testing.T) {
	chunks := []domain.Chunk{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "c"}, {ID: "b"}}

	got := uniqueChunks(chunks)

	ids := make([]string, len(got))
	for i := range got {
		ids[i] = got[i].ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
