package index

import (
	"context"
	"log"
	"os"
	"testing"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgvectorRegistry(t *testing.T) *Registry {
	t.Helper()
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error)
	require.NoError(t, db.AutoMigrate(&model.VectorCollection{}, &model.DocumentChunk{}))

	return NewRegistry(NewPgvectorBackend(unitofwork.NewRepositoryFactory(db)), logger.NewNop())
}

func TestPgvector_SessionLifecycle(t *testing.T) {
	reg := pgvectorRegistry(t)
	ctx := context.Background()
	sid := "it-" + uuid.NewString()
	t.Cleanup(func() { _, _ = reg.Drop(context.Background(), sid) })

	_, err := reg.Ensure(ctx, sid)
	require.NoError(t, err)

	chunks := []entity.Chunk{
		{Id: sid + "-1", Text: "Quarterly revenue grew forty percent year over year.", Type: entity.ChunkTypeText, Source: "report.pdf", Page: 1},
		{Id: sid + "-2", Text: "A bar chart compares revenue across four quarters.", Type: entity.ChunkTypeImage, Source: "report.pdf", Page: 2},
	}
	require.NoError(t, reg.Upsert(ctx, sid, chunks, [][]float32{{1, 0, 0}, {0, 1, 0}}))

	n, err := reg.Count(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := reg.Query(ctx, sid, []float32{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, sid+"-1", hits[0].Chunk.Id)

	images, err := reg.LookupByType(ctx, sid, entity.ChunkTypeImage, 0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 2, images[0].Page)

	found, err := reg.Drop(ctx, sid)
	require.NoError(t, err)
	assert.True(t, found)

	n, err = reg.Count(ctx, sid)
	require.NoError(t, err)
	assert.Zero(t, n)
}
