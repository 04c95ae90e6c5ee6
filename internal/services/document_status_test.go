package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/database"
	"github.com/fyerfyer/stockplan-extract/internal/models"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库环境
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.AutoMigrate(db), "Failed to run migrations")

	originalDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		database.DB = originalDB
	})

	return db
}

func newStatusManager(t *testing.T) *DocumentStatusManager {
	setupTestDB(t)
	return NewDocumentStatusManager(repository.NewRecordRepository(), testLogger())
}

func uploadedRecord(id string) *models.DocumentRecord {
	return &models.DocumentRecord{
		ID:       id,
		FileName: id + ".pdf",
		FilePath: "uploads/" + id + ".pdf",
		FileSize: 1024,
	}
}

func TestDocumentStatusManager_BasicFlow(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	t.Run("mark as uploaded", func(t *testing.T) {
		require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord("doc-1")))

		status, err := m.GetStatus(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusUploaded, status)

		doc, err := m.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "doc-1.pdf", doc.FileName)
		assert.Equal(t, int64(1024), doc.FileSize)
	})

	t.Run("mark as processing", func(t *testing.T) {
		require.NoError(t, m.MarkAsProcessing(ctx, "doc-1"))

		doc, err := m.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusProcessing, doc.Status)
		assert.Equal(t, models.StageDecoding, doc.CurrentStage)
	})

	t.Run("mark as finished", func(t *testing.T) {
		srv := NewExtractionService(nil, WithLogger(testLogger()))
		o := srv.Process("doc-1.txt", []byte(rsuLayout))
		require.NoError(t, m.MarkAsFinished(ctx, "doc-1", o))

		doc, err := m.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusCompleted, doc.Status)
		assert.Equal(t, "rsu", doc.Kind)
		assert.Equal(t, models.StageCompleted, doc.CurrentStage)
		assert.NotNil(t, doc.ProcessedAt)
		assert.Contains(t, string(doc.Fields), "Release Summary")
		assert.Contains(t, string(doc.Row), "01/15/2020")
	})
}

func TestDocumentStatusManager_FailureFlow(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord("doc-1")))
	require.NoError(t, m.MarkAsProcessing(ctx, "doc-1"))
	require.NoError(t, m.MarkAsFailed(ctx, "doc-1", "decode failed"))

	doc, err := m.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, doc.Status)
	assert.Equal(t, "decode failed", doc.Error)

	// 失败的文档允许重新处理，错误信息被清除
	require.NoError(t, m.MarkAsProcessing(ctx, "doc-1"))
	doc, err = m.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusProcessing, doc.Status)
	assert.Empty(t, doc.Error)
}

func TestDocumentStatusManager_FinishedWithFailure(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord("doc-1")))
	o := NewExtractionService(nil, WithLogger(testLogger())).Process("doc-1.txt", []byte(incompleteLayout))
	require.NoError(t, m.MarkAsFinished(ctx, "doc-1", o))

	doc, err := m.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "missing")
	assert.Contains(t, []string{"", "null"}, string(doc.Row))
}

func TestDocumentStatusManager_InvalidTransitions(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord("doc-1")))
	o := NewExtractionService(nil, WithLogger(testLogger())).Process("doc-1.txt", []byte(rsuLayout))
	require.NoError(t, m.MarkAsFinished(ctx, "doc-1", o))

	err := m.MarkAsProcessing(ctx, "doc-1")
	assert.ErrorIs(t, err, models.ErrInvalidDocumentStatus)

	err = m.MarkAsProcessing(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestDocumentStatusManager_ReprocessAfterInterruptedAttempt(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord("doc-1")))
	require.NoError(t, m.MarkAsProcessing(ctx, "doc-1"))

	// 上一次尝试停在处理中，重试必须能够重新进入
	require.NoError(t, m.MarkAsProcessing(ctx, "doc-1"))
	o := NewExtractionService(nil, WithLogger(testLogger())).Process("doc-1.txt", []byte(rsuLayout))
	require.NoError(t, m.MarkAsFinished(ctx, "doc-1", o))

	status, err := m.GetStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCompleted, status)
}

func TestDocumentStatusManager_ValidateStateTransition(t *testing.T) {
	m := NewDocumentStatusManager(nil, nil)

	tests := []struct {
		from, to models.DocumentStatus
		ok       bool
	}{
		{models.DocStatusUploaded, models.DocStatusProcessing, true},
		{models.DocStatusUploaded, models.DocStatusUnrecognized, true},
		{models.DocStatusProcessing, models.DocStatusCompleted, true},
		{models.DocStatusProcessing, models.DocStatusProcessing, true},
		{models.DocStatusProcessing, models.DocStatusUploaded, false},
		{models.DocStatusCompleted, models.DocStatusProcessing, false},
		{models.DocStatusUnrecognized, models.DocStatusProcessing, true},
		{models.DocStatusFailed, models.DocStatusProcessing, true},
		{models.DocStatusFailed, models.DocStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s to %s", tt.from, tt.to), func(t *testing.T) {
			err := m.ValidateStateTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidDocumentStatus)
			}
		})
	}
}

func TestDocumentStatusManager_ListAndDelete(t *testing.T) {
	m := newStatusManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.MarkAsUploaded(ctx, uploadedRecord(fmt.Sprintf("doc-%d", i))))
	}
	require.NoError(t, m.MarkAsFailed(ctx, "doc-2", "boom"))

	docs, total, err := m.ListDocuments(ctx, 0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, docs, 3)

	docs, total, err = m.ListDocuments(ctx, 0, 10, map[string]interface{}{"status": models.DocStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)

	require.NoError(t, m.DeleteDocument(ctx, "doc-0"))
	_, err = m.GetDocument(ctx, "doc-0")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}
