package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	for _, name := range names {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("content of "+name), 0o644))
	}
}

func readAll(t *testing.T, r io.ReadCloser) string {
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, "b.pdf", "a.pdf", "notes.md", "2024/c.PDF")

	s, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	t.Run("List", func(t *testing.T) {
		files, err := s.List(ctx)
		require.NoError(t, err)

		var paths []string
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{"2024/c.PDF", "a.pdf", "b.pdf", "notes.md"}, paths)
		assert.Equal(t, "application/pdf", files[1].MimeType)
		assert.Equal(t, "a", files[1].ID)
	})

	t.Run("Discover", func(t *testing.T) {
		files, err := Discover(ctx, s, isPDF)
		require.NoError(t, err)
		require.Len(t, files, 3)
		assert.Equal(t, "2024/c.PDF", files[0].Path)
		assert.Equal(t, "b.pdf", files[2].Path)
	})

	t.Run("Get", func(t *testing.T) {
		r, err := s.Get(ctx, "a.pdf")
		require.NoError(t, err)
		assert.Equal(t, "content of a.pdf", readAll(t, r))

		_, err = s.Get(ctx, "missing.pdf")
		assert.Error(t, err)
	})

	t.Run("RejectsEscapingPath", func(t *testing.T) {
		_, err := s.Get(ctx, "../outside.pdf")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("SaveExistsDelete", func(t *testing.T) {
		info, err := s.Save(ctx, strings.NewReader("uploaded"), "confirmation.pdf")
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "confirmation.pdf", info.Name)
		assert.Equal(t, int64(len("uploaded")), info.Size)
		assert.True(t, strings.HasPrefix(info.Path, "uploads/"))

		exists, err := s.Exists(ctx, info.Path)
		require.NoError(t, err)
		assert.True(t, exists)

		r, err := s.Get(ctx, info.Path)
		require.NoError(t, err)
		assert.Equal(t, "uploaded", readAll(t, r))

		require.NoError(t, s.Delete(ctx, info.Path))
		exists, err = s.Exists(ctx, info.Path)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestNewLocalStorage_MissingDirectory(t *testing.T) {
	_, err := NewLocalStorage(LocalConfig{Path: filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestDiscover_Empty(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	files, err := Discover(context.Background(), s, isPDF)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// partialStorage List时报告部分条目无法读取
type partialStorage struct {
	Storage
}

func (s *partialStorage) List(ctx context.Context) ([]FileInfo, error) {
	files, err := s.Storage.List(ctx)
	if err != nil {
		return nil, err
	}
	return files, &SkippedError{Paths: []string{"locked"}, Errs: []error{os.ErrPermission}}
}

func TestDiscover_SkippedEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0644))
	local, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	files, err := Discover(context.Background(), &partialStorage{Storage: local}, isPDF)
	var skipped *SkippedError
	require.ErrorAs(t, err, &skipped)
	assert.Equal(t, []string{"locked"}, skipped.Paths)
	assert.ErrorIs(t, err, os.ErrPermission)
	require.Len(t, files, 1)
	assert.Equal(t, "a.pdf", files[0].Name)
}

// TestStorageFactory 测试存储工厂函数
func TestStorageFactory(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Config{Type: "local", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(ctx, Config{Type: "ftp"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Type: "gcs"})
	assert.Error(t, err)
}

// TestMinioStorage 需要可用的MinIO服务，通过MINIO_TEST_ENDPOINT指定
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping MinIO tests")
	}
	ctx := context.Background()

	s, err := NewMinioStorage(ctx, MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "stockplan-test",
		Prefix:    "test",
	})
	require.NoError(t, err)

	info, err := s.Save(ctx, strings.NewReader("minio content"), "release.pdf")
	require.NoError(t, err)
	defer s.Delete(ctx, info.Path)

	files, err := Discover(ctx, s, isPDF)
	require.NoError(t, err)
	assert.NotEmpty(t, files)

	r, err := s.Get(ctx, info.Path)
	require.NoError(t, err)
	assert.Equal(t, "minio content", readAll(t, r))

	exists, err := s.Exists(ctx, "test/missing.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
