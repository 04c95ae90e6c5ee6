package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/stockplan-extract/api/handler"
	"github.com/fyerfyer/stockplan-extract/api/model"
	"github.com/fyerfyer/stockplan-extract/internal/database"
	"github.com/fyerfyer/stockplan-extract/internal/repository"
	"github.com/fyerfyer/stockplan-extract/internal/services"
	"github.com/fyerfyer/stockplan-extract/pkg/storage"
	"github.com/fyerfyer/stockplan-extract/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const releaseLayout = "EMPLOYEE STOCK PLAN RELEASE CONFIRMATION\n\n" +
	"Release Summary\n" +
	"Award Date\t01/15/2020\n" +
	"Release Date\t02/15/2021\n" +
	"Shares Released\t100.0000\n" +
	"Market Value Per Share\t$150.00\n" +
	"Sale Price Per Share\t$149.50\n\n" +
	"Calculation of Gain\n" +
	"Market Value\t$15,000.00\n\n" +
	"Stock Distribution\n" +
	"Shares Sold\t40.0000\n" +
	"Shares Issued\t60.0000\n\n" +
	"Cash Distribution\n" +
	"Total Sale Price\t$5,980.00\n" +
	"Total Tax\t$5,900.00\n" +
	"Fee\t$0.10\n" +
	"Total Due Participant\t$79.90\n"

// 测试环境
type testEnv struct {
	Router  *gin.Engine
	Service *services.DocumentService
	Queue   *taskqueue.RedisQueue
}

// setupTestEnv 创建测试环境，async为true时上传的文档进入任务队列
func setupTestEnv(t *testing.T, async bool) *testEnv {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	originalDB := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = originalDB })

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	env := &testEnv{}
	extractor := services.NewExtractionService(fileStorage)
	var opts []services.DocumentOption
	if async {
		mr := miniredis.RunT(t)
		cfg := taskqueue.DefaultConfig()
		cfg.RedisAddr = mr.Addr()
		env.Queue, err = taskqueue.NewRedisQueue(cfg, nil)
		require.NoError(t, err)
		t.Cleanup(func() { env.Queue.Close() })
		opts = append(opts, services.WithTaskQueue(env.Queue))
	}

	env.Service = services.NewDocumentService(extractor, repository.NewRecordRepository(), opts...)

	var taskHandler *handler.TaskHandler
	if env.Queue != nil {
		taskHandler = handler.NewTaskHandler(env.Queue)
	}
	env.Router = SetupRouter(handler.NewDocumentHandler(env.Service), taskHandler)
	return env
}

// uploadRequest 构造multipart上传请求
func uploadRequest(t *testing.T, filename, content string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

// decodeData 解析通用响应并将data字段解码到v
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) model.Response {
	var resp struct {
		model.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.Response
}

func uploadRelease(t *testing.T, env *testEnv) model.DocumentUploadResponse {
	w := serve(env, uploadRequest(t, "release.txt", releaseLayout))
	require.Contains(t, []int{http.StatusOK, http.StatusAccepted}, w.Code, w.Body.String())

	var upload model.DocumentUploadResponse
	resp := decodeData(t, w, &upload)
	assert.Equal(t, 0, resp.Code)
	return upload
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestDocumentUpload(t *testing.T) {
	env := setupTestEnv(t, false)

	upload := uploadRelease(t, env)
	assert.NotEmpty(t, upload.FileID)
	assert.Equal(t, "release.txt", upload.FileName)
	assert.Equal(t, "completed", upload.Status)
	assert.Equal(t, "rsu", upload.Kind)
}

func TestDocumentUploadValidation(t *testing.T) {
	env := setupTestEnv(t, false)

	t.Run("unsupported type", func(t *testing.T) {
		w := serve(env, uploadRequest(t, "notes.docx", "x"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeData(t, w, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.NotEmpty(t, resp.TraceID)
	})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := serve(env, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentGet(t *testing.T) {
	env := setupTestEnv(t, false)
	upload := uploadRelease(t, env)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+upload.FileID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc model.DocumentResponse
	decodeData(t, w, &doc)
	assert.Equal(t, upload.FileID, doc.FileID)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, "$79.90", doc.Fields["Cash Distribution"]["Total Due Participant"])
	require.Len(t, doc.Row, 12)
	assert.Equal(t, "01/15/2020", doc.Row[0])
	assert.NotNil(t, doc.ProcessedAt)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentList(t *testing.T) {
	env := setupTestEnv(t, false)
	uploadRelease(t, env)
	uploadRelease(t, env)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents?page=1&page_size=1&kind=rsu", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list model.DocumentListResponse
	decodeData(t, w, &list)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, 1, list.PageSize)
	assert.Len(t, list.Documents, 1)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentDelete(t *testing.T) {
	env := setupTestEnv(t, false)
	upload := uploadRelease(t, env)

	w := serve(env, httptest.NewRequest(http.MethodDelete, "/api/documents/"+upload.FileID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var deleted model.DocumentDeleteResponse
	decodeData(t, w, &deleted)
	assert.True(t, deleted.Success)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+upload.FileID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	env := setupTestEnv(t, false)
	uploadRelease(t, env)

	t.Run("csv", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/export?kind=rsu&format=csv", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

		lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Award Date,"))
		assert.True(t, strings.HasPrefix(lines[1], "01/15/2020,"))
	})

	t.Run("markdown", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/export?format=markdown", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "| Award Date |")
	})

	t.Run("html", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/export?format=html", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<table>")
	})

	t.Run("invalid", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/export?format=xlsx", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = serve(env, httptest.NewRequest(http.MethodGet, "/api/export?kind=unknown", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAsyncUploadAndTasks(t *testing.T) {
	env := setupTestEnv(t, true)

	w := serve(env, uploadRequest(t, "release.txt", releaseLayout))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var upload model.DocumentUploadResponse
	decodeData(t, w, &upload)
	assert.Equal(t, "uploaded", upload.Status)
	require.NotEmpty(t, upload.TaskID)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/"+upload.TaskID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var task model.TaskResponse
	decodeData(t, w, &task)
	assert.Equal(t, upload.FileID, task.DocumentID)
	assert.Equal(t, string(taskqueue.StatusPending), task.Status)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+upload.FileID+"/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var tasks struct {
		DocumentID string               `json:"document_id"`
		Tasks      []model.TaskResponse `json:"tasks"`
	}
	decodeData(t, w, &tasks)
	require.Len(t, tasks.Tasks, 1)
	assert.Equal(t, upload.TaskID, tasks.Tasks[0].ID)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
