package handler

import (
	"bytes"
	"net/http"

	"github.com/fyerfyer/stockplan-extract/api/middleware"
	"github.com/fyerfyer/stockplan-extract/api/model"
	"github.com/fyerfyer/stockplan-extract/internal/document"
	"github.com/fyerfyer/stockplan-extract/internal/export"
	"github.com/fyerfyer/stockplan-extract/internal/logging"
	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/fyerfyer/stockplan-extract/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理文档相关的API请求
type DocumentHandler struct {
	documentService *services.DocumentService // 文档服务
	logger          *logrus.Logger            // 日志记录器
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logging.GetLogger(),
	}
}

// UploadDocument 处理文档上传请求
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid upload request", err.Error()))
		return
	}

	filename := req.File.Filename
	if !document.Supported(filename) {
		middleware.HandleError(c, middleware.NewValidationError("unsupported file type, only .pdf and .txt are accepted"))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithError(err).WithField(logging.FieldFile, filename).Error("Failed to open uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("failed to open uploaded file"))
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), file, filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file_id":         doc.ID,
		logging.FieldFile: doc.FileName,
		"status":          doc.Status,
	}).Info("Document uploaded")

	resp := model.DocumentUploadResponse{
		FileID:   doc.ID,
		FileName: doc.FileName,
		Status:   string(doc.Status),
		Kind:     doc.Kind,
		TaskID:   doc.TaskID,
		Error:    doc.Error,
	}

	status := http.StatusOK
	if h.documentService.AsyncEnabled() {
		status = http.StatusAccepted
	}
	c.JSON(status, model.NewSuccessResponse(resp))
}

// GetDocument 获取文档处理状态和提取结果
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document id"))
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewDocumentResponse(doc)))
}

// ListDocuments 获取文档列表
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req model.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid query parameters", err.Error()))
		return
	}

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.Kind != "" {
		filters["kind"] = req.Kind
	}
	if req.RunID != "" {
		filters["run_id"] = req.RunID
	}
	if req.FileName != "" {
		filters["file_name"] = req.FileName
	}

	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), req.Offset(), req.GetPageSize(), filters)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := model.DocumentListResponse{
		Total:     total,
		Page:      req.GetPage(),
		PageSize:  req.GetPageSize(),
		Documents: make([]model.DocumentResponse, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, model.NewDocumentResponse(doc))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteDocument 删除文档
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document id"))
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), req.ID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithField("file_id", req.ID).Info("Document deleted")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{
		Success: true,
		FileID:  req.ID,
	}))
}

// 输出格式对应的Content-Type
var contentTypes = map[export.Format]string{
	export.FormatCSV:      "text/csv; charset=utf-8",
	export.FormatMarkdown: "text/markdown; charset=utf-8",
	export.FormatHTML:     "text/html; charset=utf-8",
}

// ExportRecords 导出已完成的记录
// GET /api/export?kind=rsu&format=csv
func (h *DocumentHandler) ExportRecords(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid export parameters", err.Error()))
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError(err.Error()))
		return
	}

	var kinds []section.Kind
	if req.Kind != "" {
		kind, err := section.ParseKind(req.Kind)
		if err != nil {
			middleware.HandleError(c, middleware.NewValidationError(err.Error()))
			return
		}
		kinds = append(kinds, kind)
	}

	var buf bytes.Buffer
	if err := h.documentService.Export(c.Request.Context(), &buf, format, kinds...); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}
