package models

import "errors"

var (
	// ErrDocumentNotFound 文档记录不存在
	ErrDocumentNotFound = errors.New("document not found")

	// ErrRunNotFound 批处理记录不存在
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidDocumentStatus 无效的文档状态
	ErrInvalidDocumentStatus = errors.New("invalid document status")

	// ErrDiscovery 输入文件枚举失败
	ErrDiscovery = errors.New("discovery failed")

	// ErrDecode PDF解码失败
	ErrDecode = errors.New("decode failed")

	// ErrLayoutWrite 版面文本写入失败
	ErrLayoutWrite = errors.New("layout write failed")

	// ErrIncompleteRecord 文档缺少输出所需的字段
	ErrIncompleteRecord = errors.New("incomplete record")

	// ErrUnsupportedFile 不支持的文件类型
	ErrUnsupportedFile = errors.New("unsupported file type")
)
