package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyerfyer/stockplan-extract/internal/section"
)

// 段落解析结果的缓存键类别
const documentKind = "doc"

// DocumentCache 按文件内容缓存段落解析结果
// 重复的输入文件不需要再次解码和重建版面
type DocumentCache struct {
	cache Cache
	ttl   time.Duration
}

// NewDocumentCache 创建段落解析结果缓存
func NewDocumentCache(c Cache, ttl time.Duration) *DocumentCache {
	return &DocumentCache{cache: c, ttl: ttl}
}

// Get 查找与data内容相同的文件的解析结果
func (d *DocumentCache) Get(data []byte) (section.Document, bool, error) {
	value, found, err := d.cache.Get(ContentKey(documentKind, data))
	if err != nil || !found {
		return section.Document{}, false, err
	}

	var doc section.Document
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return section.Document{}, false, fmt.Errorf("failed to decode cached document: %w", err)
	}
	return doc, true, nil
}

// Put 保存解析结果
func (d *DocumentCache) Put(data []byte, doc section.Document) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return d.cache.Set(ContentKey(documentKind, data), string(value), d.ttl)
}
