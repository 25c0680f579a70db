// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ingest 负责上传文件的文本抽取：txt/md 直读，csv 解析并生成预览，
// docx/pdf 提取正文。抽取结果交给 memory 存储。
package ingest

import (
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pkgerrors "pmo-agent/pkg/errors"
)

// DefaultMaxFileSize 上传文件大小上限
const DefaultMaxFileSize = 1 * 1024 * 1024 // 1 MB

// DefaultCSVPreviewRows CSV 预览行数上限
const DefaultCSVPreviewRows = 50

// LabelPrefix 入库条目的标签前缀
const LabelPrefix = "doc:"

// CSVPreview CSV 文件的表格预览
type CSVPreview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Result 抽取结果
type Result struct {
	Label      string      // 建议的存储标签，形如 doc:<文件名>
	Text       string      // 抽取出的正文
	CSVPreview *CSVPreview // 仅 CSV 文件有值
}

// Extractor 按扩展名分发的文本抽取器
type Extractor struct {
	maxFileSize int64
	previewRows int
	logger      *slog.Logger
}

// NewExtractor 创建抽取器；maxFileSize/previewRows 为 0 时用默认值
func NewExtractor(maxFileSize int64, previewRows int, logger *slog.Logger) *Extractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if previewRows <= 0 {
		previewRows = DefaultCSVPreviewRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxFileSize: maxFileSize, previewRows: previewRows, logger: logger}
}

// Extract 校验上传文件并抽取正文。校验失败返回 ErrValidation 族错误
func (e *Extractor) Extract(filename string, data []byte) (*Result, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, pkgerrors.Validationf("Filename is required.")
	}

	ext := extension(filename)
	if !allowedExtension(ext) {
		return nil, pkgerrors.Validationf("Unsupported file type. Allowed: txt, md, csv, docx, pdf.")
	}

	if int64(len(data)) > e.maxFileSize {
		return nil, pkgerrors.Validationf("File too large. Limit is 1 MB.")
	}
	if len(data) == 0 {
		return nil, pkgerrors.Validationf("Uploaded file is empty.")
	}

	e.logger.Debug("提取上传文件文本", "filename", filename, "bytes", len(data))

	result := &Result{Label: LabelPrefix + filepath.Base(filename)}

	var err error
	switch ext {
	case "txt", "md":
		result.Text, err = decodeUTF8(data)
	case "csv":
		result.Text, result.CSVPreview, err = parseCSV(data, e.previewRows)
	case "docx":
		result.Text, err = extractDocxText(data)
	case "pdf":
		result.Text, err = extractPDFText(data)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// extension 取小写扩展名（不含点）
func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func allowedExtension(ext string) bool {
	switch ext {
	case "txt", "md", "csv", "docx", "pdf":
		return true
	}
	return false
}

// decodeUTF8 将字节流作为 UTF-8 文本读出，非法编码拒绝
func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", pkgerrors.Validationf("Unable to decode file as UTF-8.")
	}
	return string(data), nil
}
