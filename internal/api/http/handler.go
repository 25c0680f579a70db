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

// Package http PMO agent 的 HTTP 接口层：记忆管理、文件上传、LLM 调用与会话聊天。
package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"pmo-agent/internal/api/http/middleware"
	service "pmo-agent/internal/app"
	"pmo-agent/internal/ingest"
	"pmo-agent/internal/memory"
	pkgerrors "pmo-agent/pkg/errors"
	"pmo-agent/pkg/metrics"
	"pmo-agent/pkg/utils"
)

// Handler HTTP 处理器
type Handler struct {
	llm       *service.LLMService
	store     *memory.Store
	ledger    *memory.Ledger
	extractor *ingest.Extractor
	limits    memory.Limits
	logger    *slog.Logger
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(llm *service.LLMService, store *memory.Store, ledger *memory.Ledger, extractor *ingest.Extractor, limits memory.Limits, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		llm:       llm,
		store:     store,
		ledger:    ledger,
		extractor: extractor,
		limits:    limits.WithDefaults(),
		logger:    logger,
	}
}

// llmRequest /api/llm 请求体
type llmRequest struct {
	Prompt string `json:"prompt"`
}

// chatRequest /api/chat 请求体
type chatRequest struct {
	Message string `json:"message"`
}

// noteRequest /api/memory/notes 请求体
type noteRequest struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "pmo-agent",
	})
}

// CallLLM 记忆增强的单轮生成
// POST /api/llm
func (h *Handler) CallLLM(ctx context.Context, c *app.RequestContext) {
	var req llmRequest
	if err := c.BindJSON(&req); err != nil {
		h.writeError(c, pkgerrors.Validationf("Invalid request payload."))
		return
	}

	text, err := h.llm.GenerateWithMemory(ctx, middleware.SessionKey(c), req.Prompt)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"response": text})
}

// Chat 会话式聊天补全
// POST /api/chat
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindJSON(&req); err != nil {
		h.writeError(c, pkgerrors.Validationf("Invalid request payload."))
		return
	}

	text, err := h.llm.ChatComplete(ctx, middleware.SessionKey(c), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"response": text})
}

// ChatReset 清空当前会话的聊天历史
// POST /api/chat/reset
func (h *Handler) ChatReset(ctx context.Context, c *app.RequestContext) {
	h.ledger.Reset(middleware.SessionKey(c))
	c.JSON(consts.StatusOK, map[string]bool{"ok": true})
}

// Upload 上传文件并抽取文本入库
// POST /api/upload
func (h *Handler) Upload(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, pkgerrors.Validationf("A file upload is required."))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, pkgerrors.Wrap(err, "打开上传文件失败"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.writeError(c, pkgerrors.Wrap(err, "读取上传文件失败"))
		return
	}

	result, err := h.extractor.Extract(fileHeader.Filename, data)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.store.Add(result.Label, result.Text); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("上传文件已入库", "label", result.Label, "chars", utils.RuneLen(result.Text))

	payload := map[string]interface{}{
		"stored_label": result.Label,
		"chars_stored": utils.RuneLen(result.Text),
	}
	if result.CSVPreview != nil {
		payload["csv_preview"] = result.CSVPreview
	}
	c.JSON(consts.StatusOK, payload)
}

// ListMemory 列出当前记忆条目（仅预览）
// GET /api/memory
func (h *Handler) ListMemory(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"items": h.store.List(),
	})
}

// AddNote 添加自由笔记
// POST /api/memory/notes
func (h *Handler) AddNote(ctx context.Context, c *app.RequestContext) {
	var req noteRequest
	if err := c.BindJSON(&req); err != nil {
		h.writeError(c, pkgerrors.Validationf("Invalid request payload."))
		return
	}

	// 超长笔记拒绝而非截断，上传路径才做截断
	if utils.RuneLen(req.Content) > h.limits.MaxContentLength {
		h.writeError(c, pkgerrors.Validationf("Content exceeds maximum length of 10k characters."))
		return
	}

	if err := h.store.Add(req.Label, req.Content); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("手动笔记已入库", "label", req.Label)
	c.JSON(consts.StatusOK, map[string]bool{"ok": true})
}

// ResetMemory 清空文档/笔记存储
// POST /api/memory/reset
func (h *Handler) ResetMemory(ctx context.Context, c *app.RequestContext) {
	h.store.Reset()
	h.logger.Info("记忆存储已清空")
	c.JSON(consts.StatusOK, map[string]bool{"ok": true})
}

// SystemStatus 系统状态
// GET /api/system/status
func (h *Handler) SystemStatus(ctx context.Context, c *app.RequestContext) {
	provider, model := h.llm.ProviderInfo()
	c.JSON(consts.StatusOK, map[string]interface{}{
		"api_service":    "running",
		"llm_configured": h.llm.Configured(),
		"llm_provider":   provider,
		"llm_model":      model,
		"memory_items":   h.store.Len(),
		"timestamp":      time.Now(),
	})
}

// SystemMetrics Prometheus 指标（文本格式）
// GET /api/system/metrics
func (h *Handler) SystemMetrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.writeError(c, pkgerrors.Wrap(err, "收集指标失败"))
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// writeError 统一错误响应：校验/配置错误 400，其余 500
func (h *Handler) writeError(c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	if pkgerrors.IsValidation(err) || errors.Is(err, pkgerrors.ErrMissingConfig) {
		status = consts.StatusBadRequest
	}
	if status >= consts.StatusInternalServerError {
		h.logger.Error("请求处理失败", "error", err)
	} else {
		h.logger.Warn("请求被拒绝", "error", err)
	}
	c.JSON(status, map[string]string{"error": err.Error()})
}
