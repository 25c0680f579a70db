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

package memory

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"pmo-agent/pkg/errors"
	"pmo-agent/pkg/metrics"
	"pmo-agent/pkg/utils"
)

// Ledger 会话聊天账本：session key → 有界消息序列。
// 整个 map 由一把锁串行化；会话条目在首条消息时惰性创建，仅 Reset 显式销毁
type Ledger struct {
	mu       sync.Mutex
	sessions map[string][]Message
	limits   Limits
	logger   *slog.Logger
}

// NewLedger 创建聊天账本；logger 为 nil 时使用 slog 默认
func NewLedger(limits Limits, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		sessions: make(map[string][]Message),
		limits:   limits.WithDefaults(),
		logger:   logger,
	}
}

// Append 追加一条会话消息。session 为空或 role 非法返回 ErrValidation；
// content 去空白后为空是静默 no-op（无事可存，不是错误）；
// 单条超过 ChatMessageChars 截断；超过 ChatStorageLimit 淘汰最旧
func (l *Ledger) Append(sessionKey string, role Role, content string) error {
	if sessionKey == "" {
		return errors.Validationf("session key is required for chat history")
	}
	if !role.Valid() {
		return errors.Validationf("role must be %q or %q", RoleUser, RoleAssistant)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		l.logger.Debug("忽略空消息", "session", sessionKey)
		return nil
	}

	if utils.RuneLen(trimmed) > l.limits.ChatMessageChars {
		l.logger.Debug("截断会话消息", "session", sessionKey, "role", role, "max_chars", l.limits.ChatMessageChars)
		trimmed = utils.TruncateHead(trimmed, l.limits.ChatMessageChars)
	}

	msg := Message{Role: role, Content: trimmed, Timestamp: time.Now().UTC()}

	l.mu.Lock()
	history := append(l.sessions[sessionKey], msg)
	evicted := 0
	if len(history) > l.limits.ChatStorageLimit {
		evicted = len(history) - l.limits.ChatStorageLimit
		history = history[evicted:]
	}
	l.sessions[sessionKey] = history
	l.mu.Unlock()

	metrics.ChatMessagesTotal.WithLabelValues(string(role)).Inc()
	if evicted > 0 {
		metrics.MemoryEvictions.WithLabelValues("chat").Add(float64(evicted))
		l.logger.Info("淘汰最旧会话消息", "session", sessionKey, "evicted", evicted)
	}
	return nil
}

// Recent 返回会话最近消息窗口：从最新往旧累计，直到消息数达到 maxMessages
// 或字符预算 maxChars 用尽；只部分放得下的边界消息按 Boundary 策略截断后停止收录。
// 返回按时间正序（窗口内最旧在前）
func (l *Ledger) Recent(sessionKey string, maxChars, maxMessages int) []Message {
	if sessionKey == "" {
		return nil
	}

	l.mu.Lock()
	stored := l.sessions[sessionKey]
	history := make([]Message, len(stored))
	copy(history, stored)
	l.mu.Unlock()

	if len(history) == 0 {
		return nil
	}

	collected := make([]Message, 0, len(history))
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		if len(collected) >= maxMessages {
			break
		}
		available := maxChars - used
		if available <= 0 {
			break
		}

		msg := history[i]
		if utils.RuneLen(msg.Content) > available {
			if l.limits.Boundary == TruncateKeepHead {
				msg.Content = utils.TruncateHead(msg.Content, available)
			} else {
				msg.Content = utils.TruncateTail(msg.Content, available)
			}
		}
		collected = append(collected, msg)
		used += utils.RuneLen(msg.Content)
	}

	// 走向是新→旧，反转回时间正序
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

// Len 某会话当前存量消息数
func (l *Ledger) Len(sessionKey string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions[sessionKey])
}

// Reset 删除该会话的全部历史；不存在时 no-op
func (l *Ledger) Reset(sessionKey string) {
	if sessionKey == "" {
		return
	}

	l.mu.Lock()
	_, existed := l.sessions[sessionKey]
	delete(l.sessions, sessionKey)
	l.mu.Unlock()

	if existed {
		l.logger.Info("会话历史已重置", "session", sessionKey)
	}
}
