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

	"pmo-agent/pkg/errors"
	"pmo-agent/pkg/metrics"
	"pmo-agent/pkg/utils"
)

// Store 有界条目存储：最新在前，超过 MaxItems 淘汰最旧（map + mutex 同款单锁策略）。
// 由 Bootstrap 构造注入，不做包级单例
type Store struct {
	mu     sync.Mutex
	items  []Item // 最新在前
	limits Limits
	logger *slog.Logger
}

// NewStore 创建条目存储；logger 为 nil 时使用 slog 默认
func NewStore(limits Limits, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		limits: limits.WithDefaults(),
		logger: logger,
	}
}

// Add 写入一条条目。label 为空或 content 去空白后为空返回 ErrValidation；
// 超长 content 静默截断到 MaxContentLength
func (s *Store) Add(label, content string) error {
	if label == "" {
		return errors.Validationf("label must be provided for memory entries")
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.Validationf("content must be a non-empty string")
	}

	if utils.RuneLen(trimmed) > s.limits.MaxContentLength {
		s.logger.Debug("截断条目内容", "label", label, "max_chars", s.limits.MaxContentLength)
		trimmed = utils.TruncateHead(trimmed, s.limits.MaxContentLength)
	}

	item := Item{Label: label, Content: trimmed}

	s.mu.Lock()
	s.items = append([]Item{item}, s.items...)
	var dropped *Item
	if len(s.items) > s.limits.MaxItems {
		d := s.items[len(s.items)-1]
		dropped = &d
		s.items = s.items[:len(s.items)-1]
	}
	size := len(s.items)
	s.mu.Unlock()

	metrics.MemoryItems.Set(float64(size))
	if dropped != nil {
		metrics.MemoryEvictions.WithLabelValues("item").Inc()
		s.logger.Info("记忆容量已满，淘汰最旧条目", "dropped_label", dropped.Label)
	}
	s.logger.Info("写入记忆条目", "label", label, "chars", utils.RuneLen(trimmed))
	return nil
}

// List 返回 label + 预览的快照（最新在前）；预览超过 PreviewLength 时截断并追加省略号
func (s *Store) List() []ItemView {
	s.mu.Lock()
	snapshot := make([]Item, len(s.items))
	copy(snapshot, s.items)
	s.mu.Unlock()

	views := make([]ItemView, len(snapshot))
	for i, item := range snapshot {
		preview := item.Content
		if utils.RuneLen(preview) > s.limits.PreviewLength {
			preview = utils.TruncateHead(preview, s.limits.PreviewLength) + "…"
		}
		views[i] = ItemView{Label: item.Label, Preview: preview}
	}
	return views
}

// Items 返回全量内容快照（最新在前），供上下文合成使用
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Item, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// Len 当前条目数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Reset 原子清空（幂等）
func (s *Store) Reset() {
	s.mu.Lock()
	count := len(s.items)
	s.items = nil
	s.mu.Unlock()

	metrics.MemoryItems.Set(0)
	s.logger.Info("记忆已重置", "removed", count)
}
