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

// Package memory 进程内上下文记忆：有界条目存储、会话聊天账本与上下文合成。
// 所有预算按字符（rune）计，作为 LLM token 上限的近似；进程重启即失忆，不做持久化。
package memory

import (
	"time"
)

// 各结构的默认容量；可经 Limits 覆盖
const (
	DefaultMaxItems         = 20
	DefaultMaxContentLength = 10_000
	DefaultPreviewLength    = 160

	DefaultChatMessageLimit = 40
	DefaultChatStorageLimit = 100
	DefaultChatMaxChars     = 12_000
	DefaultChatMessageChars = 4_000

	DefaultDocContextChars  = 6_000
	DefaultDocSnippetLength = 600
	DefaultTotalPromptLimit = 20_000
)

// Role 聊天消息角色（封闭集合）
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 判断角色是否在允许集合内
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Item 一条记忆条目（上传文档或笔记），入库后不可变
type Item struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// ItemView 列表视图：label + 预览
type ItemView struct {
	Label   string `json:"label"`
	Preview string `json:"preview"`
}

// Message 会话消息
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TruncatePolicy 边界消息只部分放得下时的截断侧
type TruncatePolicy string

const (
	// TruncateKeepTail 保留最近的字符（默认；被截断的是最旧一条仍被收录的消息的开头）
	TruncateKeepTail TruncatePolicy = "tail"
	// TruncateKeepHead 保留开头字符
	TruncateKeepHead TruncatePolicy = "head"
)

// Limits 记忆子系统的容量与预算；零值字段使用默认
type Limits struct {
	MaxItems         int
	MaxContentLength int
	PreviewLength    int

	ChatMessageLimit int
	ChatStorageLimit int
	ChatMaxChars     int
	ChatMessageChars int

	DocContextChars  int
	DocSnippetLength int
	TotalPromptLimit int

	Boundary TruncatePolicy
}

// WithDefaults 填充零值字段
func (l Limits) WithDefaults() Limits {
	if l.MaxItems <= 0 {
		l.MaxItems = DefaultMaxItems
	}
	if l.MaxContentLength <= 0 {
		l.MaxContentLength = DefaultMaxContentLength
	}
	if l.PreviewLength <= 0 {
		l.PreviewLength = DefaultPreviewLength
	}
	if l.ChatMessageLimit <= 0 {
		l.ChatMessageLimit = DefaultChatMessageLimit
	}
	if l.ChatStorageLimit <= 0 {
		l.ChatStorageLimit = DefaultChatStorageLimit
	}
	if l.ChatMaxChars <= 0 {
		l.ChatMaxChars = DefaultChatMaxChars
	}
	if l.ChatMessageChars <= 0 {
		l.ChatMessageChars = DefaultChatMessageChars
	}
	if l.DocContextChars <= 0 {
		l.DocContextChars = DefaultDocContextChars
	}
	if l.DocSnippetLength <= 0 {
		l.DocSnippetLength = DefaultDocSnippetLength
	}
	if l.TotalPromptLimit <= 0 {
		l.TotalPromptLimit = DefaultTotalPromptLimit
	}
	if l.Boundary != TruncateKeepHead {
		l.Boundary = TruncateKeepTail
	}
	return l
}

// DefaultLimits 返回全部默认
func DefaultLimits() Limits {
	return Limits{}.WithDefaults()
}
