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
	"fmt"
	"log/slog"
	"strings"

	"pmo-agent/pkg/utils"
)

// 合成 prompt 的固定文案
const (
	promptHeader = "### USER PROMPT"
	chatHeader   = "### CONTEXT: PRIOR CHAT"
	docHeader    = "### CONTEXT: NOTES & DOCS"
	divider      = "---"

	// 聊天段之外为 header 等预留的小额空间
	chatHeaderReserve = 64
)

// Composer 上下文合成器：把用户 prompt、会话窗口与文档快照按预算合成一个
// 不超过 TotalPromptLimit 字符的字符串。优先级：prompt（硬底线，永不截断）→
// 聊天 → 文档。自身不持锁；账本/存储的读取即快照，组装是纯函数，
// 相同输入产出字节级一致的结果
type Composer struct {
	ledger *Ledger
	limits Limits
	logger *slog.Logger
}

// NewComposer 创建上下文合成器；logger 为 nil 时使用 slog 默认
func NewComposer(ledger *Ledger, limits Limits, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		ledger: ledger,
		limits: limits.WithDefaults(),
		logger: logger,
	}
}

// Compose 合成最终 prompt。docItems 应为 Store.Items() 的快照（最新在前）
func (c *Composer) Compose(sessionKey, userPrompt string, docItems []Item) string {
	promptSection := promptHeader + "\n" + userPrompt

	// 拼接处是 "\n\n---\n"，divider 前后共 3 个换行
	available := c.limits.TotalPromptLimit - utils.RuneLen(promptSection) - utils.RuneLen(divider) - 3
	if available <= 0 {
		c.logger.Debug("prompt 已超总预算，仅返回 prompt 段")
		return promptSection
	}

	chatBudget := available - chatHeaderReserve
	if chatBudget < 0 {
		chatBudget = 0
	}
	var messages []Message
	if chatBudget > 0 && sessionKey != "" {
		fetchChars := c.limits.ChatMaxChars
		if chatBudget < fetchChars {
			fetchChars = chatBudget
		}
		messages = c.ledger.Recent(sessionKey, fetchChars, c.limits.ChatMessageLimit)
	}

	var sections []string

	chatBlock := buildChatBlock(messages)
	if chatBlock != "" {
		if chatLen := utils.RuneLen(chatBlock); chatLen <= available {
			sections = append(sections, chatBlock)
			available -= chatLen + 2
		} else {
			// 即便逐条截断后仍超预算时整段丢弃，不做半截收录
			c.logger.Debug("聊天上下文超预算，整段丢弃")
		}
	}

	if available > 0 && len(docItems) > 0 {
		docBudget := c.limits.DocContextChars
		if available < docBudget {
			docBudget = available
		}
		docBlock := buildDocBlock(docItems, docBudget, c.limits.DocSnippetLength)
		if docBlock != "" {
			sections = append(sections, docBlock)
		}
	}

	if len(sections) == 0 {
		c.logger.Debug("无可用上下文，仅返回 prompt 段")
		return promptSection
	}

	final := strings.Join(sections, "\n\n") + "\n\n" + divider + "\n" + promptSection
	c.logger.Info("合成复合 prompt",
		"chat", chatBlock != "",
		"docs", len(sections) > 0 && strings.HasPrefix(sections[len(sections)-1], docHeader),
		"total_chars", utils.RuneLen(final),
	)
	return final
}

// buildChatBlock 渲染聊天段：最新在前，一行一条
func buildChatBlock(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(messages)+1)
	lines = append(lines, chatHeader)
	for i := len(messages) - 1; i >= 0; i-- {
		lines = append(lines, fmt.Sprintf("- role: %s -> %s", messages[i].Role, messages[i].Content))
	}
	return strings.Join(lines, "\n")
}

// buildDocBlock 渲染文档段：一行一条 label: snippet，预算用尽即停；
// 连首条都放不下时整段省略（不输出空 header）
func buildDocBlock(items []Item, budget, snippetLength int) string {
	if budget <= utils.RuneLen(docHeader) {
		return ""
	}

	lines := []string{docHeader}
	remaining := budget - utils.RuneLen(docHeader) - 1 // header 后换行占一格

	for _, item := range items {
		if remaining <= 0 {
			break
		}
		if item.Content == "" {
			continue
		}

		limit := snippetLength
		if remaining < limit {
			limit = remaining
		}
		snippet := utils.TruncateHead(item.Content, limit)
		line := item.Label + ": " + snippet

		if utils.RuneLen(line) > remaining {
			avail := remaining - utils.RuneLen(item.Label) - 2
			if avail <= 0 {
				break
			}
			snippet = utils.TruncateHead(snippet, avail)
			if snippet == "" {
				break
			}
			line = item.Label + ": " + snippet
		}

		lines = append(lines, line)
		remaining -= utils.RuneLen(line) + 1 // 换行占一格
	}

	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}
