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

package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pmo-agent/internal/memory"
	"pmo-agent/internal/model/llm"
	"pmo-agent/internal/prompt"
	pkgerrors "pmo-agent/pkg/errors"
	"pmo-agent/pkg/metrics"
	"pmo-agent/pkg/utils"
)

// LLMService 面向 HTTP 层的 LLM 编排：记忆合成 prompt、调用模型、回写会话账目
type LLMService struct {
	client   llm.Client
	store    *memory.Store
	ledger   *memory.Ledger
	composer *memory.Composer
	persona  *prompt.Provider
	limits   memory.Limits
	logger   *slog.Logger
}

// NewLLMService 创建 LLM 编排服务；client 可为 nil（未配置 API Key），调用时报配置错误
func NewLLMService(client llm.Client, b *Bootstrap) *LLMService {
	return &LLMService{
		client:   client,
		store:    b.Store,
		ledger:   b.Ledger,
		composer: b.Composer,
		persona:  b.Persona,
		limits:   MemoryLimits(b.Config).WithDefaults(),
		logger:   b.Logger.Logger,
	}
}

// GenerateWithMemory 用记忆（历史会话 + 文档/笔记）合成最终 prompt 并调用模型。
// 成功后把本轮 user/assistant 消息记入会话账目
func (s *LLMService) GenerateWithMemory(ctx context.Context, sessionKey, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", pkgerrors.Validationf("Prompt must be a non-empty string.")
	}
	if s.client == nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrMissingConfig, "LLM 未配置，请设置 API Key")
	}

	finalPrompt := s.composer.Compose(sessionKey, userPrompt, s.store.Items())
	metrics.PromptLength.Observe(float64(utils.RuneLen(finalPrompt)))
	s.logger.Debug("记忆合成完成", "session", sessionKey, "prompt_chars", utils.RuneLen(finalPrompt))

	text, err := s.generate(ctx, finalPrompt)
	if err != nil {
		return "", err
	}

	if sessionKey != "" {
		_ = s.ledger.Append(sessionKey, memory.RoleUser, userPrompt)
		_ = s.ledger.Append(sessionKey, memory.RoleAssistant, text)
	}
	return text, nil
}

// ChatComplete 会话式补全：先记入用户消息，再把人设 + 近期历史拼成带角色前缀的
// 对话文本发给模型，回复记入账目后返回
func (s *LLMService) ChatComplete(ctx context.Context, sessionKey, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", pkgerrors.Validationf("Message must be a non-empty string.")
	}
	if sessionKey == "" {
		return "", pkgerrors.Validationf("Session is required.")
	}
	if s.client == nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrMissingConfig, "LLM 未配置，请设置 API Key")
	}

	if err := s.ledger.Append(sessionKey, memory.RoleUser, message); err != nil {
		return "", err
	}

	history := s.ledger.Recent(sessionKey, s.limits.ChatMaxChars, s.limits.ChatMessageLimit)
	transcript := s.buildTranscript(history)
	metrics.PromptLength.Observe(float64(utils.RuneLen(transcript)))

	text, err := s.generate(ctx, transcript)
	if err != nil {
		return "", err
	}

	_ = s.ledger.Append(sessionKey, memory.RoleAssistant, text)
	return text, nil
}

// buildTranscript 构造 System/User/Assistant 前缀的对话文本，超出总预算时
// 保留首行人设并截掉最旧的中段
func (s *LLMService) buildTranscript(history []memory.Message) string {
	systemLine := "System: " + strings.TrimSpace(s.persona.System())

	lines := make([]string, 0, len(history)+1)
	lines = append(lines, systemLine)
	for _, msg := range history {
		prefix := "Assistant"
		if msg.Role == memory.RoleUser {
			prefix = "User"
		}
		lines = append(lines, prefix+": "+msg.Content)
	}

	transcript := strings.Join(lines, "\n\n")
	limit := s.limits.TotalPromptLimit
	if utils.RuneLen(transcript) > limit {
		tail := utils.TruncateTail(transcript, limit-utils.RuneLen(systemLine)-2)
		transcript = systemLine + "\n\n" + tail
	}
	return transcript
}

// Configured 是否已配置可用的 LLM 客户端
func (s *LLMService) Configured() bool {
	return s.client != nil
}

// ProviderInfo 返回当前 provider 与模型名；未配置时均为空
func (s *LLMService) ProviderInfo() (string, string) {
	if s.client == nil {
		return "", ""
	}
	return s.client.Provider(), s.client.Model()
}

// generate 调用模型并记录指标
func (s *LLMService) generate(ctx context.Context, promptText string) (string, error) {
	provider := s.client.Provider()
	start := time.Now()
	text, err := s.client.GenerateWithContext(ctx, promptText, llm.GenerateOptions{})
	metrics.LLMDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMTotal.WithLabelValues(provider, "error").Inc()
		s.logger.Error("LLM 调用失败", "provider", provider, "error", err)
		return "", err
	}
	metrics.LLMTotal.WithLabelValues(provider, "ok").Inc()
	return text, nil
}
