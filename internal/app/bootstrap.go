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
	"fmt"

	"pmo-agent/internal/ingest"
	"pmo-agent/internal/memory"
	"pmo-agent/internal/model/llm"
	"pmo-agent/internal/prompt"
	"pmo-agent/pkg/config"
	pkgerrors "pmo-agent/pkg/errors"
	"pmo-agent/pkg/log"
	"pmo-agent/pkg/secrets"
)

// Bootstrap 统一初始化：装配记忆子系统、LLM 客户端与抽取器，供 api 复用
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     *memory.Store
	Ledger    *memory.Ledger
	Composer  *memory.Composer
	Extractor *ingest.Extractor
	Persona   *prompt.Provider
	LLM       llm.Client
}

// NewBootstrap 根据配置创建 Bootstrap
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	limits := MemoryLimits(cfg)
	store := memory.NewStore(limits, logger.Logger)
	ledger := memory.NewLedger(limits, logger.Logger)
	composer := memory.NewComposer(ledger, limits, logger.Logger)

	var extractor *ingest.Extractor
	if cfg != nil {
		extractor = ingest.NewExtractor(cfg.Ingest.MaxFileSize, cfg.Ingest.CSVPreviewRows, logger.Logger)
	} else {
		extractor = ingest.NewExtractor(0, 0, logger.Logger)
	}

	var persona *prompt.Provider
	if cfg != nil {
		persona = prompt.NewProvider(cfg.Prompt.SystemOverride)
	} else {
		persona = prompt.NewProvider("")
	}

	var client llm.Client
	if cfg != nil {
		client, err = NewLLMClientFromConfig(cfg)
		if err != nil {
			logger.Warn("LLM 客户端初始化失败，/api/llm 与 /api/chat 将返回配置错误", "error", err)
			client = nil
		}
	}

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Ledger:    ledger,
		Composer:  composer,
		Extractor: extractor,
		Persona:   persona,
		LLM:       client,
	}, nil
}

// NewLLMClientFromConfig 根据配置创建带限流的 LLM 客户端：
// 默认 provider 取 model.defaults.llm（空则 gemini），API Key 经 secrets 后端解析
func NewLLMClientFromConfig(cfg *config.Config) (llm.Client, error) {
	provider := cfg.Model.Defaults.LLM
	if provider == "" {
		provider = "gemini"
	}
	providerCfg := cfg.Model.LLM.Providers[provider]

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Backend,
		Config: map[string]string{
			"address":     cfg.Secrets.VaultAddr,
			"path_prefix": cfg.Secrets.VaultPath,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secrets 后端失败: %w", err)
	}

	apiKey, err := secrets.ResolveAPIKey(context.Background(), secretStore, provider, providerCfg.APIKey)
	if err != nil || apiKey == "" {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrMissingConfig, "%s API Key 未配置", provider)
	}

	client, err := llm.NewClient(provider, providerCfg.Model, apiKey, providerCfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("创建 LLM 客户端失败: %w", err)
	}

	limiter := llm.NewLLMRateLimiter(rateLimitConfigs(cfg), nil)
	return llm.NewRateLimitedClient(client, limiter), nil
}

// MemoryLimits 将配置映射为 memory.Limits，零值沿用默认
func MemoryLimits(cfg *config.Config) memory.Limits {
	if cfg == nil {
		return memory.DefaultLimits()
	}
	m := cfg.Memory
	return memory.Limits{
		MaxItems:         m.MaxItems,
		MaxContentLength: m.MaxContentLength,
		PreviewLength:    m.PreviewLength,
		ChatMessageLimit: m.ChatMessageLimit,
		ChatStorageLimit: m.ChatStorageLimit,
		ChatMaxChars:     m.ChatMaxChars,
		ChatMessageChars: m.ChatMessageChars,
		DocContextChars:  m.DocContextChars,
		DocSnippetLength: m.DocSnippetLength,
		TotalPromptLimit: m.TotalPromptLimit,
		Boundary:         memory.TruncatePolicy(m.BoundaryTruncation),
	}
}

// rateLimitConfigs 将配置的限流段映射为 llm 包的限流配置
func rateLimitConfigs(cfg *config.Config) map[string]llm.LLMLimitConfig {
	out := make(map[string]llm.LLMLimitConfig, len(cfg.RateLimits.LLM))
	for provider, rl := range cfg.RateLimits.LLM {
		out[provider] = llm.LLMLimitConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			MaxConcurrent:     rl.MaxConcurrent,
		}
	}
	return out
}
