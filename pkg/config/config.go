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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Session    SessionConfig    `mapstructure:"session"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// SessionConfig 会话 Cookie 配置（匿名会话关联，无鉴权语义）
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"` // 空则默认 pmo_session
	MaxAge     string `mapstructure:"max_age"`     // 如 "720h"，空则默认 30 天
	Secure     bool   `mapstructure:"secure"`
}

// MemoryConfig 内存上下文存储配置；零值使用各自默认
type MemoryConfig struct {
	MaxItems          int    `mapstructure:"max_items"`            // 文档/笔记条目上限，默认 20
	MaxContentLength  int    `mapstructure:"max_content_length"`   // 单条内容字符上限，默认 10000
	PreviewLength     int    `mapstructure:"preview_length"`       // 列表预览字符数，默认 160
	ChatStorageLimit  int    `mapstructure:"chat_storage_limit"`   // 每会话消息存储上限，默认 100
	ChatMessageLimit  int    `mapstructure:"chat_message_limit"`   // 取历史时默认消息条数，默认 40
	ChatMaxChars      int    `mapstructure:"chat_max_chars"`       // 取历史时默认字符预算，默认 12000
	ChatMessageChars  int    `mapstructure:"chat_message_chars"`   // 单条消息字符上限，默认 4000
	DocContextChars   int    `mapstructure:"doc_context_chars"`    // 文档上下文段预算上限，默认 6000
	DocSnippetLength  int    `mapstructure:"doc_snippet_length"`   // 单条文档摘录字符上限，默认 600
	TotalPromptLimit  int    `mapstructure:"total_prompt_limit"`   // 合成 prompt 总字符上限，默认 20000
	BoundaryTruncation string `mapstructure:"boundary_truncation"` // tail（保留最近字符，默认）| head
}

// IngestConfig 上传与文本抽取配置
type IngestConfig struct {
	MaxFileSize    int64 `mapstructure:"max_file_size"`    // 字节，默认 1 MiB
	CSVPreviewRows int   `mapstructure:"csv_preview_rows"` // CSV 预览行数上限，默认 50
}

// PromptConfig 系统人设配置
type PromptConfig struct {
	SystemOverride string `mapstructure:"system_override"` // 非空白时整体替换默认人设
}

// SecretsConfig API Key 解析后端
type SecretsConfig struct {
	Backend   string `mapstructure:"backend"`    // env（默认）| vault
	VaultAddr string `mapstructure:"vault_addr"` // backend=vault 时使用，空则 VAULT_ADDR
	VaultPath string `mapstructure:"vault_path"` // KV v2 路径，如 secret/data/pmo-agent
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// DefaultsConfig 默认模型配置
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// RateLimitsConfig LLM Provider 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := replaceEnvVars(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// replaceEnvVars 替换配置中形如 ${ENV_VAR} 的模型 API Key
func replaceEnvVars(config *Config) error {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			if val := os.Getenv(envVar); val != "" {
				providerConfig.APIKey = val
				config.Model.LLM.Providers[provider] = providerConfig
			}
		}
	}
	return nil
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}
