// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// Store Secret 存储接口
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// Delete 删除 secret
	Delete(ctx context.Context, key string) error

	// List 列出所有 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string            `yaml:"provider"` // vault | env | memory
	Config   map[string]string `yaml:"config"`   // Provider-specific config
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "memory":
		return NewMemoryStore(), nil
	case "env":
		return NewEnvStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Config["address"],
			Token:      config.Config["token"],
			PathPrefix: config.Config["path_prefix"],
		})
	default:
		return NewEnvStore(), nil
	}
}

// ResolveAPIKey 解析某 LLM Provider 的 API Key：configured 非空且不是 ${...} 占位时直接使用，
// 否则按 <PROVIDER>_API_KEY 在 store 中查找
func ResolveAPIKey(ctx context.Context, store Store, provider, configured string) (string, error) {
	if configured != "" && !strings.HasPrefix(configured, "$") {
		return configured, nil
	}
	key := strings.ToUpper(provider) + "_API_KEY"
	value, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve api key for provider %s: %w", provider, err)
	}
	return value, nil
}
