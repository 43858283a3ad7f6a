// Package llm 提供 LLM 适配层接口和实现
package llm

import (
	"os"
	"strings"
)

// ResolveAPIKey 解析 API Key（支持环境变量引用）
// 如果值以 ${} 包裹，则从环境变量读取
func ResolveAPIKey(key string) string {
	if strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
		envName := key[2 : len(key)-1]
		return os.Getenv(envName)
	}
	return key
}

// MaskAPIKey 脱敏 API Key，用于日志输出
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// 配置相关错误
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

var (
	ErrMissingAPIKey = &ConfigError{Message: "API key is required"}
	ErrMissingModel  = &ConfigError{Message: "model is required"}
)
