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

// Package prompt 提供系统人设（system prompt）的解析与获取。
package prompt

import (
	"os"
	"strings"
)

// DefaultSystemPrompt PMO 助手的默认人设
const DefaultSystemPrompt = "You are a focused project management office (PMO) assistant. " +
	"Provide concise, structured updates, track tasks, and surface risks without inventing facts. " +
	"Use bullet lists and short paragraphs when helpful, and ask clarifying questions if context is missing."

// EnvOverrideKey 覆盖默认人设的环境变量名
const EnvOverrideKey = "SYSTEM_PROMPT"

// Provider 返回当前生效的系统人设。
// 优先级：配置项 > SYSTEM_PROMPT 环境变量 > 默认人设
type Provider struct {
	override string
}

// NewProvider 创建 Provider，override 来自配置文件，可为空
func NewProvider(override string) *Provider {
	return &Provider{override: override}
}

// System 返回生效的系统人设，覆盖值首尾空白会被去除
func (p *Provider) System() string {
	if v := strings.TrimSpace(p.override); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOverrideKey)); v != "" {
		return v
	}
	return DefaultSystemPrompt
}
