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
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
memory:
  max_items: 10
  total_prompt_limit: 8000
log:
  level: "debug"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.Memory.MaxItems != 10 {
		t.Errorf("Memory.MaxItems: got %d", cfg.Memory.MaxItems)
	}
	if cfg.Memory.TotalPromptLimit != 8000 {
		t.Errorf("Memory.TotalPromptLimit: got %d", cfg.Memory.TotalPromptLimit)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_APIKeyEnvSubstitution(t *testing.T) {
	dir := t.TempDir()
	yaml := `
model:
  llm:
    providers:
      gemini:
        api_key: "${TEST_PMO_GEMINI_KEY}"
        model: "gemini-2.0-flash-lite"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	t.Setenv("TEST_PMO_GEMINI_KEY", "k-123")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	p := cfg.Model.LLM.Providers["gemini"]
	if p.APIKey != "k-123" {
		t.Errorf("APIKey substitution: got %q", p.APIKey)
	}
	if p.Model != "gemini-2.0-flash-lite" {
		t.Errorf("Model: got %q", p.Model)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/api.yaml"); err == nil {
		t.Error("LoadConfig missing file should error")
	}
}
