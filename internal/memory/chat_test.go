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
	"strings"
	"testing"

	"pmo-agent/pkg/errors"
	"pmo-agent/pkg/utils"
)

func TestLedger_Append_Validation(t *testing.T) {
	l := NewLedger(DefaultLimits(), nil)

	if err := l.Append("", RoleUser, "hi"); !errors.IsValidation(err) {
		t.Errorf("empty session: %v", err)
	}
	if err := l.Append("s1", Role("system"), "hi"); !errors.IsValidation(err) {
		t.Errorf("invalid role: %v", err)
	}
	if err := l.Append("s1", Role(""), "hi"); !errors.IsValidation(err) {
		t.Errorf("empty role: %v", err)
	}
}

func TestLedger_Append_EmptyContentIsNoop(t *testing.T) {
	l := NewLedger(DefaultLimits(), nil)
	_ = l.Append("s1", RoleUser, "hello")

	if err := l.Append("s1", RoleUser, "   \t\n"); err != nil {
		t.Errorf("whitespace content should be silent no-op, got %v", err)
	}
	if got := l.Len("s1"); got != 1 {
		t.Errorf("Len after no-op append = %d, want 1", got)
	}
}

func TestLedger_Append_MessageCharCap(t *testing.T) {
	l := NewLedger(Limits{ChatMessageChars: 20}, nil)
	_ = l.Append("s1", RoleUser, strings.Repeat("x", 100))
	msgs := l.Recent("s1", 1000, 10)
	if len(msgs) != 1 {
		t.Fatalf("len=%d", len(msgs))
	}
	if got := utils.RuneLen(msgs[0].Content); got != 20 {
		t.Errorf("stored message chars = %d, want 20", got)
	}
}

func TestLedger_Append_EvictsOldest(t *testing.T) {
	l := NewLedger(Limits{ChatStorageLimit: 3}, nil)
	for i := 1; i <= 5; i++ {
		_ = l.Append("s1", RoleUser, fmt.Sprintf("m%d", i))
	}
	if got := l.Len("s1"); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	msgs := l.Recent("s1", 1000, 10)
	if msgs[0].Content != "m3" || msgs[2].Content != "m5" {
		t.Errorf("eviction kept wrong window: %+v", msgs)
	}
}

func TestLedger_Recent_MessageAndCharBudgets(t *testing.T) {
	l := NewLedger(DefaultLimits(), nil)
	for i := 1; i <= 10; i++ {
		_ = l.Append("s1", RoleUser, fmt.Sprintf("message-%02d", i)) // 每条 10 字符
	}

	// 消息数预算
	msgs := l.Recent("s1", 10_000, 3)
	if len(msgs) != 3 {
		t.Fatalf("maxMessages: len=%d", len(msgs))
	}
	// 时间正序：窗口内最旧在前
	if msgs[0].Content != "message-08" || msgs[2].Content != "message-10" {
		t.Errorf("order: %+v", msgs)
	}

	// 字符预算：25 字符放得下两条整的 + 边界一条截成 5 字符
	msgs = l.Recent("s1", 25, 100)
	total := 0
	for _, m := range msgs {
		total += utils.RuneLen(m.Content)
	}
	if total > 25 {
		t.Errorf("total chars %d exceeds budget", total)
	}
	if len(msgs) != 3 {
		t.Fatalf("char budget window: len=%d, want 3", len(msgs))
	}
	// 默认策略保留尾部字符：message-08 的最后 5 个字符
	if msgs[0].Content != "ge-08" {
		t.Errorf("boundary message = %q, want %q", msgs[0].Content, "ge-08")
	}
}

func TestLedger_Recent_BoundaryPolicyHead(t *testing.T) {
	l := NewLedger(Limits{Boundary: TruncateKeepHead}, nil)
	for i := 1; i <= 3; i++ {
		_ = l.Append("s1", RoleUser, fmt.Sprintf("message-%02d", i))
	}
	msgs := l.Recent("s1", 25, 100)
	if len(msgs) != 3 {
		t.Fatalf("len=%d", len(msgs))
	}
	if msgs[0].Content != "messa" {
		t.Errorf("head policy boundary = %q, want %q", msgs[0].Content, "messa")
	}
}

func TestLedger_Recent_EmptySessionKey(t *testing.T) {
	l := NewLedger(DefaultLimits(), nil)
	if got := l.Recent("", 100, 10); got != nil {
		t.Errorf("empty session key: %+v", got)
	}
	if got := l.Recent("absent", 100, 10); got != nil {
		t.Errorf("unknown session: %+v", got)
	}
}

func TestLedger_Reset_SessionIsolation(t *testing.T) {
	l := NewLedger(DefaultLimits(), nil)
	_ = l.Append("s1", RoleUser, "one")
	_ = l.Append("s2", RoleAssistant, "two")

	l.Reset("s1")
	if got := l.Recent("s1", 1000, 10); len(got) != 0 {
		t.Errorf("s1 after Reset: %+v", got)
	}
	if got := l.Recent("s2", 1000, 10); len(got) != 1 {
		t.Errorf("s2 should be unaffected: %+v", got)
	}
	// 缺失会话的 Reset 是 no-op
	l.Reset("absent")
}
