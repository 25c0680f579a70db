package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"pmo-agent/internal/api/http/middleware"
	service "pmo-agent/internal/app"
	"pmo-agent/internal/memory"
	"pmo-agent/internal/model/llm"
)

// echoClient 返回固定文本的 LLM 客户端
type echoClient struct {
	reply string
}

func (e *echoClient) Generate(prompt string, options llm.GenerateOptions) (string, error) {
	return e.reply, nil
}

func (e *echoClient) GenerateWithContext(ctx context.Context, prompt string, options llm.GenerateOptions) (string, error) {
	return e.reply, nil
}

func (e *echoClient) Chat(messages []llm.Message, options llm.GenerateOptions) (string, error) {
	return e.reply, nil
}

func (e *echoClient) ChatWithContext(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	return e.reply, nil
}

func (e *echoClient) Model() string    { return "echo" }
func (e *echoClient) Provider() string { return "echo" }
func (e *echoClient) SetModel(string)  {}
func (e *echoClient) SetAPIKey(string) {}

func buildServerForTest(t *testing.T, client llm.Client) *server.Hertz {
	t.Helper()
	b, err := service.NewBootstrap(nil)
	if err != nil {
		t.Fatalf("NewBootstrap: %v", err)
	}
	svc := service.NewLLMService(client, b)
	handler := NewHandler(svc, b.Store, b.Ledger, b.Extractor, memory.Limits{}, nil)
	router := NewRouter(handler, middleware.NewMiddleware(), middleware.NewSession("", 0, false))
	return router.Build(":0")
}

func performJSON(s *server.Hertz, method, path string, payload interface{}) *ut.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	return ut.PerformRequest(s.Engine, method, path,
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func TestHealthCheck(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})
	w := ut.PerformRequest(s.Engine, "GET", "/api/health", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte(`"status":"ok"`)) {
		t.Errorf("body = %s", resp.Body())
	}
}

func TestMemoryNotesAndList(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	w := performJSON(s, "POST", "/api/memory/notes", map[string]string{
		"label":   "note:标准",
		"content": "发布前需完成安全审查",
	})
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("add note status = %d: %s", got, w.Result().Body())
	}

	w = ut.PerformRequest(s.Engine, "GET", "/api/memory", nil)
	if !bytes.Contains(w.Result().Body(), []byte("note:标准")) {
		t.Errorf("memory list missing note: %s", w.Result().Body())
	}

	// 清空后列表为空
	w = performJSON(s, "POST", "/api/memory/reset", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("reset status = %d", got)
	}
	w = ut.PerformRequest(s.Engine, "GET", "/api/memory", nil)
	if bytes.Contains(w.Result().Body(), []byte("note:标准")) {
		t.Errorf("memory list not cleared: %s", w.Result().Body())
	}
}

func TestMemoryNotes_Validation(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	// 空标签
	w := performJSON(s, "POST", "/api/memory/notes", map[string]string{"label": "", "content": "x"})
	if got := w.Result().StatusCode(); got != 400 {
		t.Errorf("empty label status = %d", got)
	}

	// 超长笔记拒绝
	w = performJSON(s, "POST", "/api/memory/notes", map[string]string{
		"label":   "note:big",
		"content": strings.Repeat("a", 10_001),
	})
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("oversized note status = %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte(`"error"`)) {
		t.Errorf("error payload missing: %s", resp.Body())
	}
}

func TestUpload_Text(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte("第一季度目标：完成交付"))
	mw.Close()

	w := ut.PerformRequest(s.Engine, "POST", "/api/upload",
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("upload status = %d: %s", resp.StatusCode(), resp.Body())
	}

	var payload struct {
		StoredLabel string `json:"stored_label"`
		CharsStored int    `json:"chars_stored"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.StoredLabel != "doc:notes.txt" {
		t.Errorf("stored_label = %q", payload.StoredLabel)
	}
	if payload.CharsStored != 11 {
		t.Errorf("chars_stored = %d, want rune count 11", payload.CharsStored)
	}
}

func TestUpload_CSVPreview(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "plan.csv")
	fw.Write([]byte("id,name\n1,kickoff\n"))
	mw.Close()

	w := ut.PerformRequest(s.Engine, "POST", "/api/upload",
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("upload status = %d: %s", resp.StatusCode(), resp.Body())
	}
	if !bytes.Contains(resp.Body(), []byte(`"csv_preview"`)) {
		t.Errorf("csv_preview missing: %s", resp.Body())
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "payload.exe")
	fw.Write([]byte("binary"))
	mw.Close()

	w := ut.PerformRequest(s.Engine, "POST", "/api/upload",
		&ut.Body{Body: bytes.NewReader(buf.Bytes()), Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	if got := w.Result().StatusCode(); got != 400 {
		t.Errorf("status = %d, want 400", got)
	}
}

func TestCallLLM(t *testing.T) {
	s := buildServerForTest(t, &echoClient{reply: "on track"})

	w := performJSON(s, "POST", "/api/llm", map[string]string{"prompt": "project status?"})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode(), resp.Body())
	}
	if !bytes.Contains(resp.Body(), []byte(`"response":"on track"`)) {
		t.Errorf("body = %s", resp.Body())
	}
}

func TestCallLLM_EmptyPrompt(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})
	w := performJSON(s, "POST", "/api/llm", map[string]string{"prompt": "  "})
	if got := w.Result().StatusCode(); got != 400 {
		t.Errorf("status = %d, want 400", got)
	}
}

func TestCallLLM_Unconfigured(t *testing.T) {
	s := buildServerForTest(t, nil)
	w := performJSON(s, "POST", "/api/llm", map[string]string{"prompt": "hi"})
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte(`"error"`)) {
		t.Errorf("body = %s", resp.Body())
	}
}

func TestChatAndReset(t *testing.T) {
	s := buildServerForTest(t, &echoClient{reply: "hello there"})

	w := performJSON(s, "POST", "/api/chat", map[string]string{"message": "hi"})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("chat status = %d: %s", resp.StatusCode(), resp.Body())
	}
	if !bytes.Contains(resp.Body(), []byte(`"response":"hello there"`)) {
		t.Errorf("body = %s", resp.Body())
	}

	w = performJSON(s, "POST", "/api/chat/reset", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Errorf("chat reset status = %d", got)
	}
}

func TestSystemEndpoints(t *testing.T) {
	s := buildServerForTest(t, &echoClient{})

	w := ut.PerformRequest(s.Engine, "GET", "/api/system/status", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status endpoint = %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte(`"llm_provider":"echo"`)) {
		t.Errorf("status body = %s", resp.Body())
	}

	w = ut.PerformRequest(s.Engine, "GET", "/api/system/metrics", nil)
	resp = w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("metrics endpoint = %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("pmo_")) {
		t.Errorf("metrics body missing pmo_ series: %.200s", resp.Body())
	}
}
