package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/google/uuid"
)

func buildSessionServer() *server.Hertz {
	s := server.Default(server.WithHostPorts(":0"))
	session := NewSession("", 0, false)
	s.Use(session.Ensure())
	s.GET("/whoami", func(ctx context.Context, c *app.RequestContext) {
		c.String(200, SessionKey(c))
	})
	return s
}

func TestSession_IssuesCookieForNewVisitor(t *testing.T) {
	s := buildSessionServer()

	w := ut.PerformRequest(s.Engine, "GET", "/whoami", nil)
	resp := w.Result()

	key := string(resp.Body())
	if _, err := uuid.Parse(key); err != nil {
		t.Fatalf("session key %q is not a uuid: %v", key, err)
	}

	setCookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(setCookie, DefaultCookieName+"="+key) {
		t.Errorf("Set-Cookie = %q, want cookie %s=%s", setCookie, DefaultCookieName, key)
	}
	if !strings.Contains(setCookie, "HttpOnly") {
		t.Errorf("Set-Cookie missing HttpOnly: %q", setCookie)
	}
	if !strings.Contains(setCookie, "SameSite=Lax") {
		t.Errorf("Set-Cookie missing SameSite=Lax: %q", setCookie)
	}
}

func TestSession_ReusesValidCookie(t *testing.T) {
	s := buildSessionServer()
	existing := uuid.NewString()

	w := ut.PerformRequest(s.Engine, "GET", "/whoami", nil,
		ut.Header{Key: "Cookie", Value: DefaultCookieName + "=" + existing})
	resp := w.Result()

	if got := string(resp.Body()); got != existing {
		t.Errorf("session key = %q, want %q", got, existing)
	}
	if setCookie := resp.Header.Get("Set-Cookie"); setCookie != "" {
		t.Errorf("valid cookie must not be reissued, got Set-Cookie %q", setCookie)
	}
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	s := buildSessionServer()

	w := ut.PerformRequest(s.Engine, "GET", "/whoami", nil,
		ut.Header{Key: "Cookie", Value: DefaultCookieName + "=not-a-uuid"})
	resp := w.Result()

	key := string(resp.Body())
	if _, err := uuid.Parse(key); err != nil {
		t.Fatalf("session key %q is not a uuid: %v", key, err)
	}
	if key == "not-a-uuid" {
		t.Error("malformed cookie value must be replaced")
	}
	if setCookie := resp.Header.Get("Set-Cookie"); setCookie == "" {
		t.Error("replacement cookie must be set")
	}
}
