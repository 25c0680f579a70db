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

package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/google/uuid"
)

// DefaultCookieName 匿名会话 Cookie 名
const DefaultCookieName = "pmo_session"

// DefaultSessionMaxAge 会话 Cookie 有效期
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// sessionContextKey RequestContext 中会话键的存取键
const sessionContextKey = "session_key"

// Session 匿名会话中间件：无有效 Cookie 时签发 uuid v4，会话键仅用于关联
// 聊天历史，不承载任何鉴权语义
type Session struct {
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewSession 创建会话中间件；cookieName 为空、maxAge 非正时用默认
func NewSession(cookieName string, maxAge time.Duration, secure bool) *Session {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &Session{cookieName: cookieName, maxAge: maxAge, secure: secure}
}

// Ensure 确保请求带有会话键：读取 Cookie，无效则签发新值并写回
func (s *Session) Ensure() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		key := string(c.Cookie(s.cookieName))
		if _, err := uuid.Parse(key); err != nil {
			key = uuid.NewString()
			c.SetCookie(
				s.cookieName, key,
				int(s.maxAge.Seconds()),
				"/", "",
				protocol.CookieSameSiteLaxMode,
				s.secure, true,
			)
		}
		c.Set(sessionContextKey, key)
		c.Next(ctx)
	}
}

// SessionKey 取出当前请求的会话键；中间件未挂载时返回空串
func SessionKey(c *app.RequestContext) string {
	return c.GetString(sessionContextKey)
}
