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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"pmo-agent/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler      *Handler
	middleware   *middleware.Middleware
	session      *middleware.Session
	rateLimitRPS int
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware, session *middleware.Session) *Router {
	return &Router{
		handler:    handler,
		middleware: mw,
		session:    session,
	}
}

// SetRateLimit 启用全局限流，rps <= 0 时关闭
func (r *Router) SetRateLimit(rps int) {
	r.rateLimitRPS = rps
}

// Build 创建 Hertz Server 并注册路由
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	serverOpts := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	s := server.Default(serverOpts...)

	s.Use(r.middleware.CORS())
	s.Use(r.middleware.AccessLog())
	if r.rateLimitRPS > 0 {
		s.Use(r.middleware.RateLimit(r.rateLimitRPS))
	}
	s.Use(r.session.Ensure())

	api := s.Group("/api")

	// 健康检查
	api.GET("/health", r.handler.HealthCheck)

	// LLM 调用与会话聊天
	api.POST("/llm", r.handler.CallLLM)
	api.POST("/chat", r.handler.Chat)
	api.POST("/chat/reset", r.handler.ChatReset)

	// 上传与记忆管理
	api.POST("/upload", r.handler.Upload)
	api.GET("/memory", r.handler.ListMemory)
	api.POST("/memory/notes", r.handler.AddNote)
	api.POST("/memory/reset", r.handler.ResetMemory)

	// 系统管理
	system := api.Group("/system")
	{
		system.GET("/status", r.handler.SystemStatus)
		system.GET("/metrics", r.handler.SystemMetrics)
	}

	return s
}
