/*
Copyright (c) 2024 Ansible Project

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/work-obs/ansible-catalog/internal/auth"
	"github.com/work-obs/ansible-catalog/internal/router"
	"github.com/work-obs/ansible-catalog/pkg/api"
	"github.com/work-obs/ansible-catalog/pkg/config"
	"github.com/work-obs/ansible-catalog/pkg/routing"
)

// Server exposes the resolved plugin catalog over HTTPS.
type Server struct {
	httpServer *http.Server
	jwtManager *auth.JWTManager
	routing    *router.Service
	router     *gin.Engine
}

// NewServer creates a catalog server bound to cfg, serving results from
// routingService.
func NewServer(cfg *config.ServerSettings, routingService *router.Service) (*Server, error) {
	jwtManager, err := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT manager: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(loggingMiddleware())

	server := &Server{
		jwtManager: jwtManager,
		routing:    routingService,
		router:     engine,
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig: &tls.Config{
			MinVersion:       tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256},
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}

	return server, nil
}

// Start starts the HTTPS server.
func (s *Server) Start(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return fmt.Errorf("TLS certificate and key files are required")
	}

	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMiddleware())
	{
		v1.GET("/bundles", s.listBundles)
		v1.POST("/bundles/reload", s.reloadBundles)
		v1.GET("/bundles/:bundle/plugins/:plugin_type", s.listBundlePlugins)
		v1.GET("/bundles/:bundle/plugins/:plugin_type/:plugin_name", s.getPluginRouting)
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{
				Code:      http.StatusUnauthorized,
				Message:   "Authorization header is required",
				RequestID: requestID(c),
			})
			c.Abort()
			return
		}

		const bearerPrefix = "Bearer "
		if len(authHeader) < len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{
				Code:      http.StatusUnauthorized,
				Message:   "Invalid authorization header format",
				RequestID: requestID(c),
			})
			c.Abort()
			return
		}

		token := authHeader[len(bearerPrefix):]
		claims, err := s.jwtManager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{
				Code:      http.StatusUnauthorized,
				Message:   "Invalid or expired token",
				RequestID: requestID(c),
			})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

const requestIDHeader = "X-Request-ID"
const requestIDContextKey = "request_id"

// requestIDMiddleware assigns a UUID to every request that doesn't already
// carry one, so a client-supplied or server-generated ID can be correlated
// across logs and error responses.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\" request_id=%s\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Keys[requestIDContextKey],
			)
		},
		Output:    gin.DefaultWriter,
		SkipPaths: []string{"/health"},
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Server) listBundles(c *gin.Context) {
	bundles, err := s.routing.Bundles()
	if err != nil {
		respondNotLoaded(c, err)
		return
	}
	c.JSON(http.StatusOK, api.BundleListResponse{Bundles: bundles})
}

func (s *Server) reloadBundles(c *gin.Context) {
	if err := s.routing.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:      http.StatusInternalServerError,
			Message:   "catalog reload failed",
			Details:   map[string]interface{}{"error": err.Error()},
			RequestID: requestID(c),
		})
		return
	}
	bundles, _ := s.routing.Bundles()
	c.JSON(http.StatusOK, api.ReloadResponse{Status: "reloaded", Bundles: bundles})
}

func (s *Server) listBundlePlugins(c *gin.Context) {
	bundle := c.Param("bundle")
	pluginType := routing.PluginType(c.Param("plugin_type"))

	br, err := s.routing.BundleRouting(bundle)
	if err != nil {
		respondNotLoaded(c, err)
		return
	}

	names := br.PluginData[pluginType]
	resp := api.BundlePluginsResponse{Bundle: bundle, Type: string(pluginType)}
	for name, pr := range names {
		resp.Plugins = append(resp.Plugins, toPluginRoutingResponse(bundle, pluginType, name, pr))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getPluginRouting(c *gin.Context) {
	bundle := c.Param("bundle")
	pluginType := routing.PluginType(c.Param("plugin_type"))
	pluginName := c.Param("plugin_name")

	pr, err := s.routing.Resolve(bundle, pluginType, pluginName)
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:      http.StatusNotFound,
			Message:   err.Error(),
			RequestID: requestID(c),
		})
		return
	}

	c.JSON(http.StatusOK, toPluginRoutingResponse(bundle, pluginType, pluginName, pr))
}

func respondNotLoaded(c *gin.Context, err error) {
	if _, ok := err.(router.ErrNotLoaded); ok {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Code:      http.StatusServiceUnavailable,
			Message:   "catalog has not been loaded yet",
			RequestID: requestID(c),
		})
		return
	}
	c.JSON(http.StatusNotFound, api.ErrorResponse{
		Code:      http.StatusNotFound,
		Message:   err.Error(),
		RequestID: requestID(c),
	})
}

func toPluginRoutingResponse(bundle string, pt routing.PluginType, name string, pr *routing.PluginRouting) api.PluginRoutingResponse {
	resp := api.PluginRoutingResponse{
		Bundle:     bundle,
		Type:       string(pt),
		Name:       name,
		IsCycle:    pr.Redirect.IsCycle(),
		Tombstoned: pr.RedirectTombstone,
		DeadEnd:    pr.RedirectDeadEnd,
	}
	if pr.Redirect.Kind == routing.RedirectTo {
		resp.Redirect = string(pr.Redirect.Target)
	}
	if pr.RedirectError != nil {
		resp.RedirectError = *pr.RedirectError
	}
	if pr.ActionPlugin != nil {
		resp.ActionPlugin = *pr.ActionPlugin
	}
	for _, fqn := range pr.RedirectChain {
		resp.RedirectChain = append(resp.RedirectChain, string(fqn))
	}
	for _, dep := range pr.RedirectDeprecations {
		resp.Deprecations = append(resp.Deprecations, api.DeprecationEntry{
			FQN:     string(dep.FQN),
			Removal: toRemovalRecord(dep.Removal),
		})
	}
	if pr.Deprecation != nil {
		r := toRemovalRecord(*pr.Deprecation)
		resp.Deprecation = &r
	}
	if pr.Tombstone != nil {
		r := toRemovalRecord(*pr.Tombstone)
		resp.Tombstone = &r
	}
	return resp
}

func toRemovalRecord(r routing.RemovalRecord) api.RemovalRecord {
	return api.RemovalRecord{
		WarningText:    r.WarningText,
		RemovalVersion: r.RemovalVersion,
		RemovalDate:    r.RemovalDate,
	}
}
