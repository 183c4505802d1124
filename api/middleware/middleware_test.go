/*
Copyright 2024 Cadence Authors.

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
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cadencehq/cadence/config"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, "server running...") })
	r.GET("/stores", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func serve(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	config.MockConfig(&config.Configuration{Server: config.ServerConfig{Secure: true, SecretKey: "s3cret"}})
	r := newRouter(SecretKeyAuthMiddleware())

	tests := []struct {
		name     string
		path     string
		headers  map[string]string
		wantCode int
	}{
		{name: "Valid key", path: "/stores", headers: map[string]string{SecretKeyHeader: "s3cret"}, wantCode: http.StatusOK},
		{name: "Missing key", path: "/stores", wantCode: http.StatusUnauthorized},
		{name: "Wrong key", path: "/stores", headers: map[string]string{SecretKeyHeader: "guess"}, wantCode: http.StatusUnauthorized},
		{name: "Health check is open", path: "/", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(r, tt.path, tt.headers)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestSecretKeyAuthMiddleware_NoKeyConfigured(t *testing.T) {
	config.MockConfig(&config.Configuration{Server: config.ServerConfig{Secure: true}})
	r := newRouter(SecretKeyAuthMiddleware())

	resp := serve(r, "/stores", map[string]string{SecretKeyHeader: "anything"})
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "Secret key is not configured")
}

func TestRateLimitMiddleware(t *testing.T) {
	rps, burst, cleanup := 1.0, 1, 60
	conf := &config.Configuration{RateLimit: config.RateLimitConfig{
		RequestsPerSecond:  &rps,
		Burst:              &burst,
		CleanupIntervalSec: &cleanup,
	}}
	r := newRouter(RateLimitMiddleware(conf))

	assert.Equal(t, http.StatusOK, serve(r, "/stores", nil).Code)
	limited := serve(r, "/stores", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "error")
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := newRouter(RateLimitMiddleware(&config.Configuration{}))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, "/stores", nil).Code)
	}
}
