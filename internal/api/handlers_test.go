package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/promptlift/prompt-enhancer/internal/config"
	"github.com/promptlift/prompt-enhancer/internal/enhance"
	"github.com/promptlift/prompt-enhancer/internal/models"
	"github.com/promptlift/prompt-enhancer/internal/ratelimit"
	"github.com/promptlift/prompt-enhancer/internal/upstream"
)

type stubUpstream struct {
	content string
	err     error
}

func (s *stubUpstream) Complete(ctx context.Context, req upstream.CompletionRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

func newTestHandler(t *testing.T, stub *stubUpstream, base int) *Handler {
	t.Helper()
	config.Cfg.MaxPromptLength = 5000
	config.Cfg.JWTSecret = ""

	o := enhance.NewOrchestrator(stub, models.All()[0].ID, 2000)
	l := ratelimit.New("", base, time.Hour)
	t.Cleanup(func() { l.Close() })
	return NewHandler(o, l)
}

func postEnhance(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/enhance", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Enhance(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (errCode, message string) {
	t.Helper()
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Success {
		t.Fatal("error response has success=true")
	}
	return resp.Error, resp.Message
}

func TestEnhanceValidation(t *testing.T) {
	h := newTestHandler(t, &stubUpstream{content: "ok"}, 100)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "invalid JSON",
			body:     "{not json",
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "empty prompt",
			body:     `{"prompt":"","technique":"clarity","outputFormat":"natural"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "unsupported format",
			body:     `{"prompt":"hi","technique":"clarity","outputFormat":"yaml"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_request",
		},
		{
			name:     "unknown technique",
			body:     `{"prompt":"hi","technique":"nope","outputFormat":"natural"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "technique_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postEnhance(h, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if errCode, _ := decodeError(t, w); errCode != tt.wantErr {
				t.Errorf("error = %q, want %q", errCode, tt.wantErr)
			}
		})
	}
}

func TestEnhancePromptTooLong(t *testing.T) {
	h := newTestHandler(t, &stubUpstream{content: "ok"}, 100)
	config.Cfg.MaxPromptLength = 10

	w := postEnhance(h, `{"prompt":"this prompt is far too long","technique":"clarity"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEnhanceHappyPath(t *testing.T) {
	h := newTestHandler(t, &stubUpstream{content: "a better prompt"}, 100)

	w := postEnhance(h, `{"prompt":"make this better","technique":"clarity","outputFormat":"natural"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    enhance.Result `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Data.Enhanced != "a better prompt" {
		t.Errorf("enhanced = %q", resp.Data.Enhanced)
	}
	if resp.Data.Metadata.Model == "" {
		t.Error("metadata model is empty")
	}

	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header")
	}
	if w.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("missing X-RateLimit-Remaining header")
	}
}

func TestEnhanceRateLimited(t *testing.T) {
	h := newTestHandler(t, &stubUpstream{content: "ok"}, 1)

	body := `{"prompt":"make this better","technique":"clarity"}`
	if w := postEnhance(h, body); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}

	w := postEnhance(h, body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}
	if errCode, _ := decodeError(t, w); errCode != "rate_limit_exceeded" {
		t.Errorf("error = %q, want rate_limit_exceeded", errCode)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("remaining header = %q, want 0", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestEnhanceUpstreamFailureMapping(t *testing.T) {
	tests := []struct {
		name     string
		kind     upstream.Kind
		wantCode int
		wantErr  string
	}{
		{name: "auth", kind: upstream.KindAuth, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "rate limited", kind: upstream.KindRateLimited, wantCode: http.StatusTooManyRequests, wantErr: "upstream_rate_limited"},
		{name: "unavailable", kind: upstream.KindUnavailable, wantCode: http.StatusServiceUnavailable, wantErr: "upstream_unavailable"},
		{name: "quota", kind: upstream.KindQuota, wantCode: http.StatusServiceUnavailable, wantErr: "quota_exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubUpstream{err: &upstream.Error{Kind: tt.kind, Detail: "raw upstream text"}}
			h := newTestHandler(t, stub, 100)

			w := postEnhance(h, `{"prompt":"make this better","technique":"clarity"}`)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			errCode, message := decodeError(t, w)
			if errCode != tt.wantErr {
				t.Errorf("error = %q, want %q", errCode, tt.wantErr)
			}
			if message == "raw upstream text" {
				t.Error("raw upstream error text leaked to the client")
			}
		})
	}
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "forwarded-for first hop",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"},
			want:    "ip:10.0.0.1",
		},
		{
			name:    "real-ip fallback",
			headers: map[string]string{"X-Real-IP": "10.0.0.2"},
			want:    "ip:10.0.0.2",
		},
		{
			name:    "cf-connecting-ip fallback",
			headers: map[string]string{"CF-Connecting-IP": "10.0.0.3"},
			want:    "ip:10.0.0.3",
		},
		{
			name: "no headers collapse to loopback",
			want: "ip:127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/enhance", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIdentity(req); got != tt.want {
				t.Errorf("ClientIdentity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIdentityPrefersUser(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/enhance", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req = req.WithContext(context.WithValue(req.Context(), userIDKey, "user-9"))

	if got := ClientIdentity(req); got != "user:user-9" {
		t.Errorf("ClientIdentity() = %q, want user:user-9", got)
	}
}

func TestUserFromTokenSigningMethod(t *testing.T) {
	config.Cfg.JWTSecret = "test-secret"
	t.Cleanup(func() { config.Cfg.JWTSecret = "" })

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-3"}).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign HS256 token: %v", err)
	}

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	rsaToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"user_id": "user-3"}).
		SignedString(rsaKey)
	if err != nil {
		t.Fatalf("sign RS256 token: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "HS256 accepted", token: hmacToken, want: "user-3"},
		{name: "RS256 rejected", token: rsaToken, want: ""},
		{name: "garbage rejected", token: "not.a.token", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/enhance", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			if got := userFromToken(req); got != tt.want {
				t.Errorf("userFromToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListTechniques(t *testing.T) {
	h := newTestHandler(t, &stubUpstream{}, 100)

	req := httptest.NewRequest("GET", "/api/techniques", nil)
	w := httptest.NewRecorder()
	h.ListTechniques(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Data) == 0 {
		t.Error("technique list is empty")
	}
}
