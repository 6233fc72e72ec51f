package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/promptlift/prompt-enhancer/internal/config"
	"github.com/promptlift/prompt-enhancer/internal/database"
	"github.com/promptlift/prompt-enhancer/internal/enhance"
	"github.com/promptlift/prompt-enhancer/internal/models"
	"github.com/promptlift/prompt-enhancer/internal/ratelimit"
	"github.com/promptlift/prompt-enhancer/internal/techniques"
	"gorm.io/gorm"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errCode,
		"message": message,
	})
}

// Handler owns the enhancement endpoints. Dependencies are injected so
// tests can run against fresh instances.
type Handler struct {
	Orchestrator *enhance.Orchestrator
	Limiter      *ratelimit.Limiter
}

func NewHandler(o *enhance.Orchestrator, l *ratelimit.Limiter) *Handler {
	return &Handler{Orchestrator: o, Limiter: l}
}

type enhanceRequest struct {
	Prompt       string `json:"prompt"`
	Technique    string `json:"technique"`
	OutputFormat string `json:"outputFormat"`
	Model        string `json:"model,omitempty"`
}

// Enhance handles POST /api/enhance.
func (h *Handler) Enhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Prompt must not be empty")
		return
	}
	if len(req.Prompt) > config.Cfg.MaxPromptLength {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("Prompt exceeds the maximum length of %d characters", config.Cfg.MaxPromptLength))
		return
	}
	if req.OutputFormat == "" {
		req.OutputFormat = string(techniques.FormatNatural)
	}
	if !techniques.ValidFormat(req.OutputFormat) {
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("Unsupported output format %q", req.OutputFormat))
		return
	}

	userID := UserID(r.Context())
	plan := database.SubscriptionStatus(userID)

	limit := h.Limiter.Check(r.Context(), ClientIdentity(r), plan)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(limit.ResetAt, 10))
	if !limit.Allowed {
		writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
			"Rate limit exceeded, try again after the window resets")
		return
	}

	enhReq := enhance.Request{
		Prompt:    req.Prompt,
		Technique: req.Technique,
		Format:    techniques.OutputFormat(req.OutputFormat),
		Model:     req.Model,
	}

	start := time.Now()
	cacheHit := h.Orchestrator.Cached(enhReq)
	result, err := h.Orchestrator.Enhance(r.Context(), enhReq)
	if err != nil {
		status, code, message := mapEnhanceError(err)
		recordLog(userID, req, nil, false, time.Since(start), status)
		writeError(w, status, code, message)
		return
	}

	recordLog(userID, req, result, cacheHit, time.Since(start), http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func mapEnhanceError(err error) (status int, code, message string) {
	var ee *enhance.Error
	if !errors.As(err, &ee) {
		return http.StatusInternalServerError, "internal_error", "Enhancement failed unexpectedly"
	}

	switch ee.Code {
	case enhance.CodeTechniqueNotFound:
		return http.StatusBadRequest, ee.Code, ee.Message
	case enhance.CodeInvalidCredentials:
		return http.StatusUnauthorized, ee.Code, ee.Message
	case enhance.CodeUpstreamRateLimited:
		return http.StatusTooManyRequests, ee.Code, ee.Message
	case enhance.CodeQuotaExceeded, enhance.CodeUpstreamUnavailable, enhance.CodeNoModelsAvailable:
		return http.StatusServiceUnavailable, ee.Code, ee.Message
	default:
		return http.StatusInternalServerError, ee.Code, ee.Message
	}
}

func recordLog(userID string, req enhanceRequest, result *enhance.Result, cacheHit bool, elapsed time.Duration, status int) {
	if database.DB == nil {
		return
	}

	entry := database.EnhancementLog{
		UserID:      userID,
		Technique:   req.Technique,
		Format:      req.OutputFormat,
		PromptChars: len(req.Prompt),
		DurationMs:  elapsed.Milliseconds(),
		CacheHit:    cacheHit,
		StatusCode:  status,
	}
	if result != nil {
		entry.Model = result.Metadata.Model
		entry.EnhancedChars = len(result.Enhanced)
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("failed to record enhancement log: %v", err)
	}

	if userID != "" && status == http.StatusOK {
		database.DB.Model(&database.UserProfile{}).
			Where("user_id = ?", userID).
			Update("enhancement_count", gorm.Expr("enhancement_count + 1"))
	}
}

// ListTechniques handles GET /api/techniques.
func (h *Handler) ListTechniques(w http.ResponseWriter, r *http.Request) {
	type item struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	out := make([]item, 0, len(techniques.All()))
	for _, t := range techniques.All() {
		out = append(out, item{ID: t.ID, Name: t.Name, Description: t.Description})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    out,
	})
}

// ListModels handles GET /api/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	type item struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Provider    string `json:"provider"`
		MaxTokens   int    `json:"max_tokens"`
		Free        bool   `json:"free"`
	}

	out := make([]item, 0, len(models.All()))
	for _, m := range models.All() {
		out = append(out, item{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Provider:    m.Provider,
			MaxTokens:   m.MaxTokens,
			Free:        m.Free,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    out,
	})
}

// HealthCheck returns service health status.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
