package enhance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/promptlift/prompt-enhancer/internal/format"
	"github.com/promptlift/prompt-enhancer/internal/models"
	"github.com/promptlift/prompt-enhancer/internal/techniques"
	"github.com/promptlift/prompt-enhancer/internal/upstream"
)

// Error categories surfaced to the HTTP layer.
const (
	CodeTechniqueNotFound   = "technique_not_found"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeQuotaExceeded       = "quota_exceeded"
	CodeUpstreamRateLimited = "upstream_rate_limited"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamError       = "upstream_error"
	CodeNoModelsAvailable   = "no_models_available"
)

// Error carries a stable category string plus a user-safe message. Raw
// upstream error text never leaks into Code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Request is one enhancement request, immutable once constructed.
type Request struct {
	Prompt    string
	Technique string
	Format    techniques.OutputFormat
	Model     string // optional override
}

type Metadata struct {
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	Model            string  `json:"model"`
	Confidence       float64 `json:"confidence"`
	Timestamp        string  `json:"timestamp"`
}

type Result struct {
	Original  string   `json:"original"`
	Enhanced  string   `json:"enhanced"`
	Technique string   `json:"technique"`
	Format    string   `json:"format"`
	Metadata  Metadata `json:"metadata"`
}

// Fixed sampling parameters for every completion attempt.
const (
	temperature      = 0.7
	topP             = 0.9
	frequencyPenalty = 0.1
	presencePenalty  = 0.1
)

// Instruction texts past this length get the shorter timeout and a
// capped token budget.
const (
	complexThreshold = 3000
	complexTimeout   = 20 * time.Second
	normalTimeout    = 25 * time.Second
	complexTokenCap  = 1500
)

// Orchestrator runs the enhancement pipeline: cache lookup, template
// resolution, ordered model fallback, formatting and caching.
type Orchestrator struct {
	Upstream        upstream.Completer
	Cache           *Cache
	DefaultModel    string
	MaxOutputTokens int
}

func NewOrchestrator(client upstream.Completer, defaultModel string, maxOutputTokens int) *Orchestrator {
	return &Orchestrator{
		Upstream:        client,
		Cache:           NewCache(),
		DefaultModel:    defaultModel,
		MaxOutputTokens: maxOutputTokens,
	}
}

// Cached reports whether a request would be served from cache.
func (o *Orchestrator) Cached(req Request) bool {
	_, ok := o.Cache.Get(Fingerprint(req.Prompt, req.Technique, string(req.Format)))
	return ok
}

// attemptBudget picks the per-attempt timeout and output token budget
// from the instruction length. Long instruction texts leave less room
// for output, so they get the tighter budget.
func (o *Orchestrator) attemptBudget(instructions string) (time.Duration, int) {
	if len(instructions) > complexThreshold {
		return complexTimeout, complexTokenCap
	}
	return normalTimeout, o.MaxOutputTokens
}

// Enhance rewrites req.Prompt using the named technique and returns
// the shaped result. Candidates are tried strictly in order, never in
// parallel; only credential failures abort the loop early.
func (o *Orchestrator) Enhance(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	key := Fingerprint(req.Prompt, req.Technique, string(req.Format))
	if cached, ok := o.Cache.Get(key); ok {
		// The copy keeps the enhanced payload intact while the
		// processing time reflects this call, not the original one.
		cached.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
		return cached, nil
	}

	technique, ok := techniques.Get(req.Technique)
	if !ok {
		return nil, &Error{Code: CodeTechniqueNotFound, Message: fmt.Sprintf("unknown technique %q", req.Technique)}
	}
	instructions := technique.InstructionsFor(req.Format)

	preferred := req.Model
	if _, known := models.Get(preferred); !known {
		preferred = o.DefaultModel
	}
	candidates := models.Candidates(preferred)
	if len(candidates) == 0 {
		return nil, &Error{Code: CodeNoModelsAvailable, Message: "no models configured"}
	}

	timeout, tokenBudget := o.attemptBudget(instructions)

	var (
		text     string
		winner   models.Descriptor
		lastErr  error
		attempts int
	)
	for _, model := range candidates {
		maxTokens := tokenBudget
		if model.MaxTokens < maxTokens {
			maxTokens = model.MaxTokens
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		content, err := o.Upstream.Complete(attemptCtx, upstream.CompletionRequest{
			Model:            model.ID,
			SystemPrompt:     instructions,
			UserPrompt:       req.Prompt,
			MaxTokens:        maxTokens,
			Temperature:      temperature,
			TopP:             topP,
			FrequencyPenalty: frequencyPenalty,
			PresencePenalty:  presencePenalty,
		})
		cancel()
		attempts++

		if err == nil {
			text = content
			winner = model
			break
		}

		if upstream.KindOf(err) == upstream.KindAuth {
			return nil, &Error{Code: CodeInvalidCredentials, Message: "upstream API credentials rejected"}
		}

		log.Printf("model %s failed (attempt %d/%d): %v", model.ID, attempts, len(candidates), err)
		lastErr = err
	}

	if text == "" {
		return nil, exhaustedError(lastErr)
	}

	enhanced := format.Output(text, req.Format)

	result := &Result{
		Original:  req.Prompt,
		Enhanced:  enhanced,
		Technique: technique.ID,
		Format:    string(req.Format),
		Metadata: Metadata{
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Model:            winner.DisplayName,
			Confidence:       confidenceScore(enhanced),
			Timestamp:        time.Now().UTC().Format(time.RFC3339),
		},
	}

	o.Cache.Put(key, result)
	return result, nil
}

// exhaustedError maps the last transient failure to the externally
// reported category once every candidate has been tried.
func exhaustedError(lastErr error) *Error {
	switch upstream.KindOf(lastErr) {
	case upstream.KindQuota:
		return &Error{Code: CodeQuotaExceeded, Message: "upstream quota exhausted, try again later"}
	case upstream.KindRateLimited:
		return &Error{Code: CodeUpstreamRateLimited, Message: "upstream is rate limiting requests, try again shortly"}
	case upstream.KindUnavailable, upstream.KindTimeout:
		return &Error{Code: CodeUpstreamUnavailable, Message: "all models are currently unavailable"}
	default:
		return &Error{Code: CodeUpstreamError, Message: "enhancement failed on every model"}
	}
}
