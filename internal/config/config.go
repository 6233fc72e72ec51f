package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8080"`
	Environment  string `envconfig:"ENVIRONMENT" default:"development"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"/app/data/enhancer.db"`

	// Upstream completion API (OpenAI-compatible).
	UpstreamAPIKey  string `envconfig:"UPSTREAM_API_KEY" default:""`
	UpstreamBaseURL string `envconfig:"UPSTREAM_BASE_URL" default:"https://openrouter.ai/api/v1"`
	DefaultModel    string `envconfig:"DEFAULT_MODEL" default:"mistralai/mistral-7b-instruct:free"`
	MaxOutputTokens int    `envconfig:"MAX_OUTPUT_TOKENS" default:"2000"`

	// Request validation.
	MaxPromptLength int `envconfig:"MAX_PROMPT_LENGTH" default:"5000"`

	// Rate limiting. An empty RedisURL means in-memory only.
	RedisURL        string `envconfig:"REDIS_URL" default:""`
	RateLimitBase   int    `envconfig:"RATE_LIMIT_BASE" default:"10"`
	RateLimitWindow int    `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"3600"`

	// Billing webhooks. An empty secret disables the endpoint.
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" default:""`

	// Optional bearer auth for identifying users. An empty secret
	// means all clients are identified by IP.
	JWTSecret string `envconfig:"JWT_SECRET" default:""`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("ENHANCER", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
