package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string
	StationName   string

	// Text generation
	LLMProvider        string
	BedrockModelID     string
	GeminiAPIKey       string
	GeminiModelID      string
	OpenAIAPIKey       string
	OpenAIModelID      string
	OpenAIBaseURL      string
	LLMTemperature     float64 // 0 keeps each persona's own setting
	LLMMaxTokens       int     // 0 keeps each persona's own setting
	GenerationTimeout  time.Duration
	DeliveryTimeout    time.Duration
	HistoryWindow      int
	ConversationLocker string

	// SMS
	SMSProvider              string
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	TelnyxFromNumber         string
	TwilioAccountSID         string
	TwilioAuthToken          string
	TwilioFromNumber         string
	DefaultPhoneRegion       string

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// Social direct messages
	InstagramPageAccessToken string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Daily automation sweep
	SweepSchedule      string
	SweepMaxPerRun     int
	SweepRatePerSecond float64
	SweepConcurrency   int
	SweepFollowUpAfter time.Duration
	SweepChannel       string

	// Benefit activation webhook; log-only when empty
	BenefitWebhookURL    string
	BenefitWebhookSecret string

	AdminJWTSecret     string
	ServiceToken       string
	CORSAllowedOrigins []string
	AdminRateLimit     float64
	AdminRateBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StationName:   getEnv("STATION_NAME", "the station"),

		LLMProvider:        strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModelID:      getEnv("OPENAI_MODEL_ID", "gpt-4o-mini"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		LLMTemperature:     getEnvAsFloat("LLM_TEMPERATURE", 0),
		LLMMaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 0),
		GenerationTimeout:  getEnvAsDuration("GENERATION_TIMEOUT", 30*time.Second),
		DeliveryTimeout:    getEnvAsDuration("DELIVERY_TIMEOUT", 15*time.Second),
		HistoryWindow:      getEnvAsInt("HISTORY_WINDOW", 20),
		ConversationLocker: strings.ToLower(strings.TrimSpace(getEnv("CONVERSATION_LOCKER", "memory"))),

		SMSProvider:              strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "auto"))),
		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		TelnyxFromNumber:         getEnv("TELNYX_FROM_NUMBER", ""),
		TwilioAccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:         getEnv("TWILIO_FROM_NUMBER", ""),
		DefaultPhoneRegion:       strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US")),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Station Outreach"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		InstagramPageAccessToken: getEnv("INSTAGRAM_PAGE_ACCESS_TOKEN", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SweepSchedule:      getEnv("SWEEP_SCHEDULE", "0 15 * * *"),
		SweepMaxPerRun:     getEnvAsInt("SWEEP_MAX_PER_RUN", 25),
		SweepRatePerSecond: getEnvAsFloat("SWEEP_RATE_PER_SECOND", 1),
		SweepConcurrency:   getEnvAsInt("SWEEP_CONCURRENCY", 4),
		SweepFollowUpAfter: getEnvAsDuration("SWEEP_FOLLOW_UP_AFTER", 72*time.Hour),
		SweepChannel:       strings.ToLower(getEnv("SWEEP_CHANNEL", "email")),

		BenefitWebhookURL:    getEnv("BENEFIT_WEBHOOK_URL", ""),
		BenefitWebhookSecret: getEnv("BENEFIT_WEBHOOK_SECRET", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		ServiceToken:       getEnv("SERVICE_TOKEN", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AdminRateLimit:     getEnvAsFloat("ADMIN_RATE_LIMIT", 5),
		AdminRateBurst:     getEnvAsInt("ADMIN_RATE_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
