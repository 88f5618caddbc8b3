// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	STT           STTConfig
	Generation    GenerationConfig
	TTS           TTSConfig
	Knowledge     KnowledgeConfig
	Pipeline      PipelineConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	GRPCPort    string
	MetricsAddr string
}

type STTConfig struct {
	Provider     string // mock, google, sarvam
	LanguageCode string
	SampleRateHz int
	Encoding     string
	SarvamURL    string
	SarvamAPIKey string
	SarvamModel  string
	Timeout      time.Duration
}

// GenerationConfig holds the text-generation endpoints and race timing.
type GenerationConfig struct {
	BaseURL        string
	APIKey         string
	PrimaryModel   string
	SecondaryModel string

	PrimaryTimeout   time.Duration
	SoftDeadline     time.Duration
	ClearancePause   time.Duration
	SecondaryTimeout time.Duration

	Temperature         float64
	FallbackTemperature float64
	MaxTokens           int
	FastTemperature     float64
	FastMaxTokens       int
}

type TTSConfig struct {
	Provider        string // mock, elevenlabs
	BaseURL         string
	APIKey          string
	ModelID         string
	EnglishVoiceID  string
	TamilVoiceID    string
	MalayalamVoice  string
	Timeout         time.Duration
	Stability       float64
	SimilarityBoost float64
	Style           float64
}

type KnowledgeConfig struct {
	// CorpusPath points at a knowledge text file; empty uses the embedded corpus.
	CorpusPath         string
	LongQueryThreshold int
}

type PipelineConfig struct {
	Budget          time.Duration
	DefaultLanguage string
	DefaultDistrict string
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
}

type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
	LiveFeed  bool
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset or unparsable.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-query")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "en-IN"),
			SampleRateHz: envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			Encoding:     envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			SarvamURL:    envOrDefault("SARVAM_STT_URL", "https://api.sarvam.ai/speech-to-text"),
			SarvamAPIKey: strings.TrimSpace(os.Getenv("SARVAM_API_KEY")),
			SarvamModel:  envOrDefault("SARVAM_MODEL", "saaras:v3"),
			Timeout:      envOrDefaultDuration("STT_TIMEOUT", 60*time.Second),
		},
		Generation: GenerationConfig{
			BaseURL:             envOrDefault("GENERATION_BASE_URL", "https://api.featherless.ai/v1"),
			APIKey:              strings.TrimSpace(os.Getenv("GENERATION_API_KEY")),
			PrimaryModel:        envOrDefault("GENERATION_PRIMARY_MODEL", "meta-llama/Meta-Llama-3-70B-Instruct"),
			SecondaryModel:      envOrDefault("GENERATION_SECONDARY_MODEL", "meta-llama/Meta-Llama-3-8B-Instruct"),
			PrimaryTimeout:      envOrDefaultDuration("GENERATION_PRIMARY_TIMEOUT", 60*time.Second),
			SoftDeadline:        envOrDefaultDuration("GENERATION_SOFT_DEADLINE", 8*time.Second),
			ClearancePause:      envOrDefaultDuration("GENERATION_CLEARANCE_PAUSE", 1500*time.Millisecond),
			SecondaryTimeout:    envOrDefaultDuration("GENERATION_SECONDARY_TIMEOUT", 30*time.Second),
			Temperature:         envOrDefaultFloat("GENERATION_TEMPERATURE", 0.4),
			FallbackTemperature: envOrDefaultFloat("GENERATION_FALLBACK_TEMPERATURE", 0.6),
			MaxTokens:           envOrDefaultInt("GENERATION_MAX_TOKENS", 350),
			FastTemperature:     envOrDefaultFloat("GENERATION_FAST_TEMPERATURE", 0.6),
			FastMaxTokens:       envOrDefaultInt("GENERATION_FAST_MAX_TOKENS", 150),
		},
		TTS: TTSConfig{
			Provider:        envOrDefault("TTS_PROVIDER", "mock"),
			BaseURL:         envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
			APIKey:          strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
			ModelID:         envOrDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
			EnglishVoiceID:  envOrDefault("ELEVENLABS_ENGLISH_VOICE_ID", "pNInz6obpgDQGcFmaJgB"),
			TamilVoiceID:    envOrDefault("ELEVENLABS_TAMIL_VOICE_ID", "pNInz6obpgDQGcFmaJgB"),
			MalayalamVoice:  envOrDefault("ELEVENLABS_MALAYALAM_VOICE_ID", "Lcf7135Sc6Sjn9as9vmb"),
			Timeout:         envOrDefaultDuration("TTS_TIMEOUT", 15*time.Second),
			Stability:       envOrDefaultFloat("TTS_STABILITY", 0.5),
			SimilarityBoost: envOrDefaultFloat("TTS_SIMILARITY_BOOST", 0.75),
			Style:           envOrDefaultFloat("TTS_STYLE", 0.3),
		},
		Knowledge: KnowledgeConfig{
			CorpusPath:         os.Getenv("KNOWLEDGE_CORPUS_PATH"),
			LongQueryThreshold: envOrDefaultInt("KNOWLEDGE_LONG_QUERY_THRESHOLD", 50),
		},
		Pipeline: PipelineConfig{
			Budget:          envOrDefaultDuration("PIPELINE_BUDGET", 3*time.Second),
			DefaultLanguage: envOrDefault("PIPELINE_DEFAULT_LANGUAGE", "en"),
			DefaultDistrict: envOrDefault("PIPELINE_DEFAULT_DISTRICT", "coimbatore"),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultList("KAFKA_BROKERS", nil),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "voice.query.completed"),
			TopicFailed:    envOrDefault("KAFKA_TOPIC_FAILED", "voice.query.failed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
			LiveFeed:  envOrDefaultBool("LIVE_FEED_ENABLED", true),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping empty entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
