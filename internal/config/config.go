// Package config loads house-report settings from config.yaml, the
// environment and an optional .env file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Providers  ProvidersConfig  `yaml:"providers" mapstructure:"providers"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	WebSearch  WebSearchConfig  `yaml:"web_search" mapstructure:"web_search"`
	Synthesis  SynthesisConfig  `yaml:"synthesis" mapstructure:"synthesis"`
	Policy     PolicyConfig     `yaml:"policy" mapstructure:"policy"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Schools    SchoolsConfig    `yaml:"schools" mapstructure:"schools"`
	Amenities  AmenitiesConfig  `yaml:"amenities" mapstructure:"amenities"`
	Estimate   EstimateConfig   `yaml:"estimate" mapstructure:"estimate"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	JWTSecret   string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ProvidersConfig holds the base URL and credentials of every data provider.
type ProvidersConfig struct {
	Adresse    EndpointConfig `yaml:"adresse" mapstructure:"adresse"`
	Georisques EndpointConfig `yaml:"georisques" mapstructure:"georisques"`
	Ademe      EndpointConfig `yaml:"ademe" mapstructure:"ademe"`
	DVF        EndpointConfig `yaml:"dvf" mapstructure:"dvf"`
	Education  EndpointConfig `yaml:"education" mapstructure:"education"`
	Overpass   EndpointConfig `yaml:"overpass" mapstructure:"overpass"`
	GPU        EndpointConfig `yaml:"gpu" mapstructure:"gpu"`
	AirQuality EndpointConfig `yaml:"air_quality" mapstructure:"air_quality"`
	Arcep      EndpointConfig `yaml:"arcep" mapstructure:"arcep"`
	SSMSI      SSMSIConfig    `yaml:"ssmsi" mapstructure:"ssmsi"`
	Google     EndpointConfig `yaml:"google" mapstructure:"google"`
	Pappers    EndpointConfig `yaml:"pappers" mapstructure:"pappers"`
	Melo       MeloConfig     `yaml:"melo" mapstructure:"melo"`
}

// EndpointConfig is a provider base URL and optional API key.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// SSMSIConfig locates the commune and national crime-statistics resources.
type SSMSIConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	CommuneResource  string `yaml:"commune_resource" mapstructure:"commune_resource"`
	NationalResource string `yaml:"national_resource" mapstructure:"national_resource"`
}

// MeloConfig holds comparable-listings settings.
type MeloConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Env           string `yaml:"env" mapstructure:"env"`
	ProductionURL string `yaml:"production_url" mapstructure:"production_url"`
	SandboxURL    string `yaml:"sandbox_url" mapstructure:"sandbox_url"`
}

// BaseURL returns the endpoint for the configured environment.
func (m MeloConfig) BaseURL() string {
	if strings.EqualFold(m.Env, "production") {
		return m.ProductionURL
	}
	return m.SandboxURL
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// WebSearchConfig gates the search-grounded market and safety enrichment.
type WebSearchConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider"` // gemini or perplexity
}

// SynthesisConfig selects the narrative synthesis backend.
type SynthesisConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // gemini or anthropic
}

// PolicyConfig tunes the shared timeout, retry and breaker policy.
type PolicyConfig struct {
	TimeoutSecs        int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CriticalAttempts   int `yaml:"critical_attempts" mapstructure:"critical_attempts"`
	BestEffortAttempts int `yaml:"best_effort_attempts" mapstructure:"best_effort_attempts"`
	InitialBackoffMs   int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	BreakerThreshold   int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs   int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the per-attempt timeout.
func (p PolicyConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// InitialBackoff returns the first retry delay.
func (p PolicyConfig) InitialBackoff() time.Duration {
	return time.Duration(p.InitialBackoffMs) * time.Millisecond
}

// CacheConfig sizes the in-memory profile cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	Capacity   int `yaml:"capacity" mapstructure:"capacity"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// SchoolsConfig tunes the school lookup and rating enrichment.
type SchoolsConfig struct {
	MaxResults   int `yaml:"max_results" mapstructure:"max_results"`
	EnrichLimit  int `yaml:"enrich_limit" mapstructure:"enrich_limit"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
	MatchRadiusM int `yaml:"match_radius_m" mapstructure:"match_radius_m"`
}

// AmenitiesConfig caps each amenity list.
type AmenitiesConfig struct {
	PerCategory int `yaml:"per_category" mapstructure:"per_category"`
}

// EstimateConfig points at an optional YAML file overriding price tables
// and thresholds.
type EstimateConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// bareEnv maps config keys to the unprefixed variable names deployments
// already set.
var bareEnv = map[string]string{
	"web_search.enabled":    "WEB_SEARCH_ENABLED",
	"gemini.key":            "GEMINI_API_KEY",
	"gemini.model":          "GEMINI_MODEL",
	"anthropic.key":         "ANTHROPIC_API_KEY",
	"perplexity.key":        "PERPLEXITY_API_KEY",
	"providers.google.key":  "GOOGLE_PLACES_API_KEY",
	"providers.pappers.key": "PAPPERS_API_KEY",
	"providers.melo.key":    "MELO_API_KEY",
	"providers.melo.env":    "MELO_ENV",
	"store.database_url":    "DATABASE_URL",
	"server.jwt_secret":     "JWT_SECRET",
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range bareEnv {
		prefixed := "HOUSE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "house-report.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("providers.adresse.base_url", "https://api-adresse.data.gouv.fr")
	v.SetDefault("providers.georisques.base_url", "https://georisques.gouv.fr/api/v1")
	v.SetDefault("providers.ademe.base_url", "https://data.ademe.fr/data-fair/api/v1/datasets/dpe03existant")
	v.SetDefault("providers.dvf.base_url", "https://api.cquest.org/dvf")
	v.SetDefault("providers.education.base_url", "https://data.education.gouv.fr/api/records/1.0/search")
	v.SetDefault("providers.overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("providers.gpu.base_url", "https://apicarto.ign.fr/api/gpu")
	v.SetDefault("providers.air_quality.base_url", "https://air-quality-api.open-meteo.com/v1/air-quality")
	v.SetDefault("providers.arcep.base_url", "https://api.arcep.fr/v1")
	v.SetDefault("providers.ssmsi.base_url", "https://tabular-api.data.gouv.fr/api/resources")
	v.SetDefault("providers.ssmsi.commune_resource", "6252a84c-6b9e-4415-a743-fc6a631877bb")
	v.SetDefault("providers.ssmsi.national_resource", "5f3bb2ba-6e4a-4e9d-b4c1-0f7a1f5f4a6c")
	v.SetDefault("providers.google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("providers.pappers.base_url", "https://api-immobilier.pappers.fr/v1")
	v.SetDefault("providers.melo.env", "sandbox")
	v.SetDefault("providers.melo.production_url", "https://api.notif.immo")
	v.SetDefault("providers.melo.sandbox_url", "https://preprod-api.notif.immo")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("web_search.enabled", true)
	v.SetDefault("web_search.provider", "gemini")
	v.SetDefault("synthesis.provider", "gemini")

	v.SetDefault("policy.timeout_secs", 10)
	v.SetDefault("policy.critical_attempts", 3)
	v.SetDefault("policy.best_effort_attempts", 2)
	v.SetDefault("policy.initial_backoff_ms", 1000)
	v.SetDefault("policy.breaker_threshold", 5)
	v.SetDefault("policy.breaker_reset_secs", 60)

	v.SetDefault("cache.ttl_minutes", 15)
	v.SetDefault("cache.capacity", 100)

	v.SetDefault("schools.max_results", 30)
	v.SetDefault("schools.enrich_limit", 10)
	v.SetDefault("schools.concurrency", 10)
	v.SetDefault("schools.match_radius_m", 500)
	v.SetDefault("amenities.per_category", 5)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
