package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/env"
)

const (
	BackendNone      = "none"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	HTTP     httpConfig
	LogLevel string
	Auth     authConfig
	Remote   Remote
	Local    localConfig
	Redis    redisConfig
	Google   googleConfig
	AI       aiConfig
	Diary    diaryConfig
}

type httpConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ClientCookie    string
	SecureCookies   bool
}

type authConfig struct {
	Secret          string
	TokenTTL        time.Duration
	Issuer          string
	SuccessRedirect string
	AvatarTemplate  string
	OTCTTL          time.Duration
}

// Remote selects and configures the per-user document store.
type Remote struct {
	Backend   string
	Postgres  postgresConfig
	Firestore firestoreConfig
}

type postgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type firestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

type localConfig struct {
	Path string
}

type redisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	ShardTTL time.Duration
}

// Addr returns host:port, or "" when redis is not configured.
func (r redisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type googleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g googleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type aiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	SpeechModel string
	Voice       string
	Timeout     time.Duration
}

type diaryConfig struct {
	MinUnits           int
	HistorySize        int
	PracticeFetchLimit int
	MusesCacheKeys     int64
	MusesCacheCost     int64
	RevokedTokensMax   int64
}

func FromEnv() Config {
	return Config{
		HTTP: httpConfig{
			ListenAddr:      env.String("HTTP_LISTEN_ADDR", ":8080"),
			ReadTimeout:     env.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.Duration("HTTP_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     env.Duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			ClientCookie:    env.String("CLIENT_COOKIE", "museum_client"),
			SecureCookies:   env.Bool("SECURE_COOKIES", false),
		},
		LogLevel: env.String("LOG_LEVEL", "info"),
		Auth: authConfig{
			Secret:          env.RequireString("AUTH_SECRET"),
			TokenTTL:        env.Duration("AUTH_TOKEN_TTL", 7*24*time.Hour),
			Issuer:          env.String("AUTH_ISSUER", "linguist-diary"),
			SuccessRedirect: env.String("AUTH_SUCCESS_REDIRECT", "/"),
			AvatarTemplate:  env.String("AVATAR_URL_TEMPLATE", ""),
			OTCTTL:          env.Duration("OTC_TTL", 2*time.Minute),
		},
		Remote: Remote{
			Backend: strings.ToLower(env.String("REMOTE_BACKEND", BackendNone)),
			Postgres: postgresConfig{
				Host:     env.String("DB_HOST", ""),
				Port:     env.String("DB_PORT", "5432"),
				User:     env.String("DB_USER", ""),
				Password: env.String("DB_PASSWORD", ""),
				Name:     env.String("DB_NAME", ""),
				SSLMode:  env.String("DB_SSLMODE", "disable"),
			},
			Firestore: firestoreConfig{
				ProjectID:       env.String("FIRESTORE_PROJECT_ID", ""),
				CredentialsFile: env.String("FIRESTORE_CREDENTIALS_FILE", ""),
			},
		},
		Local: localConfig{
			Path: env.String("LOCAL_DB_PATH", "museum.db"),
		},
		Redis: redisConfig{
			Host:     env.String("REDIS_HOST", ""),
			Port:     env.String("REDIS_PORT", "6379"),
			Password: env.String("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
			ShardTTL: env.Duration("SHARD_TTL", 24*time.Hour),
		},
		Google: googleConfig{
			ClientID:     env.String("GOOGLE_CLIENT_ID", ""),
			ClientSecret: env.String("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  env.String("GOOGLE_REDIRECT_URL", ""),
		},
		AI: aiConfig{
			BaseURL:     env.String("AI_BASE_URL", ""),
			APIKey:      env.String("AI_API_KEY", ""),
			Model:       env.String("AI_MODEL", ""),
			SpeechModel: env.String("AI_SPEECH_MODEL", ""),
			Voice:       env.String("AI_VOICE", ""),
			Timeout:     env.Duration("AI_TIMEOUT", 0),
		},
		Diary: diaryConfig{
			MinUnits:           env.Int("MIN_TEXT_UNITS", 5),
			HistorySize:        env.Int("HISTORY_CONTEXT_SIZE", 5),
			PracticeFetchLimit: env.Int("PRACTICE_FETCH_LIMIT", 8),
			MusesCacheKeys:     env.Int64("MUSES_CACHE_KEYS", 1000),
			MusesCacheCost:     env.Int64("MUSES_CACHE_COST", 100),
			RevokedTokensMax:   env.Int64("REVOKED_TOKENS_MAX", 10000),
		},
	}
}

// Error reports a remote store configuration that cannot be used. The service starts in
// local-only mode instead.
type Error struct {
	Backend string
	Missing []string
	Reason  string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("remote backend %q: missing %s", e.Backend, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("remote backend %q: %s", e.Backend, e.Reason)
}

// Enabled reports whether a remote backend was requested at all.
func (r Remote) Enabled() bool {
	return r.Backend != "" && r.Backend != BackendNone
}

// Validate checks that the selected backend has everything it needs to connect.
func (r Remote) Validate() *Error {
	var missing []string
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}

	switch r.Backend {
	case "", BackendNone:
		return nil
	case BackendPostgres:
		require("DB_HOST", r.Postgres.Host)
		require("DB_PORT", r.Postgres.Port)
		require("DB_USER", r.Postgres.User)
		require("DB_NAME", r.Postgres.Name)
	case BackendFirestore:
		require("FIRESTORE_PROJECT_ID", r.Firestore.ProjectID)
	default:
		return &Error{Backend: r.Backend, Reason: "unknown backend"}
	}

	if len(missing) > 0 {
		return &Error{Backend: r.Backend, Missing: missing}
	}
	return nil
}
