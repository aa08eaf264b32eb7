// Package config loads workspace credentials and runtime tunables.
//
// Workspaces come from, in order: a JSON file, SLACK_TOKEN_<NAME>
// variables, the SLACK_USER_TOKEN fallback and finally the Postgres store
// when DATABASE_URL is set. An earlier source wins when two name the same
// key.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"slack-summariser/models"
	"slack-summariser/summarize"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Workspace = models.Workspace

var (
	ErrNoWorkspaces     = errors.New("no Slack configuration found: create ~/.mcp-auth/slack/config.json, set SLACK_TOKEN_<name> or set SLACK_USER_TOKEN")
	ErrUnknownWorkspace = errors.New("unknown workspace")
)

const (
	tokenEnvPrefix       = "SLACK_TOKEN_"
	fallbackWorkspaceKey = "default"

	DefaultSummaryTimeout = 30 * time.Second
	// MinSummaryTimeout is the shortest per-call timeout accepted.
	MinSummaryTimeout     = time.Second
	DefaultDigestSchedule = "0 9 * * 1-5"
)

// WorkspaceLister reads workspaces from an external store.
type WorkspaceLister func(ctx context.Context) ([]Workspace, error)

type Options struct {
	// ConfigPath defaults to ~/.mcp-auth/slack/config.json.
	ConfigPath string
	// EnvFile is loaded into the process environment when present.
	EnvFile string
	// Store is consulted after every other source. When nil and
	// DATABASE_URL is set, the Postgres store is used.
	Store WorkspaceLister
}

type Config struct {
	workspaces map[string]Workspace
	defaultKey string

	SummaryTimeout time.Duration
	DigestSchedule string
	GeminiAPIKey   string
	GeminiModel    string
	DatabaseURL    string
}

type fileWorkspace struct {
	Name     string `mapstructure:"name"`
	Token    string `mapstructure:"token"`
	Priority int    `mapstructure:"priority"`
}

func DefaultConfigPath() string {
	home, homeDirError := os.UserHomeDir()
	if homeDirError != nil {
		return ""
	}
	return filepath.Join(home, ".mcp-auth", "slack", "config.json")
}

// Load gathers workspaces from every source. It fails with ErrNoWorkspaces
// when none of them yields a workspace.
func Load(ctx context.Context, logger *zap.Logger, opts Options) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.EnvFile != "" {
		if loadEnvError := godotenv.Load(opts.EnvFile); loadEnvError != nil && !errors.Is(loadEnvError, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", opts.EnvFile, loadEnvError)
		}
	}

	env := viper.New()
	env.AutomaticEnv()
	env.SetDefault("SLACK_DIGEST_SCHEDULE", DefaultDigestSchedule)
	env.SetDefault("GEMINI_MODEL", summarize.DefaultGeminiModel)

	summaryTimeout, timeoutError := parseSummaryTimeout(env.GetString("SLACK_SUMMARY_TIMEOUT"))
	if timeoutError != nil {
		return nil, timeoutError
	}

	cfg := &Config{
		workspaces:     make(map[string]Workspace),
		SummaryTimeout: summaryTimeout,
		DigestSchedule: env.GetString("SLACK_DIGEST_SCHEDULE"),
		GeminiAPIKey:   env.GetString("GEMINI_API_KEY"),
		GeminiModel:    env.GetString("GEMINI_MODEL"),
		DatabaseURL:    env.GetString("DATABASE_URL"),
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if readFileError := cfg.readFile(configPath); readFileError != nil {
		return nil, readFileError
	}

	cfg.readTokenEnv(os.Environ())

	if len(cfg.workspaces) == 0 {
		if token := env.GetString("SLACK_USER_TOKEN"); token != "" {
			cfg.workspaces[fallbackWorkspaceKey] = Workspace{Key: fallbackWorkspaceKey, Name: "Slack", Token: token, Priority: 1}
			cfg.defaultKey = fallbackWorkspaceKey
		}
	}

	store := opts.Store
	if store == nil && cfg.DatabaseURL != "" {
		store = PostgresStore(cfg.DatabaseURL)
	}
	if store != nil {
		stored, listWorkspacesError := store(ctx)
		if listWorkspacesError != nil {
			return nil, fmt.Errorf("reading stored workspaces: %w", listWorkspacesError)
		}
		for _, ws := range stored {
			if _, exists := cfg.workspaces[ws.Key]; exists || ws.Token == "" {
				continue
			}
			cfg.workspaces[ws.Key] = ws
		}
	}

	if len(cfg.workspaces) == 0 {
		return nil, ErrNoWorkspaces
	}
	if cfg.defaultKey != "" {
		if _, ok := cfg.workspaces[cfg.defaultKey]; !ok {
			logger.Warn("Default workspace is not configured", zap.String("workspace", cfg.defaultKey))
			cfg.defaultKey = ""
		}
	}
	logger.Info("Loaded workspaces", zap.Int("count", len(cfg.workspaces)), zap.String("default", cfg.DefaultKey()))
	return cfg, nil
}

// parseSummaryTimeout reads a duration such as "45s" or "2m". A bare
// number counts as seconds.
func parseSummaryTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSummaryTimeout, nil
	}
	timeout, parseError := time.ParseDuration(raw)
	if seconds, atoiError := strconv.Atoi(raw); atoiError == nil {
		timeout, parseError = time.Duration(seconds)*time.Second, nil
	}
	if parseError != nil {
		return 0, fmt.Errorf("SLACK_SUMMARY_TIMEOUT %q: %w", raw, parseError)
	}
	if timeout < MinSummaryTimeout {
		return 0, fmt.Errorf("SLACK_SUMMARY_TIMEOUT %q is shorter than %s", raw, MinSummaryTimeout)
	}
	return timeout, nil
}

func (c *Config) readFile(path string) error {
	if path == "" {
		return nil
	}
	if _, statError := os.Stat(path); errors.Is(statError, fs.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if readConfigError := v.ReadInConfig(); readConfigError != nil {
		return fmt.Errorf("reading %s: %w", path, readConfigError)
	}

	var fileWorkspaces map[string]fileWorkspace
	if decodeError := v.UnmarshalKey("workspaces", &fileWorkspaces); decodeError != nil {
		return fmt.Errorf("decoding workspaces in %s: %w", path, decodeError)
	}
	for key, fw := range fileWorkspaces {
		if fw.Token == "" {
			return fmt.Errorf("workspace %q in %s has no token", key, path)
		}
		ws := Workspace{Key: key, Name: fw.Name, Token: fw.Token, Priority: fw.Priority}
		if ws.Name == "" {
			ws.Name = key
		}
		if ws.Priority == 0 {
			ws.Priority = 1
		}
		c.workspaces[key] = ws
	}
	c.defaultKey = v.GetString("default_workspace")
	return nil
}

// readTokenEnv adds a workspace per SLACK_TOKEN_<NAME> variable. Variables
// are visited in sorted order so priorities are stable across runs.
func (c *Config) readTokenEnv(environ []string) {
	sort.Strings(environ)
	title := cases.Title(language.English)
	for _, entry := range environ {
		name, token, found := strings.Cut(entry, "=")
		if !found || !strings.HasPrefix(name, tokenEnvPrefix) || name == tokenEnvPrefix || token == "" {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, tokenEnvPrefix))
		if _, exists := c.workspaces[key]; exists {
			continue
		}
		c.workspaces[key] = Workspace{
			Key:      key,
			Name:     title.String(strings.ReplaceAll(key, "_", " ")),
			Token:    token,
			Priority: len(c.workspaces) + 1,
		}
	}
}

// Workspaces returns every workspace sorted by priority, then key.
func (c *Config) Workspaces() []Workspace {
	list := make([]Workspace, 0, len(c.workspaces))
	for _, ws := range c.workspaces {
		list = append(list, ws)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].Key < list[j].Key
	})
	return list
}

// DefaultKey is the configured default, or the first workspace by priority.
func (c *Config) DefaultKey() string {
	if c.defaultKey != "" {
		return c.defaultKey
	}
	if list := c.Workspaces(); len(list) > 0 {
		return list[0].Key
	}
	return ""
}

// Workspace looks a workspace up by key. An empty key selects the default.
func (c *Config) Workspace(key string) (Workspace, error) {
	if len(c.workspaces) == 0 {
		return Workspace{}, ErrNoWorkspaces
	}
	if key == "" {
		key = c.DefaultKey()
	}
	ws, ok := c.workspaces[key]
	if !ok {
		return Workspace{}, fmt.Errorf("%w: %s", ErrUnknownWorkspace, key)
	}
	return ws, nil
}

// FromWorkspaces builds a Config around a fixed workspace set with default
// tunables.
func FromWorkspaces(defaultKey string, workspaces ...Workspace) *Config {
	cfg := &Config{
		workspaces:     make(map[string]Workspace, len(workspaces)),
		defaultKey:     defaultKey,
		SummaryTimeout: DefaultSummaryTimeout,
		DigestSchedule: DefaultDigestSchedule,
		GeminiModel:    summarize.DefaultGeminiModel,
	}
	for _, ws := range workspaces {
		cfg.workspaces[ws.Key] = ws
	}
	return cfg
}
