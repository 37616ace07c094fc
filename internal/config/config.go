// Package config monta o Config único que os comandos repassam a cada
// componente. Camadas: padrões, perfil YAML, ambiente, flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"

	DefaultChunkSize    = 10000
	DefaultUserAgent    = "LLM_Chat_Tool"
	DefaultFetchTimeout = 30 * time.Second
	DefaultGPTModel     = "gpt-4o"
	DefaultGeminiModel  = "gemini-1.5-pro-latest"
	DefaultImageModel   = "dall-e-3"
	DefaultImageSize    = "1024x1024"
)

var ErrUnknownBackend = errors.New("unknown backend")

// Profile é uma entrada nomeada do arquivo YAML.
type Profile struct {
	Backend   string `yaml:"backend"`
	Model     string `yaml:"model"`
	System    string `yaml:"system"`
	Prompt    string `yaml:"prompt"`
	ChunkSize int    `yaml:"chunk_size"` // 0 = omitido
	BaseURL   string `yaml:"base_url"`
	Proxy     string `yaml:"proxy"`
	UserAgent string `yaml:"user_agent"`
}

// File espelha o config.yaml.
type File struct {
	APIKey   string             `yaml:"api_key"`
	Default  string             `yaml:"default"`
	Profiles map[string]Profile `yaml:"profiles"`
}

type OpenAI struct {
	APIKey     string
	Model      string
	BaseURL    string
	ImageModel string
	ImageSize  string
}

type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Search struct {
	APIKey    string
	CSEID     string
	UserAgent string
}

type Config struct {
	Backend       string
	OpenAI        OpenAI
	Gemini        Gemini
	Search        Search
	ChunkSize     int
	DefaultPrompt string
	SystemPrompt  string
	PromptHistory string
	OutputHistory string
	UserAgent     string
	FetchTimeout  time.Duration
	Proxy         string
	Retries       int
}

// Model devolve o modelo de chat do backend selecionado.
func (c *Config) Model() string {
	if c.Backend == BackendGemini {
		return c.Gemini.Model
	}
	return c.OpenAI.Model
}

// SetModel troca o modelo de chat do backend selecionado; vazio é ignorado.
func (c *Config) SetModel(model string) {
	if strings.TrimSpace(model) == "" {
		return
	}
	if c.Backend == BackendGemini {
		c.Gemini.Model = model
		return
	}
	c.OpenAI.Model = model
}

// SetChunkSize guarda n, no mínimo 1.
func (c *Config) SetChunkSize(n int) {
	if n < 1 {
		n = 1
	}
	c.ChunkSize = n
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI, BackendGemini:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("send retries must not be negative, got %d", c.Retries)
	}
	return nil
}

// Options controla onde Load procura valores.
type Options struct {
	// Path do YAML; vazio = DefaultPath().
	Path string
	// Profile escolhe o perfil; vazio = o default do arquivo.
	Profile string
	// DotEnv lista arquivos .env carregados no ambiente do processo.
	// Arquivos inexistentes são ignorados.
	DotEnv []string
	// LookupEnv padrão: os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func homeDir() string {
	usr, err := user.Current()
	if err != nil {
		return "."
	}
	return usr.HomeDir
}

func Dir() string { return filepath.Join(homeDir(), ".config", "llmchat") }

func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Defaults é a configuração usada quando nada mais foi definido.
func Defaults() *Config {
	home := homeDir()
	return &Config{
		Backend: BackendOpenAI,
		OpenAI: OpenAI{
			Model:      DefaultGPTModel,
			ImageModel: DefaultImageModel,
			ImageSize:  DefaultImageSize,
		},
		Gemini:        Gemini{Model: DefaultGeminiModel},
		ChunkSize:     DefaultChunkSize,
		PromptHistory: filepath.Join(home, ".chat_prompt_history"),
		OutputHistory: filepath.Join(home, ".chat_history"),
		UserAgent:     DefaultUserAgent,
		FetchTimeout:  DefaultFetchTimeout,
	}
}

func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Profiles: map[string]Profile{}}, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	return &f, nil
}

// Load monta o Config a partir dos padrões, do perfil YAML e do ambiente.
func Load(opts Options) (*Config, error) {
	if len(opts.DotEnv) > 0 {
		var existing []string
		for _, p := range opts.DotEnv {
			if _, err := os.Stat(p); err == nil {
				existing = append(existing, p)
			}
		}
		if len(existing) > 0 {
			if err := godotenv.Load(existing...); err != nil {
				return nil, fmt.Errorf("load .env: %w", err)
			}
		}
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}

	cfg := Defaults()

	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.OpenAI.APIKey = strings.TrimSpace(file.APIKey)
	name := opts.Profile
	if name == "" {
		name = file.Default
	}
	if name != "" {
		prof, ok := file.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("profile %q not found in %s", name, path)
		}
		applyProfile(cfg, prof)
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyProfile(cfg *Config, p Profile) {
	if p.Backend != "" {
		cfg.Backend = strings.ToLower(p.Backend)
	}
	cfg.SetModel(p.Model)
	if p.System != "" {
		cfg.SystemPrompt = p.System
	}
	if p.Prompt != "" {
		cfg.DefaultPrompt = p.Prompt
	}
	if p.ChunkSize != 0 {
		cfg.SetChunkSize(p.ChunkSize)
	}
	if p.BaseURL != "" {
		if cfg.Backend == BackendGemini {
			cfg.Gemini.BaseURL = p.BaseURL
		} else {
			cfg.OpenAI.BaseURL = p.BaseURL
		}
	}
	if p.Proxy != "" {
		cfg.Proxy = p.Proxy
	}
	if p.UserAgent != "" {
		cfg.UserAgent = p.UserAgent
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}

	if v, ok := lookup("LLM_BACKEND"); ok && v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("GPT_MODEL", &cfg.OpenAI.Model)
	str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("IMAGE_MODEL", &cfg.OpenAI.ImageModel)
	str("IMAGE_SIZE", &cfg.OpenAI.ImageSize)
	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_MODEL", &cfg.Gemini.Model)
	str("GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	str("GOOGLE_API_KEY", &cfg.Search.APIKey)
	str("GOOGLE_CSE_ID", &cfg.Search.CSEID)
	str("SEARCH_USER_AGENT", &cfg.Search.UserAgent)
	str("DEFAULT_PROMPT", &cfg.DefaultPrompt)
	str("SYSTEM_PROMPT", &cfg.SystemPrompt)
	str("PROMPT_HISTORY", &cfg.PromptHistory)
	str("OUTPUT_HISTORY", &cfg.OutputHistory)
	str("USER_AGENT", &cfg.UserAgent)
	str("HTTPS_PROXY_URL", &cfg.Proxy)

	if v, ok := lookup("DEFAULT_CHUNK_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DEFAULT_CHUNK_SIZE: %w", err)
		}
		cfg.SetChunkSize(n)
	}
	if v, ok := lookup("FETCH_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if v, ok := lookup("SEND_RETRIES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SEND_RETRIES: %w", err)
		}
		cfg.Retries = n
	}
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = cfg.UserAgent
	}
	return nil
}
