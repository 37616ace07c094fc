package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func missingPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{Path: missingPath(t), LookupEnv: envOf(nil)})
	require.NoError(t, err)
	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, DefaultGPTModel, cfg.Model())
	assert.Equal(t, DefaultGeminiModel, cfg.Gemini.Model)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultUserAgent, cfg.Search.UserAgent)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, DefaultImageModel, cfg.OpenAI.ImageModel)
	assert.Equal(t, DefaultImageSize, cfg.OpenAI.ImageSize)
	assert.Equal(t, ".chat_prompt_history", filepath.Base(cfg.PromptHistory))
	assert.Equal(t, ".chat_history", filepath.Base(cfg.OutputHistory))
	assert.Empty(t, cfg.DefaultPrompt)
	assert.Zero(t, cfg.Retries)
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load(Options{Path: missingPath(t), LookupEnv: envOf(map[string]string{
		"LLM_BACKEND":        " Gemini ",
		"GEMINI_API_KEY":     "g-key",
		"GEMINI_MODEL":       "gemini-pro",
		"DEFAULT_CHUNK_SIZE": "500",
		"DEFAULT_PROMPT":     "Summarize.",
		"SYSTEM_PROMPT":      "Be brief.",
		"USER_AGENT":         "ua/1",
		"SEARCH_USER_AGENT":  "search/1",
		"FETCH_TIMEOUT":      "5s",
		"SEND_RETRIES":       "3",
		"HTTPS_PROXY_URL":    "http://proxy:8080",
		"OPENAI_API_KEY":     "   ",
	})})
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.Backend)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-pro", cfg.Model())
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, "Summarize.", cfg.DefaultPrompt)
	assert.Equal(t, "Be brief.", cfg.SystemPrompt)
	assert.Equal(t, "ua/1", cfg.UserAgent)
	assert.Equal(t, "search/1", cfg.Search.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "http://proxy:8080", cfg.Proxy)
	// valor em branco não sobrescreve
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"chunk":   {"DEFAULT_CHUNK_SIZE": "ten"},
		"timeout": {"FETCH_TIMEOUT": "soon"},
		"retries": {"SEND_RETRIES": "-1"},
		"backend": {"LLM_BACKEND": "llama"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(Options{Path: missingPath(t), LookupEnv: envOf(env)})
			assert.Error(t, err)
		})
	}

	_, err := Load(Options{Path: missingPath(t), LookupEnv: envOf(map[string]string{"LLM_BACKEND": "llama"})})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestChunkSizeClamp(t *testing.T) {
	cfg, err := Load(Options{Path: missingPath(t), LookupEnv: envOf(map[string]string{"DEFAULT_CHUNK_SIZE": "0"})})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ChunkSize)

	cfg.SetChunkSize(-20)
	assert.Equal(t, 1, cfg.ChunkSize)
}

const sampleYAML = `api_key: sk-file
default: work
profiles:
  work:
    model: gpt-4o-mini
    prompt: Explain in Portuguese.
    chunk_size: 2000
    proxy: http://corp:3128
  google:
    backend: gemini
    model: gemini-1.5-flash
    base_url: https://gemini.example
`

func writeYAML(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleYAML), 0o600))
	return p
}

func TestLoadProfile(t *testing.T) {
	path := writeYAML(t)

	cfg, err := Load(Options{Path: path, LookupEnv: envOf(nil)})
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model())
	assert.Equal(t, "Explain in Portuguese.", cfg.DefaultPrompt)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, "http://corp:3128", cfg.Proxy)

	cfg, err = Load(Options{Path: path, Profile: "google", LookupEnv: envOf(nil)})
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.Backend)
	assert.Equal(t, "gemini-1.5-flash", cfg.Model())
	assert.Equal(t, "https://gemini.example", cfg.Gemini.BaseURL)
	assert.Equal(t, DefaultGPTModel, cfg.OpenAI.Model)

	// ambiente vence o perfil
	cfg, err = Load(Options{Path: path, LookupEnv: envOf(map[string]string{"GPT_MODEL": "gpt-4.1"})})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.Model())

	_, err = Load(Options{Path: path, Profile: "nope", LookupEnv: envOf(nil)})
	assert.ErrorContains(t, err, `profile "nope" not found`)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("LLMCHAT_TEST_DOTENV_KEY=from-dotenv\n"), 0o600))
	t.Setenv("LLMCHAT_TEST_DOTENV_KEY", "")
	require.NoError(t, os.Unsetenv("LLMCHAT_TEST_DOTENV_KEY"))

	_, err := Load(Options{
		Path:      missingPath(t),
		DotEnv:    []string{filepath.Join(dir, "missing.env"), env},
		LookupEnv: envOf(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", os.Getenv("LLMCHAT_TEST_DOTENV_KEY"))
}

func TestReadFileInvalidYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("profiles: [oops"), 0o600))
	_, err := ReadFile(p)
	assert.Error(t, err)
}

func TestSetModelIgnoresBlank(t *testing.T) {
	cfg := Defaults()
	cfg.SetModel("  ")
	assert.Equal(t, DefaultGPTModel, cfg.Model())
	cfg.Backend = BackendGemini
	cfg.SetModel("gemini-x")
	assert.Equal(t, "gemini-x", cfg.Gemini.Model)
	assert.Equal(t, DefaultGPTModel, cfg.OpenAI.Model)
}
