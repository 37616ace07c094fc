package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thiagozs/go-llmchat/internal/config"
	"github.com/thiagozs/go-llmchat/internal/ingest"
	"github.com/thiagozs/go-llmchat/internal/llm"
	"github.com/thiagozs/go-llmchat/internal/repl"
	"github.com/thiagozs/go-llmchat/internal/search"
	"github.com/thiagozs/go-llmchat/internal/transcript"
)

var (
	cfgFile string
	profile string
	verbose bool
	backend string
	model   string
	prompt  string
	readAll bool
)

var rootCmd = &cobra.Command{
	Use:   "llmchat [url | file | prompt...]",
	Short: "Chat with an LLM about a web page, a PDF or a text file",
	Long: `llmchat loads a document (URL, PDF, HTML or text file), splits it into
chunks and sends them to the selected LLM, one chunk per turn, with a
follow-up prompt. Without arguments it opens a plain chat. Anything that is
neither a URL nor a file is sent once as a literal prompt, and so is text
piped on stdin.

Interactive commands start with a dot; type .help inside the session.`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute roda o comando raiz com ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&profile, "profile", "", "profile of the config file to use")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	pf.StringVarP(&backend, "backend", "b", "", "chat backend: openai or gemini")
	pf.StringVarP(&model, "model", "m", "", "chat model of the selected backend")
	pf.StringVarP(&prompt, "prompt", "p", "", "default prompt appended to every chunk")
	pf.BoolVarP(&readAll, "all", "a", false, "send the whole document as a single chunk")
}

// app reúne o que todos os subcomandos precisam; close libera na ordem inversa.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	proc    *repl.Processor
	console *repl.Console
	closers []io.Closer
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Debugw("close failed", "error", err)
		}
	}
	_ = a.log.Sync()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Path:    cfgFile,
		Profile: profile,
		DotEnv:  []string{".env"},
	})
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backend = strings.ToLower(backend)
	}
	cfg.SetModel(model)
	if cmd.Flags().Changed("prompt") {
		cfg.DefaultPrompt = prompt
	}
	return cfg, cfg.Validate()
}

func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := newLogger(os.Stderr, verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log.Debugw("config loaded", "backend", cfg.Backend, "model", cfg.Model(), "chunk_size", cfg.ChunkSize)

	be, err := llm.New(ctx, cfg, out, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	if c, ok := be.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.console = repl.NewConsole(cfg.PromptHistory, log)
	a.closers = append(a.closers, a.console)

	a.proc = &repl.Processor{
		Settings: repl.Settings{
			ChunkSize:     cfg.ChunkSize,
			DefaultPrompt: cfg.DefaultPrompt,
			SystemPrompt:  cfg.SystemPrompt,
			UserAgent:     cfg.UserAgent,
		},
		Backend: be,
		Loader: ingest.NewLoader(ingest.LoaderOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
			Logger:    log,
		}),
		Transcript: transcript.New(cfg.OutputHistory),
		Input:      a.console,
		Out:        out,
		OpenURL:    browser.OpenURL,
		Logger:     log,
	}
	if s, err := newSearcher(ctx, cfg, out, log); err == nil {
		a.proc.Searcher = s
	} else {
		log.Debugw("search disabled", "error", err)
	}
	return a, nil
}

func newSearcher(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.SugaredLogger) (*search.Searcher, error) {
	client, err := search.NewClient(ctx, search.ClientOptions{
		APIKey:    cfg.Search.APIKey,
		CSEID:     cfg.Search.CSEID,
		UserAgent: cfg.Search.UserAgent,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(client, search.TeaPicker{}, out, log), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if len(args) == 0 && isPiped(os.Stdin) {
		text, err := readPiped(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if text != "" {
			a.proc.OneShot(ctx, text)
			return nil
		}
	}
	if len(args) == 0 {
		return a.proc.Chat(ctx, "", "", readAll)
	}
	// falha de leitura ou envio já foi mostrada ao usuário
	a.proc.Process(ctx, strings.Join(args, " "), readAll)
	return nil
}

func joinArgs(args []string, what string) (string, error) {
	s := strings.TrimSpace(strings.Join(args, " "))
	if s == "" {
		return "", fmt.Errorf("%s is not specified", what)
	}
	return s, nil
}
