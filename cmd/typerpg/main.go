// Package main provides the CLI entrypoint for typerpg.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typerpg/internal/auth"
	"github.com/verte-zerg/typerpg/internal/client"
	"github.com/verte-zerg/typerpg/internal/config"
	"github.com/verte-zerg/typerpg/internal/daily"
	"github.com/verte-zerg/typerpg/internal/generator"
	"github.com/verte-zerg/typerpg/internal/logger"
	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/server"
	"github.com/verte-zerg/typerpg/internal/service"
	"github.com/verte-zerg/typerpg/internal/stats"
	"github.com/verte-zerg/typerpg/internal/statsui"
	"github.com/verte-zerg/typerpg/internal/store"
	"github.com/verte-zerg/typerpg/internal/tui"
	"github.com/verte-zerg/typerpg/internal/wordlist"
)

const (
	defaultMode        = string(model.ModeDaily)
	defaultLang        = "en"
	defaultWords       = generator.EndlessWords
	defaultAddr        = ":8080"
	defaultLogLevel    = "info"
	defaultStatsLimit  = service.DefaultSessionLimit
	defaultTrendWindow = 5
	defaultBoardLimit  = 10
)

var (
	playMode      string
	playWords     int
	playServer    string
	playToken     string
	playUser      string
	playUsername  string
	playWordsPath string
	playLang      string

	serveAddr      string
	serveDB        string
	serveSecret    string
	serveOrigins   []string
	serveRateLimit int
	logLevel       string
	logFormat      string

	statsLimit  int
	statsWindow int

	boardName   string
	boardLimit  int
	boardOffset int

	tokenSecret string
	tokenUser   string
	tokenName   string
	tokenTTL    time.Duration
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typerpg",
		Short:         "Typing RPG in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().StringVar(&playMode, "mode", defaultMode, "game mode (daily or endless)")
	rootCmd.Flags().IntVar(&playWords, "words", defaultWords, "words per endless text")
	rootCmd.Flags().StringVar(&playWordsPath, "words-path", "", "word list file for endless mode (default: built-in list)")
	rootCmd.Flags().StringVar(&playLang, "lang", defaultLang, "language filter applied to --words-path")
	addPlayerFlags(rootCmd)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addPlayerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&playServer, "server", "", "play against a typerpg server (default: local database)")
	cmd.Flags().StringVar(&playToken, "token", "", "bearer token for --server")
	cmd.Flags().StringVar(&playUser, "user", "", "local player id (default: generated guest id)")
	cmd.Flags().StringVar(&playUsername, "username", "", "local player name")
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func applyPlayerConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "server", &playServer, fileCfg.Play.Server)
	applyStringConfig(cmd, "token", &playToken, fileCfg.Play.Token)
	applyStringConfig(cmd, "user", &playUser, fileCfg.Play.User)
	applyStringConfig(cmd, "username", &playUsername, fileCfg.Play.Username)
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "mode", &playMode, fileCfg.Play.Mode)
	applyIntConfig(cmd, "words", &playWords, fileCfg.Play.Words)
	applyStringConfig(cmd, "words-path", &playWordsPath, fileCfg.Play.WordsPath)
	applyStringConfig(cmd, "lang", &playLang, fileCfg.Play.Lang)
	applyPlayerConfig(cmd, fileCfg)

	cfg, err := playConfig()
	if err != nil {
		return err
	}

	logFile, err := logger.OpenFile(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()
	log, err := logger.Init(logFile, valueOr(fileCfg.Log.Level, defaultLogLevel), valueOr(fileCfg.Log.Format, logger.FormatText))
	if err != nil {
		return err
	}

	words := wordlist.Default()
	if cfg.WordsPath != "" {
		words, err = wordlist.LoadWords(cfg.WordsPath, wordlist.FilterForLang(cfg.Lang))
		if err != nil {
			return err
		}
	}
	gen, err := generator.New(words, generator.DefaultQuotes())
	if err != nil {
		return err
	}

	var (
		backend tui.Backend
		kv      daily.KV
	)
	if cfg.Server != "" {
		c, err := client.New(cfg.Server, cfg.Token)
		if err != nil {
			return err
		}
		backend = c
		kv = daily.NewMemoryKV()
	} else {
		st, err := openStore(config.DefaultDBPath())
		if err != nil {
			return err
		}
		defer closeStore(st)
		backend = service.New(st, time.Now).Player(cfg.UserID, cfg.Username)
		kv = st.KV(cfg.UserID)
	}

	log.Info("starting game", "mode", cfg.Mode, "remote", cfg.Server != "", "user", cfg.UserID)
	m := tui.NewModel(cfg, backend, kv, gen, log)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func playConfig() (model.PlayConfig, error) {
	mode, err := model.ParseMode(playMode)
	if err != nil {
		return model.PlayConfig{}, err
	}
	if playWords <= 0 {
		return model.PlayConfig{}, fmt.Errorf("--words must be > 0")
	}
	cfg := model.PlayConfig{
		Mode:      mode,
		Words:     playWords,
		Server:    strings.TrimSpace(playServer),
		Token:     strings.TrimSpace(playToken),
		WordsPath: playWordsPath,
		Lang:      playLang,
	}
	if err := resolvePlayer(&cfg); err != nil {
		return model.PlayConfig{}, err
	}
	return cfg, nil
}

// resolvePlayer fills the identity for local play. Remote play takes the
// identity from the token.
func resolvePlayer(cfg *model.PlayConfig) error {
	if cfg.Server != "" {
		if cfg.Token == "" {
			return fmt.Errorf("--token is required with --server")
		}
		return nil
	}
	userID := strings.TrimSpace(playUser)
	if userID == "" {
		id, err := guestID(config.DefaultUserPath())
		if err != nil {
			return err
		}
		userID = id
	}
	username := strings.TrimSpace(playUsername)
	if username == "" {
		username = strings.TrimSpace(os.Getenv("USER"))
	}
	if username == "" {
		username = userID
	}
	cfg.UserID = userID
	cfg.Username = username
	return nil
}

// guestID returns the id stored at path, creating one on first use.
func guestID(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read guest id: %w", err)
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write guest id: %w", err)
	}
	return id, nil
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default: XDG data dir)")
	cmd.Flags().StringVar(&serveSecret, "token-secret", "", "HS256 secret used to verify bearer tokens")
	cmd.Flags().StringSliceVar(&serveOrigins, "allowed-origins", nil, "CORS allowed origins (default: any)")
	cmd.Flags().IntVar(&serveRateLimit, "rate-limit", server.DefaultRateLimit, "requests per minute per player or IP")
	cmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", logger.FormatJSON, "log format (text or json)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if err := fileCfg.Server.ApplyEnv(); err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &serveDB, fileCfg.Server.DB)
	applyStringConfig(cmd, "token-secret", &serveSecret, fileCfg.Server.TokenSecret)
	applyIntConfig(cmd, "rate-limit", &serveRateLimit, fileCfg.Server.RateLimit)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	if !cmd.Flags().Changed("allowed-origins") && len(fileCfg.Server.AllowedOrigins) > 0 {
		serveOrigins = fileCfg.Server.AllowedOrigins
	}
	if serveDB == "" {
		serveDB = config.DefaultDBPath()
	}
	cfg := model.ServerConfig{
		Addr:           serveAddr,
		DBPath:         serveDB,
		TokenSecret:    serveSecret,
		AllowedOrigins: serveOrigins,
		RateLimit:      serveRateLimit,
	}

	log, err := logger.Init(os.Stderr, logLevel, logFormat)
	if err != nil {
		return err
	}
	tokens, err := auth.NewJWTService(cfg.TokenSecret)
	if err != nil {
		return fmt.Errorf("--token-secret: %w", err)
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(st)

	handler, err := server.New(service.New(st, time.Now), tokens, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("starting server", "addr", cfg.Addr, "db", cfg.DBPath, "rate_limit", cfg.RateLimit)
	return server.ListenAndServe(ctx, cfg.Addr, handler)
}

// profileSource is what the stats and leaderboard commands read from.
type profileSource interface {
	stats.Source
	LevelLeaderboard(ctx context.Context, limit, offset int) ([]model.LevelEntry, error)
	TodayWPMLeaderboard(ctx context.Context, limit, offset int) ([]model.WPMEntry, error)
}

// openSource returns the remote client or the local service. The returned
// close func must be called when done.
func openSource(cmd *cobra.Command) (profileSource, model.PlayConfig, func(), error) {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return nil, model.PlayConfig{}, nil, err
	}
	applyPlayerConfig(cmd, fileCfg)
	cfg := model.PlayConfig{
		Server: strings.TrimSpace(playServer),
		Token:  strings.TrimSpace(playToken),
	}
	if err := resolvePlayer(&cfg); err != nil {
		return nil, model.PlayConfig{}, nil, err
	}
	if cfg.Server != "" {
		c, err := client.New(cfg.Server, cfg.Token)
		if err != nil {
			return nil, model.PlayConfig{}, nil, err
		}
		if _, err := c.EnsurePlayer(cmd.Context()); err != nil {
			return nil, model.PlayConfig{}, nil, fmt.Errorf("failed to load player: %w", err)
		}
		return c, cfg, func() {}, nil
	}
	st, err := openStore(config.DefaultDBPath())
	if err != nil {
		return nil, model.PlayConfig{}, nil, err
	}
	svc := service.New(st, time.Now)
	if _, err := svc.EnsurePlayer(cmd.Context(), cfg.UserID, cfg.Username); err != nil {
		closeStore(st)
		return nil, model.PlayConfig{}, nil, err
	}
	return svc, cfg, func() { closeStore(st) }, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show level progress and recent sessions",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addPlayerFlags(cmd)
	cmd.Flags().IntVar(&statsLimit, "limit", defaultStatsLimit, "number of recent sessions")
	cmd.Flags().IntVar(&statsWindow, "window", defaultTrendWindow, "moving average window for the WPM trend")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsLimit <= 0 || statsLimit > service.MaxLimit {
		return fmt.Errorf("--limit must be between 1 and %d", service.MaxLimit)
	}
	src, cfg, closeFn, err := openSource(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	m := statsui.NewModel(src, cfg.UserID, statsLimit, statsWindow)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats UI: %w", err)
	}
	return nil
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the levels or today's daily WPM leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	addPlayerFlags(cmd)
	cmd.Flags().StringVar(&boardName, "board", "levels", "leaderboard (levels or today-wpm)")
	cmd.Flags().IntVar(&boardLimit, "limit", defaultBoardLimit, "number of rows")
	cmd.Flags().IntVar(&boardOffset, "offset", 0, "rows to skip")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	if boardName != "levels" && boardName != "today-wpm" {
		return fmt.Errorf("unknown board %q (expected levels or today-wpm)", boardName)
	}
	if boardOffset < 0 {
		return fmt.Errorf("--offset must be >= 0")
	}
	src, _, closeFn, err := openSource(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	limit := service.ClampLimit(boardLimit, defaultBoardLimit)
	width := terminalWidth()
	out := cmd.OutOrStdout()
	if boardName == "levels" {
		entries, err := src.LevelLeaderboard(ctx, limit, boardOffset)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		return stats.RenderLevelBoard(out, entries, width)
	}
	entries, err := src.TodayWPMLeaderboard(ctx, limit, boardOffset)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return stats.RenderWPMBoard(out, entries, width)
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a player",
		Args:  cobra.NoArgs,
		RunE:  runTokenCmd,
	}
	cmd.Flags().StringVar(&tokenSecret, "token-secret", "", "HS256 secret shared with the server")
	cmd.Flags().StringVar(&tokenUser, "user", "", "player id (token subject)")
	cmd.Flags().StringVar(&tokenName, "name", "", "player display name")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}

func runTokenCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if err := fileCfg.Server.ApplyEnv(); err != nil {
		return err
	}
	applyStringConfig(cmd, "token-secret", &tokenSecret, fileCfg.Server.TokenSecret)
	if strings.TrimSpace(tokenUser) == "" {
		return fmt.Errorf("--user is required")
	}
	if tokenTTL < 0 {
		return fmt.Errorf("--ttl must be >= 0")
	}
	tokens, err := auth.NewJWTService(tokenSecret)
	if err != nil {
		return fmt.Errorf("--token-secret: %w", err)
	}
	token, err := tokens.GenerateToken(strings.TrimSpace(tokenUser), strings.TrimSpace(tokenName), tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func valueOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typerpg configuration
# Uncomment a value to enable it. CLI flags override config values.

[play]
# mode = %q           # daily or endless
# words = %d              # Words per endless text
# lang = %q             # Language filter for words-path
# words-path = ""         # Custom word list, one word per line
# server = ""             # Play against a typerpg server
# token = ""              # Bearer token for server
# user = ""               # Local player id (default: generated guest id)
# username = ""           # Local player name

[server]
# addr = %q          # Listen address (env TYPERPG_ADDR)
# db = ""                 # SQLite path (env TYPERPG_DB)
# token-secret = ""       # HS256 secret (env TYPERPG_TOKEN_SECRET)
# allowed-origins = []    # CORS origins (env TYPERPG_ALLOWED_ORIGINS)
# rate-limit = %d        # Requests per minute per player or IP

[log]
# level = %q          # debug, info, warn or error
# format = "text"         # text or json
`,
		defaultMode,
		defaultWords,
		defaultLang,
		defaultAddr,
		server.DefaultRateLimit,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
