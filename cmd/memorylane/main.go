package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/memorylane/internal/content"
	"github.com/pavelanni/memorylane/internal/evasive"
	"github.com/pavelanni/memorylane/internal/handler"
	appI18n "github.com/pavelanni/memorylane/internal/i18n"
	"github.com/pavelanni/memorylane/internal/model"
	"github.com/pavelanni/memorylane/internal/session"
	"github.com/pavelanni/memorylane/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "memorylane",
		Short: "A Valentine's quiz with a button that runs away",
	}

	serve := serveCmd()
	root.AddCommand(serve, playCmd(), importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `memorylane --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "memorylane.db", "SQLite database path")
	f.StringP("content", "c", "", "Content file (YAML or JSON) to import; empty uses the stored or built-in content")
	f.String("media-dir", "media", "Directory served under /media/ (empty to disable)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /valentines)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Duration("loading-min", 0, "Minimum time the loading screen stays up")
	f.Duration("loading-fallback", 3*time.Second, "Show the final page after this even if the video never ends (0 uses 3s)")
	f.Duration("session-ttl", 24*time.Hour, "Drop sessions idle for longer than this")
	f.String("redis-addr", "", "Redis address for session snapshots (empty keeps them in memory)")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.Duration("redis-ttl", 7*24*time.Hour, "Expiry of session snapshots in redis")
	addEvasiveFlags(f, evasive.DefaultParams())
	addCommonFlags(f, "info")
	return cmd
}

func addEvasiveFlags(f *pflag.FlagSet, def evasive.Params) {
	f.Float64("evasive-radius", def.ActivationRadius, "Distance under which the evasive option flees")
	f.Float64("evasive-release", def.ReleaseRadius, "Distance from which the evasive option may return")
	f.Float64("evasive-max", def.MaxDisplacement, "Maximum distance the evasive option moves from rest")
	f.Float64("evasive-gain", def.Gain, "How hard the evasive option is pushed")
	f.Duration("evasive-cooldown", def.Cooldown, "How long the evasive option stays away after the pointer leaves")
}

func addCommonFlags(f *pflag.FlagSet, logLevel string) {
	f.StringP("lang", "l", "en", "UI language")
	f.String("log-level", logLevel, "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func evasiveParams(v *viper.Viper) evasive.Params {
	return evasive.Params{
		ActivationRadius: v.GetFloat64("evasive-radius"),
		ReleaseRadius:    v.GetFloat64("evasive-release"),
		MaxDisplacement:  v.GetFloat64("evasive-max"),
		Gain:             v.GetFloat64("evasive-gain"),
		Cooldown:         v.GetDuration("evasive-cooldown"),
	}.Normalize()
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MEMORYLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("memorylane")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/memorylane")
	v.AddConfigPath("/etc/memorylane")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openContent opens the database, imports the content file (or seeds the
// built-in content into an empty database) and returns what is stored.
func openContent(dbPath, contentPath string) (*store.Store, model.Content, error) {
	db, err := store.New(dbPath)
	if err != nil {
		return nil, model.Content{}, fmt.Errorf("open database: %w", err)
	}

	if contentPath != "" {
		_, err = content.ImportFile(db, contentPath)
	} else {
		_, err = content.Seed(db)
	}
	if err != nil {
		db.Close()
		return nil, model.Content{}, fmt.Errorf("import content: %w", err)
	}

	c, err := db.LoadContent()
	if err != nil {
		db.Close()
		return nil, model.Content{}, fmt.Errorf("load content: %w", err)
	}
	return db, c, nil
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, c, err := openContent(v.GetString("db"), v.GetString("content"))
	if err != nil {
		return err
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.QuizConfig{
		BasePath:        basePath,
		SecureCookies:   v.GetBool("secure-cookies"),
		MediaDir:        v.GetString("media-dir"),
		LoadingMin:      v.GetDuration("loading-min"),
		LoadingFallback: v.GetDuration("loading-fallback"),
		SessionTTL:      v.GetDuration("session-ttl"),
	}

	var snapshots session.Store
	if addr := v.GetString("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis health check: %w", err)
		}
		slog.Info("redis OK", "addr", addr)
		snapshots = session.NewRedisStore(client, v.GetDuration("redis-ttl"))
	}

	sessions := session.NewManager(c.Questions, session.Options{
		LoadingMin:      cfg.LoadingMin,
		LoadingFallback: cfg.LoadingFallback,
		Evasive:         evasiveParams(v),
		EvasiveOption:   c.EvasiveOption,
	}, snapshots, cfg.SessionTTL)
	defer sessions.Close()
	go sessions.Run(ctx, time.Minute)

	h, err := handler.New(c, sessions, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"questions", len(c.Questions),
		"memories", len(c.Memories),
		"evasive_option", c.EvasiveOption,
		"base_path", basePath,
		"media_dir", cfg.MediaDir,
		"redis", snapshots != nil,
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
