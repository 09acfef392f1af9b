package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hnrobert/dharmagate/internal/account"
	"github.com/hnrobert/dharmagate/internal/auth"
	"github.com/hnrobert/dharmagate/internal/config"
	"github.com/hnrobert/dharmagate/internal/content"
	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/kv"
	"github.com/hnrobert/dharmagate/internal/logger"
	"github.com/hnrobert/dharmagate/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default $"+config.EnvConfigPath+")")
	importPath := flag.String("import", "", "import users from a legacy JSON export before serving")
	flag.Parse()

	if err := run(*configPath, *importPath); err != nil {
		fmt.Fprintln(os.Stderr, "dharmagated:", err)
		os.Exit(1)
	}
}

func run(configPath, importPath string) error {
	if configPath != "" {
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogDir != "" {
		if err := logger.Init(cfg.LogDir); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kv.Open(ctx, kv.Options{
		Driver:        cfg.Storage.Driver,
		Dir:           cfg.StoreDir(),
		SQLitePath:    cfg.SQLitePath(),
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()
	logger.Info("Using %s storage", cfg.Storage.Driver)

	hasher, err := auth.NewHasher(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	users := account.NewUsers(store, cfg.Storage.UsersKey)
	sessions := account.NewSessions(store, cfg.Storage.SessionPrefix)

	if importPath != "" {
		if err := importUsers(ctx, users, hasher, importPath); err != nil {
			return err
		}
	}

	g := gate.New(users, sessions, hasher, gate.Options{
		AcceptedAffiliation: cfg.Auth.AcceptedAffiliation,
		AffiliationMessage:  cfg.Auth.AffiliationMessage,
		MinPasswordLength:   cfg.Auth.MinPasswordLength,
		RedirectDelay:       cfg.Auth.RedirectDelay,
		MessageTimeout:      cfg.Auth.MessageTimeout,
	})

	lib := content.New(nil)
	if cfg.ContentDir != "" {
		lib = content.New(os.DirFS(cfg.ContentDir))
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.ListenAddr,
		Secret:       cfg.Session.Secret,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		CookieMaxAge: cfg.Session.CookieMaxAge,
	}, g, lib)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func importUsers(ctx context.Context, users *account.Users, hasher auth.Hasher, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	imported, skipped, err := users.Import(ctx, f, hasher.Hash)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	logger.Info("Imported %d users from %s (%d skipped)", imported, path, skipped)
	return nil
}
