package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"truckbrick/api/internal/bootstrap"
	"truckbrick/api/internal/config"
	"truckbrick/api/internal/httpserver"
	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/logger"
	"truckbrick/api/internal/store"
	"truckbrick/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateBot()
	}
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = zl.Sync() }()
	log := logger.NewZapAdapter(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := bootstrap.Engines(cfg)
	pipe, err := bootstrap.Pipeline(cfg, engines, log)
	if err != nil {
		zl.Fatal("pipeline", zap.Error(err))
	}
	def, _ := engines.GetEngine("")

	// --- Postgres (optional guide history) ---
	var (
		db      *sql.DB
		archive telegram.Archive
	)
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err = store.Open(ctx, dsn)
		if err != nil {
			zl.Fatal("database", zap.Error(err))
		}
		defer db.Close()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)

		repo := store.NewGuideRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			zl.Fatal("database schema", zap.Error(err))
		}
		archive = repo
		log.Info("db connected", map[string]interface{}{"dsn": safeDSNSummary(dsn)})

		if cfg.GuideRetention > 0 {
			done := make(chan struct{})
			go func() {
				defer close(done)
				runRetention(ctx, repo, cfg.GuideRetention, retentionEvery, log)
			}()
			// stop purging before the pool closes
			defer func() { stop(); <-done }()
		}
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		zl.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:        bot,
		Pipeline:   pipe,
		Engines:    engines,
		EngManager: llm.NewManager(def),
		Archive:    archive,
		Log:        log.With(map[string]interface{}{"component": "telegram"}),
	}
	defer r.Wait()
	defer r.Shutdown()

	mux := httpserver.NewMux("ok")
	if db != nil {
		mux.HandleFunc("/readyz", readyz(db))
	}
	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		err = runWebhook(ctx, addr, mux, bot, r, webhookURL, log)
	} else {
		err = runPollingMode(ctx, addr, mux, bot, r, log)
	}
	if err != nil {
		zl.Error("bot stopped", zap.Error(err))
	}
}

func readyz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
