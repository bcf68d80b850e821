package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"today-planner/internal/api"
	"today-planner/internal/assistant"
	"today-planner/internal/auth"
	"today-planner/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(cfg, l)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.AutoSeed {
		if _, err := runSeed(ctx, cfg, st, l); err != nil {
			return err
		}
	}

	tasks := service.NewTaskService(st.db, st.tasks, st.categories, st.users, st.audit, l)
	categories := service.NewCategoryService(st.categories, st.audit, l)
	contexts := service.NewContextService(st.tasks, st.categories, cfg.ChatContextLimit)

	gemini := assistant.NewClient(assistant.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
	})
	if !gemini.Configured() {
		l.Warn("GEMINI_API_KEY is not set, chat will answer 503")
	}

	var signer *auth.Signer
	if cfg.JWTSecret != "" {
		signer = auth.NewSigner(cfg.JWTSecret)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Tasks:       tasks,
		Categories:  categories,
		Contexts:    contexts,
		Chat:        assistant.NewBridge(gemini, contexts, tasks, l),
		Owners:      api.NewIdentity(signer, st.users, cfg.DefaultUserEmail),
		Log:         l,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("today planner listening", "addr", srv.Addr, "auth", signer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	l.Info("shutdown complete")
	return nil
}
