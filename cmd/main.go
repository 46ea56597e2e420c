package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"browserTasks/internal/artifacts"
	"browserTasks/internal/browser"
	"browserTasks/internal/config"
	"browserTasks/internal/database"
	"browserTasks/internal/llm"
	"browserTasks/internal/logger"
	"browserTasks/internal/migrations"
	"browserTasks/internal/planner"
	"browserTasks/internal/runner"
	"browserTasks/internal/sanitizer"
	"browserTasks/internal/server"
	"browserTasks/internal/task"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := migrations.Run(cfg, log); err != nil {
		log.Fatal("Ошибка миграций", zap.Error(err))
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("Ошибка подключения к БД", zap.Error(err))
	}
	defer db.Close(log)

	repo := database.NewTaskRepository(db.DB)

	store, err := artifacts.NewStore(cfg.Tasks.ScreenshotDir)
	if err != nil {
		log.Fatal("Ошибка хранилища артефактов", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	br := browser.New(browser.Config{
		Headless:     cfg.Browser.Headless,
		UserDataDir:  cfg.Browser.UserDataDir,
		BrowsersPath: cfg.Browser.BrowsersPath,
		Display:      cfg.Browser.Display,
	}, store)
	if err := br.Launch(ctx); err != nil {
		log.Fatal("Ошибка запуска браузера", zap.Error(err))
	}
	defer br.Close()

	san := sanitizer.New()
	scriptRunner := runner.New(br, san, log)

	var goalPlanner task.GoalPlanner
	if cfg.OpenAI.KeyAI != "" {
		llmClient := llm.NewClient(cfg.OpenAI.KeyAI, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, log)
		goalPlanner = planner.New(llmClient, br, log)
	}

	manager := task.NewManager(scriptRunner, goalPlanner, repo, log, task.Defaults{
		MaxRetries: cfg.Tasks.MaxRetries,
		RetryDelay: cfg.Tasks.RetryDelay,
		Timeout:    cfg.Tasks.Timeout,
		MaxSteps:   cfg.Tasks.MaxSteps,
	})
	defer manager.Close()

	srv := server.New(cfg, log, manager, repo)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("Ошибка сервера", zap.Error(err))
	}
}
