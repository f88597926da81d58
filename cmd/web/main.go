// Package main запускает веб-приложение генерации плейлистов.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aiplaylist/internal/app"
	"aiplaylist/internal/config"
	"aiplaylist/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		// Конфигурация недоступна, журналируем с настройками по умолчанию
		logger.New(logger.Config{}).Fatal("Failed to load configuration", zap.Error(err))
	}

	// Инициализация логгера из конфигурации
	log := logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Path:      cfg.LogPath,
		Directory: cfg.GetAppDataDir(),
	})

	// Создание контекста
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		cancel()
	}()

	// Создание и запуск сервера через фабрику
	server, err := app.NewServerWithFactory(cfg, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		log.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Server stopped successfully")
}
