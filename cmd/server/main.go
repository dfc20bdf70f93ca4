// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/durak-online/server/internal/auth"
	"github.com/durak-online/server/internal/broadcast"
	"github.com/durak-online/server/internal/database"
	"github.com/durak-online/server/internal/handlers"
	"github.com/durak-online/server/internal/lobby"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Signing keys: from file when configured, else fresh runtime keys.
	privPath := os.Getenv("AUTH_PRIVATE_KEY_FILE")
	pubPath := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if privPath != "" && pubPath != "" {
		if err := auth.InitFromPath(privPath, pubPath); err != nil {
			log.Fatalf("failed to load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}

	database.ConnectDB()
	defer database.DB.Close()
	repo := database.NewLobbyRepo(database.DB)

	hub := handlers.NewHub()

	var bc lobby.Broadcaster = hub
	if err := broadcast.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, closure events stay process-local: %v", err)
	} else {
		bc = broadcast.Multi{hub, broadcast.NewRedisPublisher(nil)}
	}

	svc := lobby.NewService(repo, bc, logger)
	srv := handlers.NewLobbyServer(svc, hub, logger)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}
}
