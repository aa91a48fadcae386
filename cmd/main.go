package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iamKIVOUS/CampusConnect/config"
	"github.com/iamKIVOUS/CampusConnect/internal/realtime"
	chat_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/chat"
	user_repo "github.com/iamKIVOUS/CampusConnect/internal/repo/user"
	"github.com/iamKIVOUS/CampusConnect/internal/routers"
	chat_service "github.com/iamKIVOUS/CampusConnect/internal/use-case/chat-case"
	"github.com/iamKIVOUS/CampusConnect/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	jwtSecret := []byte(config.Conf.AUTH.JwtSecret)

	hub := realtime.NewHub()
	defer hub.Close()
	presence := realtime.NewClusterPresence(hub, appState.Redis)
	log.Info().Str("instanceID", appState.InstanceID).Msg("websocket hub initialized")

	chatRepo := chat_repo.NewChatRepo(appState.DB)
	userRepo := user_repo.NewUserRepo(appState.DB)
	chatService := chat_service.NewChatService(chatRepo, userRepo, presence)

	backplane := realtime.NewBackplane(appState.Redis, appState.InstanceID)
	broadcaster := realtime.NewBroadcaster(hub, backplane, chatService)
	backplane.Subscribe(ctx, broadcaster.HandleEnvelope)

	gateway := realtime.NewGateway(hub, broadcaster, presence, chatService,
		realtime.JWTAuthenticator(jwtSecret, appState.Redis))

	r := routers.NewRouter(routers.Deps{
		State:       appState,
		ChatService: chatService,
		Users:       userRepo,
		Hub:         hub,
		Presence:    presence,
		Broadcaster: broadcaster,
		Gateway:     gateway,
		JWTSecret:   jwtSecret,
	})

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
}
