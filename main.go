package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookreview_server/auth"
	"bookreview_server/config"
	"bookreview_server/logging"
	"bookreview_server/routes"
	"bookreview_server/services"
	"bookreview_server/socket"
	"bookreview_server/supervisor"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var (
		store    services.InteractionStore
		profiles services.ProfileResolver
	)
	switch cfg.Storage.Driver {
	case "memory":
		logging.Warn().Msg("Using in-memory storage; data is lost on restart")
		mem := services.NewMemoryStore()
		store, profiles = mem, mem
	default:
		logging.Info().Str("region", cfg.AWS.Region).Msg("Initializing DynamoDB client...")
		dynamoClient, err := services.InitializeDynamoDBClient(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize DynamoDB client")
		}
		dynamoService := &services.DynamoService{Client: dynamoClient}
		store = services.NewDynamoStore(dynamoService, services.Tables{
			Books:         cfg.Tables.Books,
			Comments:      cfg.Tables.Comments,
			Notifications: cfg.Tables.Notifications,
		})
		profiles = &services.UserProfileService{Dynamo: dynamoService, Table: cfg.Tables.Users}
		logging.Info().Msg("DynamoDB client initialized.")
	}

	var assets *services.AssetService
	if cfg.S3.Bucket != "" {
		s3Client, err := services.NewS3Client(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize S3 client")
		}
		assets = services.NewAssetService(s3Client, cfg.S3.Bucket, cfg.S3.UploadPrefix, cfg.S3.PresignTTL)
	} else {
		logging.Warn().Msg("S3 bucket not configured; uploads are disabled and covers are not cleaned up")
	}

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	// Live layer
	rooms := socket.NewRooms()
	socketServer := socket.NewSocketServer(rooms, tokens, cfg.Socket.SendQueueSize)

	// Initialize Services
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})

	var (
		notifier services.Notifier = &services.NotificationService{Store: store, Live: rooms}
		queue    *services.NotificationQueue
	)
	if cfg.Notifications.Async {
		queue, err = services.NewNotificationQueue(notifier, cfg.Notifications.Topic, cfg.Notifications.BufferSize)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start notification queue")
		}
		tree.AddMessagingService(queue)
		notifier = queue
	}

	entryService := &services.EntryService{Store: store}
	if assets != nil {
		entryService.Assets = assets
	}
	commentService := &services.CommentService{Store: store, Profiles: profiles}
	coordinator := &services.InteractionCoordinator{
		Reactions:   &services.ReactionService{Store: store},
		Comments:    commentService,
		Entries:     entryService,
		Broadcaster: rooms,
		Notifier:    notifier,
		Profiles:    profiles,
	}

	// Initialize the router
	r := mux.NewRouter()
	api := routes.RegisterRoutes(r, tokens, routes.RateLimit{
		Requests: cfg.Security.RateLimitReqs,
		Window:   cfg.Security.RateLimitWindow,
	})
	routes.RegisterBookRoutes(api, entryService, commentService, coordinator)
	if assets != nil {
		routes.RegisterS3Routes(api, assets)
	}
	routes.RegisterSocketRoutes(r, socketServer)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	}).Handler(r)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           corsHandler,
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
	}
	tree.AddAPIService(socketServer)
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", httpServer.Addr).Str("storage", cfg.Storage.Driver).Msg("Starting server")
	serveErr := tree.Serve(ctx)
	if queue != nil {
		if err := queue.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close notification queue")
		}
	}
	if serveErr != nil && ctx.Err() == nil {
		logging.Error().Err(serveErr).Msg("Supervisor stopped unexpectedly")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}
