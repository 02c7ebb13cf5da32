package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/adrizkya/parkirin/config"
	"github.com/adrizkya/parkirin/internal/audit"
	"github.com/adrizkya/parkirin/internal/dupe"
	"github.com/adrizkya/parkirin/internal/engine"
	"github.com/adrizkya/parkirin/internal/handlers"
	"github.com/adrizkya/parkirin/internal/middleware"
	"github.com/adrizkya/parkirin/internal/ocr"
	"github.com/adrizkya/parkirin/internal/stats"
	"github.com/adrizkya/parkirin/internal/store"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	logger, err := config.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	core := buildCore(cfg, db, logger)

	r := gin.Default()

	setupRoutes(r, db, core)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server starting", zap.String("port", port))
	return r.Run(":" + port)
}

func buildCore(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *middleware.Core {
	tickets := store.NewGormStore(db)
	auditWriter := audit.NewWriter(db)
	cache := dupe.NewCache(config.InitRedis(cfg), logger)
	resolver := dupe.NewResolver(tickets, cache, logger)

	var ocrClient *ocr.Client
	if cfg.OCREndpoint != "" {
		ocrClient = ocr.NewClient(cfg.OCREndpoint, cfg.OCRAPIKey)
	} else {
		logger.Warn("OCR_ENDPOINT not set, plate recognition disabled")
	}

	return &middleware.Core{
		Engine:   engine.New(tickets, resolver, auditWriter, logger),
		Resolver: resolver,
		Stats:    stats.NewAggregator(tickets),
		Audit:    auditWriter,
		Tickets:  tickets,
		OCR:      ocrClient,
	}
}

func setupRoutes(r *gin.Engine, db *gorm.DB, core *middleware.Core) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.CoreMiddleware(core))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	protected.Use(middleware.DeviceMiddleware())
	{
		ticketRoutes := protected.Group("/tickets")
		{
			ticketRoutes.GET("", handlers.ListTickets)
			ticketRoutes.GET("/check", handlers.CheckDuplicate)
			ticketRoutes.GET("/:id", handlers.GetTicket)
			ticketRoutes.GET("/:id/logs", handlers.ListTicketLogs)
			ticketRoutes.POST("", handlers.OpenTicket)
			ticketRoutes.POST("/force", handlers.ForceOpenTicket)
			ticketRoutes.POST("/:id/exit", handlers.ExitTicket)
			ticketRoutes.POST("/:id/undo-exit", handlers.UndoExitTicket)
			ticketRoutes.PATCH("/:id/plate", handlers.AmendTicketPlate)
			ticketRoutes.DELETE("/:id", handlers.DeleteTicket)
		}

		protected.GET("/stats", handlers.GetStats)
		protected.POST("/ocr", handlers.RecognizePlate)
		protected.POST("/photos", handlers.UploadPhoto)
	}
}
