package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/mail"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"context"
	"errors"
	"log"

	"backend/internal/apperr"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/crypto/bcrypt"
)

// @title           Commerce Accounts API
// @version         1.0
// @description     Role-based account, authentication and catalog API.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := config.Load()

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Core primitives
	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL, cfg.RestoreTTL)
	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	userService := service.NewUserService(userRepo, customerRepo, txManager, hasher, wsHub)
	authService := service.NewAuthService(userRepo, userService, tokens, hasher, mailer, cfg.FrontendBaseURL)
	catalogService := service.NewCatalogService(productRepo, orderRepo, txManager, wsHub)

	seedAdmin(userService, cfg)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, tokens)
	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService, tokens)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens)
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	authHandler.RegisterRoutes(router.Group(""))
	catalogHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// seedAdmin bootstraps the admin account from SEED_ADMIN_* env vars. Missing
// vars or an admin that already exists are logged, not fatal.
func seedAdmin(userService service.UserService, cfg config.Config) {
	if cfg.SeedAdminUsername == "" || cfg.SeedAdminPassword == "" || cfg.SeedAdminEmail == "" || cfg.SeedAdminPhone == "" {
		log.Println("Admin seed skipped: SEED_ADMIN_* environment variables incomplete")
		return
	}

	_, err := userService.CreateAdminIfNotExists(context.Background(), service.RegisterRequest{
		Username: cfg.SeedAdminUsername,
		Password: cfg.SeedAdminPassword,
		Email:    cfg.SeedAdminEmail,
		Phone:    cfg.SeedAdminPhone,
	})
	switch {
	case err == nil:
		log.Println("Admin account seeded")
	case errors.Is(err, apperr.ErrDuplicateUsername):
		log.Println("Admin account already exists")
	default:
		log.Printf("WARNING: admin seed failed: %v", err)
	}
}
