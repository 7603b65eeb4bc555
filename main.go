package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"battle-arena-service/handlers"
	"battle-arena-service/middleware"
	"battle-arena-service/models"
	"battle-arena-service/services"
	"battle-arena-service/utils"
	"battle-arena-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 2 * 1024 * 1024, // 2MB — JSON only, no uploads here
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// Replay archival is optional — battles still resolve without R2
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 disabled, replay archival off: %v", err)
	}

	// TranslateError lets finalization detect duplicate-key races as
	// gorm.ErrDuplicatedKey instead of a raw pg error
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Challenge{},
		&models.BattleSession{},
		&models.BattleResult{},
		&models.PlayerBattleStats{},
		&models.WinStreak{},
		&models.Rivalry{},
		&models.StakeSettlement{},
		&models.PlayerMirror{},
		&models.BattleEvent{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	notifier := services.NewNotifier(db)
	engine := services.NewBattleEngine(services.DefaultEngineConfig(), nil)
	bridge := services.NewDeepLinkBridge()
	streakService := services.NewStreakService(db, notifier)
	badgeService := services.NewBadgeService(db, notifier)
	battleService := services.NewBattleService(db, engine, bridge, streakService, badgeService, notifier)
	challengeService := services.NewChallengeService(db, notifier, battleService)

	// --- CONFIGURE Sync Service Details for the player mirror ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	arenaServiceToken := os.Getenv("ARENA_SERVICE_TOKEN")
	if arenaServiceToken == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	// --- END CONFIG ---

	authClient := services.NewAuthServiceClient(authServiceURL, arenaServiceToken)
	syncWorker := workers.NewPlayerSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", arenaServiceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tick loop drives locally simulated battles; sessions alive before a
	// restart are picked back up from the database
	ticker := workers.NewBattleTicker(battleService)
	battleService.Registry = ticker
	ticker.Resume()
	go ticker.Run(ctx)

	settlementClient := workers.NewWalletSettlementClient(db)
	go workers.PollSettlements(ctx, settlementClient, 10*time.Second)

	progressionClient := workers.NewProgressionPushClient(db)
	go workers.PollXPDeltas(ctx, progressionClient, 10*time.Second)

	go func() {
		log.Println("Starting Player Sync Worker...")
		syncWorker.Start(ctx)
	}()

	sweeps, err := services.StartSweeps(challengeService, battleService)
	if err != nil {
		log.Fatal("failed to start sweep scheduler:", err)
	}
	defer func() { _ = sweeps.Shutdown() }()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupChallengeRoutes(app, challengeService)
	handlers.SetupBattleRoutes(app, battleService, streakService, badgeService, authClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Battle ticker running (1s)")
	log.Println("✅ Player Sync Worker running")
	log.Println("✅ Settlement polling running (every 10s)")
	log.Println("✅ XP delta polling running (every 10s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	challengeService.Stop()
}
