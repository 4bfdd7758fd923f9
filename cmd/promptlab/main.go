package main

import (
	"log"
	"os"

	v1 "promptlab/api/v1"
	"promptlab/internal/auth"
	"promptlab/internal/cache"
	"promptlab/internal/collection"
	"promptlab/internal/config"
	"promptlab/internal/db"
	"promptlab/internal/prompt"
	"promptlab/internal/version"
	"promptlab/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
		os.Exit(1)
	}
	log.Println("✓ Configuration loaded")

	// 2. Initialize MySQL
	if err := db.InitMySQL(cfg.MySQL.DSN); err != nil {
		log.Fatalf("Failed to initialize MySQL: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.GetDB()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
		log.Println("✓ Database migrated")
	}

	// 3. Initialize Redis
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
		os.Exit(1)
	}
	defer cache.Close()

	// 4. Initialize JWT
	auth.InitJWT(cfg.JWT.Secret)

	// 5. Initialize Socket.IO server
	if err := ws.InitServer(); err != nil {
		log.Fatalf("Failed to initialize WebSocket server: %v", err)
		os.Exit(1)
	}

	// 6. Build services
	logger := logrus.WithField("service", "promptlab")
	promptService := prompt.NewService(db.GetDB())
	collectionService := collection.NewService(db.GetDB(), promptService)
	versionManager := version.NewManager(
		version.NewGormStore(db.GetDB()),
		promptService,
		cfg.Versioning,
		logger,
	)

	// 7. Start the retention sweeper
	if cfg.Sweeper.Enabled {
		sweeper := version.NewSweeper(&version.SweeperConfig{
			Manager:     versionManager,
			IntervalSec: cfg.Sweeper.IntervalSec,
			Logger:      logger,
		})
		sweeper.Start()
		defer sweeper.Stop()
	}

	// 8. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	v1.SetupRouter(r, db.GetDB(), cfg, &v1.Services{
		Prompts:     promptService,
		Collections: collectionService,
		Versions:    versionManager,
	})

	log.Printf("✓ Server starting on %s", cfg.HTTPAddr)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}
