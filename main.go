package main

import (
	"fmt"
	"log"

	"github.com/PopeYeahWine/MeterAI/internal/config"
	"github.com/PopeYeahWine/MeterAI/internal/credential"
	"github.com/PopeYeahWine/MeterAI/internal/events"
	"github.com/PopeYeahWine/MeterAI/internal/handlers"
	"github.com/PopeYeahWine/MeterAI/internal/logger"
	"github.com/PopeYeahWine/MeterAI/internal/middleware"
	"github.com/PopeYeahWine/MeterAI/internal/providers"
	"github.com/PopeYeahWine/MeterAI/internal/secretstore"
	"github.com/PopeYeahWine/MeterAI/internal/state"
	"github.com/PopeYeahWine/MeterAI/internal/usagelog"
	"github.com/PopeYeahWine/MeterAI/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// secretNamespace is the OS secret store service name
const secretNamespace = "MeterAI"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	handlers.SetVersionInfo(Version, BuildTime, GitCommit)

	envCfg := config.NewEnvConfig()

	logCfg := &logger.Config{
		LogDir:     envCfg.LogDir,
		LogFile:    envCfg.LogFile,
		MaxSize:    envCfg.LogMaxSize,
		MaxBackups: envCfg.LogMaxBackups,
		MaxAge:     envCfg.LogMaxAge,
		Compress:   envCfg.LogCompress,
		Console:    envCfg.LogToConsole,
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	secrets := secretstore.NewKeyring(secretNamespace)

	manager, err := state.NewManager(envCfg.DataDir, secrets, nil)
	if err != nil {
		log.Fatalf("Failed to initialize state manager: %v", err)
	}
	log.Printf("✅ State manager initialized (data dir: %s)", envCfg.DataDir)

	credVault := vault.New(secrets, envCfg.DataDir)
	resolver := credential.NewResolver()
	detector := vault.NewDetector(credVault, resolver, manager.CustomCredentialsPath, envCfg.DataDir)
	log.Printf("✅ Credential vault and drift detector initialized")

	// Usage audit trail is supplemental; a failed open degrades, not aborts
	audit, err := usagelog.Open(envCfg.DataDir)
	if err != nil {
		log.Printf("⚠️ Usage audit log unavailable: %v", err)
		audit = nil
	}

	broadcaster := events.NewBroadcaster()
	manager.SetOnUsageUpdated(func(providerID string, usage state.UsageState) {
		broadcaster.Broadcast(&events.UsageEvent{ProviderID: providerID, Usage: usage})
	})

	// Re-check drift whenever the resolvable source file changes on disk.
	// Watching is opt-out and best-effort: resolution still happens on every
	// explicit check even without a watcher.
	if envCfg.WatchSource {
		if resolved := resolver.Resolve(manager.CustomCredentialsPath()); resolved != nil && resolved.Source != credential.SourceEnv {
			if _, err := credential.WatchFile(resolved.Path, func() { detector.Check() }); err != nil {
				log.Printf("⚠️ Failed to watch credential source: %v", err)
			}
		}
	}

	usageHandler := handlers.NewUsageHandler(manager, audit)
	providerHandler := handlers.NewProviderHandler(manager, credVault, providers.NewClaudeClient(), providers.NewOpenAIClient())
	credentialHandler := handlers.NewCredentialHandler(manager, credVault, detector, resolver)
	exportHandler := handlers.NewExportHandler(manager, credVault)
	eventsHandler := handlers.NewEventsHandler(broadcaster)

	if envCfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if envCfg.EnableCORS {
		r.Use(middleware.CORSMiddleware(envCfg))
	}

	r.GET(envCfg.HealthPath, handlers.HealthCheck())
	r.GET("/api/health/details", handlers.HealthCheckDetailed(envCfg.Env))

	api := r.Group("/api")
	{
		api.GET("/providers", providerHandler.ListProviders)
		api.POST("/providers", providerHandler.AddProvider)
		api.GET("/providers/:id", providerHandler.GetProvider)
		api.PATCH("/providers/:id", providerHandler.Configure)
		api.POST("/providers/:id/activate", providerHandler.SwitchActive)
		api.POST("/providers/:id/fetch", providerHandler.FetchRemoteUsage)
		api.POST("/providers/:id/validate-key", providerHandler.ValidateAPIKey)

		api.GET("/providers/:id/usage", usageHandler.GetUsage)
		api.POST("/providers/:id/usage", usageHandler.RecordUsage)
		api.POST("/providers/:id/usage/reset", usageHandler.ResetUsage)
		api.GET("/providers/:id/usage/audit", usageHandler.GetAuditTrail)

		api.GET("/credential", credentialHandler.Status)
		api.POST("/credential/check", credentialHandler.CheckDrift)
		api.POST("/credential/copy", credentialHandler.CopyToInternal)
		api.POST("/credential/import", credentialHandler.Import)
		api.DELETE("/credential", credentialHandler.Clear)
		api.GET("/credential/changelog", credentialHandler.ChangeLog)

		api.GET("/settings", credentialHandler.GetSettings)
		api.PATCH("/settings", credentialHandler.UpdateSettings)

		api.GET("/export", exportHandler.Export)
		api.POST("/import", exportHandler.Import)

		api.GET("/events", eventsHandler.Stream)
	}

	addr := fmt.Sprintf(":%d", envCfg.Port)
	fmt.Printf("\n🚀 MeterAI server started\n")
	fmt.Printf("📌 Version: %s\n", Version)
	fmt.Printf("🌐 API: http://localhost:%d/api\n", envCfg.Port)
	fmt.Printf("💚 Health check: GET %s\n", envCfg.HealthPath)
	fmt.Printf("📊 Environment: %s\n\n", envCfg.Env)

	if err := r.Run(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
