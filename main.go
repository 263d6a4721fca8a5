package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"techline/config"
	"techline/httputil"
	"techline/logging"
	"techline/models"
	"techline/scheduler"
	"techline/scraper"
	"techline/services"
	"techline/storage"
	"techline/workers"
)

var (
	resolveAddr = flag.String("resolve", "", "Resolve one address and exit (requires -user)")
	userID      = flag.Int64("user", 0, "User id for one-shot resolution")
	cityID      = flag.Int("city", 0, "City id for one-shot resolution (0 = user's default)")
	confirm     = flag.Bool("confirm", false, "Auto-confirm the one-shot preview")
	checkNow    = flag.Bool("healthcheck", false, "Run the city URL healthcheck sweep and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting techline...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, source := range cfg.Sources {
		log.Printf("  - %s (%s)", source.Name, id)
	}

	dgisCfg, ok := cfg.Sources["dgis"]
	if !ok {
		log.Fatal("No dgis source config found under config/sources/")
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Database.DSN))

	opsStore, err := storage.NewSQLiteStore(cfg.OpsDBPath)
	if err != nil {
		log.Fatalf("Failed to open operational store: %v", err)
	}
	defer opsStore.Close()
	log.Printf("Operational store: %s", cfg.OpsDBPath)

	source := scraper.NewExclusiveSource(scraper.NewDGisSource(dgisCfg, cfg.Browser))
	defer source.Close()

	clients := httputil.NewClients()

	resolution := services.NewResolutionService(pgStore, opsStore, source, cfg.Resolver)
	offices := services.NewOfficeService(pgStore, opsStore, source, cfg.Resolver)
	healthcheck := services.NewHealthcheckService(pgStore, opsStore, clients)

	log.Println("Services initialized")

	if *resolveAddr != "" {
		if err := runOneShot(ctx, resolution, *userID, *cityID, *resolveAddr, *confirm); err != nil {
			log.Fatalf("Resolution failed: %v", err)
		}
		return
	}

	if *checkNow {
		checks, err := healthcheck.CheckCityURLs(ctx)
		if err != nil {
			log.Fatalf("Healthcheck failed: %v", err)
		}
		for _, c := range checks {
			status := "OK"
			if !c.OK {
				status = "FAIL " + c.Err
			}
			fmt.Printf("%-20s %-4d %s\n", c.CityName, c.StatusCode, status)
		}
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, opsStore, healthcheck)

	reaper := workers.NewReaperWorker(resolution, offices)
	reaper.SetLogger(func(level models.LogLevel, message string) {
		opsStore.Log(nil, level, message)
	})
	sched.SetWorkers(reaper)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go reaper.Run(ctx, time.Minute)
	log.Println("Reaper worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

func runOneShot(ctx context.Context, resolution *services.ResolutionService, userID int64, cityID int, addressText string, confirm bool) error {
	if userID == 0 {
		return fmt.Errorf("-resolve requires -user")
	}

	result, err := resolution.StartResolution(ctx, userID, cityID, addressText)
	if err != nil {
		return err
	}

	switch result.Status {
	case services.StatusFound:
		fmt.Println("Found existing record:")
		printView(result.View)
	case services.StatusAwaitingConfirmation:
		p := result.Preview
		fmt.Printf("Preview %s:\n  %s\n  %s, %s\n  %s / %s\n", p.Token, p.Title, p.CityName, p.ZoneName, p.Floors, p.Entrances)
		for _, line := range p.Apartments {
			fmt.Printf("  %s\n", line)
		}
		if !confirm {
			fmt.Println("Re-run with -confirm to commit.")
			return nil
		}
		view, err := resolution.ConfirmPendingResolution(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Println("Committed:")
		printView(view)
	}
	return nil
}

func printView(v *models.HouseView) {
	fmt.Printf("  #%d %s\n  %s, %s\n  %s / %s\n", v.HouseID, v.Title, v.CityName, v.ZoneName, v.Floors, v.Entrances)
	for _, line := range v.Apartments {
		fmt.Printf("  %s\n", line)
	}
	fmt.Printf("  Обновлено: %s\n", v.UpdatedAt)
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
