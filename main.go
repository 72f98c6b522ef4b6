package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/shockwave.report/internal/api"
	"github.com/banshee-data/shockwave.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	showVersion = flag.Bool("version", false, "Print version and exit")

	// Fundamental diagram defaults; every run can override them per
	// request.
	freeflowSpeed = flag.Float64("vf", 2.0, "Free-flow speed (m/s)")
	waveSpeed     = flag.Float64("w", 1.0, "Congestion wave speed (m/s)")
	jamDensity    = flag.Float64("kj", 5.0, "Jam density (veh/m)")
	initDensity   = flag.Float64("k0", 1.0, "Initial density (veh/m)")
	horizon       = flag.Float64("horizon", 60.0, "Simulation horizon (s)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("shockwave.report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(api.Defaults{
		FreeflowSpeed: *freeflowSpeed,
		WaveSpeed:     *waveSpeed,
		JamDensity:    *jamDensity,
		InitDensity:   *initDensity,
		Horizon:       *horizon,
	})

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(srv.ServeMux()),
	}

	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("Graceful shutdown complete")
}
