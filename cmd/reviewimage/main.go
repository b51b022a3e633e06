package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/samskrta/review-image/internal/chat"
	"github.com/samskrta/review-image/internal/config"
	"github.com/samskrta/review-image/internal/pipeline"
	"github.com/samskrta/review-image/internal/render"
	"github.com/samskrta/review-image/internal/scheduler"
	"github.com/samskrta/review-image/internal/source"
	"github.com/samskrta/review-image/internal/store"
	"github.com/samskrta/review-image/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewimage",
		Short: "Review-to-image ingestion, rendering, and chat-share service",
		RunE:  run,
	}

	f := rootCmd.Flags()
	f.String("config", "./config.yaml", "path to the configuration document")
	f.Int("port", 0, "HTTP port (overrides PORT env and the configuration document)")
	f.String("technician-dir", "./technicians", "directory holding static technician photos")

	_ = viper.BindPFlag("config", f.Lookup("config"))
	_ = viper.BindPFlag("port", f.Lookup("port"))
	_ = viper.BindPFlag("technician_dir", f.Lookup("technician-dir"))

	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// schedulerRegistry narrows *source.Registry's Get to the scheduler's own
// Adapter interface — source.Adapter's method set is a strict superset, so
// the underlying value satisfies it, but Go requires the exact return type
// at the call site.
type schedulerRegistry struct {
	*source.Registry
}

func (r schedulerRegistry) Get(name string) (scheduler.Adapter, bool) {
	return r.Registry.Get(name)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port := viper.GetInt("port"); port != 0 {
		cfg.Port = port
	}
	technicianDir := viper.GetString("technician_dir")

	fmt.Println("review-image starting")
	fmt.Printf("  company: %s\n", cfg.Company.Name)
	fmt.Printf("  port: %d\n", cfg.Port)
	fmt.Printf("  data path: %s\n", cfg.Ingestion.DataPath)
	fmt.Printf("  chat configured: %t\n", cfg.Chat.Configured())
	fmt.Println()

	st, err := store.Open(cfg.Ingestion.DataPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Shutdown(); err != nil {
			log.Printf("store shutdown: %v", err)
		}
	}()

	if maxAge := cfg.Ingestion.MaxAgeDays; maxAge > 0 {
		if removed := st.Prune(maxAge); removed > 0 {
			log.Printf("pruned %d stale reviews", removed)
		}
	}

	registry := source.NewRegistry()
	pollIntervals := make(map[string]time.Duration)
	for name, sc := range cfg.Ingestion.Sources {
		if !sc.Enabled {
			continue
		}
		adapterCfg := source.Config{
			Kind:         sc.Kind,
			ClientID:     sc.ClientID,
			ClientSecret: sc.ClientSecret,
			RefreshToken: sc.RefreshToken,
			TokenURL:     sc.TokenURL,
			ReviewsURL:   sc.ReviewsURL,
			APIKey:       sc.APIKey,
			FeedURL:      sc.FeedURL,
			BearerToken:  sc.BearerToken,
			PartnerURL:   sc.PartnerURL,
			PageSize:     sc.PageSize,
			FieldMapping: source.FieldMapping{
				ReviewerNameField: sc.FieldMapping.ReviewerNameField,
				RatingField:       sc.FieldMapping.RatingField,
				ReviewTextField:   sc.FieldMapping.ReviewTextField,
				ReviewDateField:   sc.FieldMapping.ReviewDateField,
				TechNameField:     sc.FieldMapping.TechNameField,
				TechPhotoURLField: sc.FieldMapping.TechPhotoURLField,
			},
		}
		if err := registry.Register(name, adapterCfg); err != nil {
			log.Printf("register source %q: %v", name, err)
			continue
		}
		if sc.PollInterval > 0 {
			pollIntervals[name] = sc.PollInterval
		}
	}

	coordinator, err := render.New(render.CompanyConfig{
		Name:            cfg.Company.Name,
		Phone:           cfg.Company.Phone,
		LogoURL:         cfg.Company.LogoURL,
		BrandColor:      cfg.Company.BrandColor,
		BrandColorDark:  cfg.Company.BrandColorDark,
		BaseURLOverride: cfg.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("init render coordinator: %w", err)
	}
	defer func() {
		if err := coordinator.Close(); err != nil {
			log.Printf("render coordinator close: %v", err)
		}
	}()

	var chatClient *chat.Client
	var sharer pipeline.Sharer
	if cfg.Chat.Configured() {
		chatClient = chat.New(cfg.Chat.BotToken, cfg.Chat.Channel, cfg.Chat.Technicians)
		sharer = chatClient
	}

	pl := pipeline.New(st, coordinator, sharer, pipeline.Options{
		AutoGenerate:          cfg.Ingestion.AutoGenerate,
		AutoShare:             cfg.Ingestion.AutoShare && cfg.Chat.Configured(),
		MinRatingForAutoShare: cfg.Ingestion.MinRatingForAutoShare,
	})

	globalInterval := time.Duration(cfg.Ingestion.PollIntervalMinutes) * time.Minute
	sched := scheduler.New(schedulerRegistry{registry}, st, pl, globalInterval, pollIntervals)

	webServer := web.New(cfg, st, registry, sched, coordinator, pl, chatClient, technicianDir)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Ingestion.Enabled {
		sched.Start(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("received %s, shutting down...", sig)
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("web server shutdown: %v", err)
	}

	return nil
}
