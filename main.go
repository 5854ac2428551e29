package main

import (
	"context"
	"io"
	"time"

	bidding "charity-auction/internal/biddingService"
	"charity-auction/internal/config"
	model "charity-auction/internal/models"
	"charity-auction/internal/repository"
	"charity-auction/internal/server"
	"charity-auction/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLogLevel(cfg.LogLevel); err != nil {
		utils.Warn("unknown log level, keeping info", map[string]any{"level": cfg.LogLevel})
	}

	repo, closer, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open auction store", map[string]any{"driver": cfg.StoreDriver, "error": err.Error()})
	}
	defer closer.Close()

	biddingSvc := bidding.NewBiddingService(repo, bidding.WithRetryBudget(cfg.RetryBudget))

	if cfg.SeedDemo {
		seedAuctions(biddingSvc)
	}

	router := server.SetupRouter(biddingSvc, server.NewBidLimiter(cfg.BidRateLimit, cfg.BidRateBurst))

	utils.Info("starting auction server", map[string]any{"port": cfg.Port, "store": cfg.StoreDriver})
	if err := router.Run(cfg.Port); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore returns the auction store selected by cfg.StoreDriver
func openStore(cfg config.Config) (repository.AuctionDB, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverBolt:
		repo, err := repository.NewBoltRepo(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		repo, err := repository.NewPostgresRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return repository.NewMemoryRepo(), nopCloser{}, nil
	}
}

// seedAuctions creates a few live sample auctions for local runs
func seedAuctions(svc *bidding.BiddingService) {
	now := time.Now().UTC()
	reserve := 2500.0
	samples := []model.NewAuction{
		{Title: "Signed acoustic guitar", Description: "Played on the farewell tour", Category: "Music", CreatedBy: "celeb-demo-1", StartingBid: 1000, EndDate: now.Add(72 * time.Hour), ReservePrice: &reserve},
		{Title: "Dinner with a chef", Description: "Private tasting menu for four", Category: "Experiences", CreatedBy: "celeb-demo-2", StartingBid: 500, BidIncrement: 25, EndDate: now.Add(48 * time.Hour)},
		{Title: "Film prop helmet", Category: "Film", CreatedBy: "celeb-demo-3", StartingBid: 1500, EndDate: now.Add(24 * time.Hour)},
	}

	ctx := context.Background()
	for _, s := range samples {
		a, err := svc.CreateAuction(ctx, s)
		if err != nil {
			utils.Error("failed to seed auction", map[string]any{"title": s.Title, "error": err.Error()})
			continue
		}
		utils.Info("seeded auction", map[string]any{"auction_id": a.AuctionID, "title": a.Title})
	}
}
