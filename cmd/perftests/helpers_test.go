package perftests

import (
	"fmt"
	"time"

	model "charity-auction/internal/models"
	repository "charity-auction/internal/repository"

	"github.com/shopspring/decimal"
)

// benchAuction returns a live auction with no bids and a unit increment
func benchAuction(auctionID string, startingBid int64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:      auctionID,
		Title:          "Benchmark " + auctionID,
		Description:    "Benchmark auction",
		Category:       "Other",
		CreatedBy:      "celeb_bench",
		StartingBid:    decimal.NewFromInt(startingBid),
		BidIncrement:   decimal.NewFromInt(1),
		CurrentHighBid: decimal.NewFromInt(startingBid),
		BidHistory:     []model.Bid{},
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(24 * time.Hour),
		CreatedAt:      now,
	}
}

func seedAuctions(repo *repository.MemoryRepo, n int, startingBid int64) {
	for i := 0; i < n; i++ {
		repo.AddAuction(benchAuction(fmt.Sprintf("auction_%d", i), startingBid))
	}
}
