package bidding

import (
	"time"

	model "charity-auction/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(72 * time.Hour)
	fixedNow    = windowStart.Add(time.Hour)
)

func fixedClock() time.Time { return fixedNow }

// storeTime is when a mocked store reports a write landed
var storeTime = fixedNow.Add(time.Second)

// Helper to stamp a committed bid the way a store does
func stamped(b model.Bid) model.Bid {
	b.AcceptedAt = storeTime
	return b
}

// Helper to create an auction with no bids inside the test window
func newAuction(auctionID string, startingBid, increment int64) model.Auction {
	return model.Auction{
		AuctionID:      auctionID,
		Title:          "Signed guitar",
		Category:       "Music",
		CreatedBy:      "celeb1",
		StartingBid:    decimal.NewFromInt(startingBid),
		BidIncrement:   decimal.NewFromInt(increment),
		CurrentHighBid: decimal.NewFromInt(startingBid),
		BidHistory:     []model.Bid{},
		StartDate:      windowStart,
		EndDate:        windowEnd,
		CreatedAt:      windowStart.Add(-time.Hour),
	}
}

// Helper to return a copy of a with the given accepted bids appended
func withBids(a model.Auction, bids ...model.Bid) model.Auction {
	out := a.Clone()
	for _, b := range bids {
		b.AuctionID = a.AuctionID
		out.BidHistory = append(out.BidHistory, b)
		out.CurrentHighBid = b.Amount
		out.TopBidderID = b.BidderID
		out.TopBidderDisplayName = b.BidderDisplayName
		out.BidCount++
	}
	return out
}

// Helper to create an accepted bid
func acceptedBid(bidID, bidderID string, amount int64) model.Bid {
	return model.Bid{
		BidID:             bidID,
		BidderID:          bidderID,
		BidderDisplayName: bidderID,
		Amount:            decimal.NewFromInt(amount),
		AcceptedAt:        fixedNow.Add(-time.Minute),
	}
}

func requireDecimal(t require.TestingT, want string, got decimal.Decimal) {
	require.True(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got.String())
}
