package helpers

import (
	"time"

	"charity-auction/internal/lifecycle"
	model "charity-auction/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs

// PlaceBidRequest carries the amount as a bare number so that zero, negative
// and non-numeric values reach the validator and get a bidding reason code.
type PlaceBidRequest struct {
	BidderID          string  `json:"bidder_id" binding:"required"`
	BidderDisplayName string  `json:"bidder_display_name"`
	Amount            float64 `json:"amount"`
	// BidID is optional; clients that may resubmit after a timeout supply one
	BidID string `json:"bid_id"`
}

type CreateAuctionRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	CreatedBy    string     `json:"created_by" binding:"required"`
	StartingBid  float64    `json:"starting_bid" binding:"required,gt=0"`
	BidIncrement float64    `json:"bid_increment" binding:"omitempty,gt=0"`
	ReservePrice *float64   `json:"reserve_price" binding:"omitempty,gt=0"`
	BuyNowPrice  *float64   `json:"buy_now_price" binding:"omitempty,gt=0"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
}

// ToModel converts the request to the service's creation input
func (r CreateAuctionRequest) ToModel() model.NewAuction {
	na := model.NewAuction{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		CreatedBy:    r.CreatedBy,
		StartingBid:  r.StartingBid,
		BidIncrement: r.BidIncrement,
		ReservePrice: r.ReservePrice,
		BuyNowPrice:  r.BuyNowPrice,
		EndDate:      r.EndDate,
	}
	if r.StartDate != nil {
		na.StartDate = *r.StartDate
	}
	return na
}

type BidResponse struct {
	BidID             string  `json:"bid_id"`
	AuctionID         string  `json:"auction_id"`
	BidderID          string  `json:"bidder_id"`
	BidderDisplayName string  `json:"bidder_display_name"`
	Amount            float64 `json:"amount"`
	AcceptedAt        string  `json:"accepted_at"`
}

// PlaceBidResponse is returned for an accepted bid together with the
// auction state it produced
type PlaceBidResponse struct {
	BidResponse
	CurrentHighBid float64 `json:"current_high_bid"`
	BidCount       int     `json:"bid_count"`
	MinimumNextBid float64 `json:"minimum_next_bid"`
	Replayed       bool    `json:"replayed"`
}

// AuctionSummary is the list projection of an auction
type AuctionSummary struct {
	AuctionID      string  `json:"auction_id"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	CreatedBy      string  `json:"created_by"`
	CurrentHighBid float64 `json:"current_high_bid"`
	BidCount       int     `json:"bid_count"`
	TopBidderName  string  `json:"top_bidder_display_name,omitempty"`
	Status         string  `json:"status"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
}

// AuctionResponse is the full auction view, including bid history
type AuctionResponse struct {
	AuctionSummary
	Description    string        `json:"description"`
	StartingBid    float64       `json:"starting_bid"`
	BidIncrement   float64       `json:"bid_increment"`
	TopBidderID    string        `json:"top_bidder_id,omitempty"`
	ReservePrice   *float64      `json:"reserve_price,omitempty"`
	BuyNowPrice    *float64      `json:"buy_now_price,omitempty"`
	ReserveMet     bool          `json:"reserve_met"`
	IsLive         bool          `json:"is_live"`
	MinimumNextBid float64       `json:"minimum_next_bid"`
	BidHistory     []BidResponse `json:"bid_history"`
	CreatedAt      string        `json:"created_at"`
}

type AuditResponse struct {
	AuctionID      string  `json:"auction_id"`
	Consistent     bool    `json:"consistent"`
	Problem        string  `json:"problem,omitempty"`
	BidCount       int     `json:"bid_count"`
	CurrentHighBid float64 `json:"current_high_bid"`
	TopBidderID    string  `json:"top_bidder_id,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:             b.BidID,
		AuctionID:         b.AuctionID,
		BidderID:          b.BidderID,
		BidderDisplayName: b.BidderDisplayName,
		Amount:            b.Amount.InexactFloat64(),
		AcceptedAt:        formatTime(b.AcceptedAt),
	}
}

func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}

func NewPlaceBidResponse(p model.PlacedBid) PlaceBidResponse {
	return PlaceBidResponse{
		BidResponse:    NewBidResponse(p.Bid),
		CurrentHighBid: p.Auction.CurrentHighBid.InexactFloat64(),
		BidCount:       p.Auction.BidCount,
		MinimumNextBid: p.Auction.MinimumNextBid().InexactFloat64(),
		Replayed:       p.Replayed,
	}
}

func NewAuctionSummary(a model.Auction, now time.Time) AuctionSummary {
	return AuctionSummary{
		AuctionID:      a.AuctionID,
		Title:          a.Title,
		Category:       a.Category,
		CreatedBy:      a.CreatedBy,
		CurrentHighBid: a.CurrentHighBid.InexactFloat64(),
		BidCount:       a.BidCount,
		TopBidderName:  a.TopBidderDisplayName,
		Status:         lifecycle.Status(now, a.StartDate, a.EndDate),
		StartDate:      formatTime(a.StartDate),
		EndDate:        formatTime(a.EndDate),
	}
}

func NewAuctionSummaries(auctions []model.Auction, now time.Time) []AuctionSummary {
	out := make([]AuctionSummary, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, NewAuctionSummary(a, now))
	}
	return out
}

func NewAuctionResponse(a model.Auction, now time.Time) AuctionResponse {
	return AuctionResponse{
		AuctionSummary: NewAuctionSummary(a, now),
		Description:    a.Description,
		StartingBid:    a.StartingBid.InexactFloat64(),
		BidIncrement:   a.BidIncrement.InexactFloat64(),
		TopBidderID:    a.TopBidderID,
		ReservePrice:   optionalFloat(a.ReservePrice),
		BuyNowPrice:    optionalFloat(a.BuyNowPrice),
		ReserveMet:     a.ReserveMet(),
		IsLive:         lifecycle.IsLive(now, a.StartDate, a.EndDate),
		MinimumNextBid: a.MinimumNextBid().InexactFloat64(),
		BidHistory:     NewBidResponses(a.BidHistory),
		CreatedAt:      formatTime(a.CreatedAt),
	}
}

func NewAuditResponse(r model.AuditReport) AuditResponse {
	return AuditResponse{
		AuctionID:      r.AuctionID,
		Consistent:     r.Consistent,
		Problem:        r.Problem,
		BidCount:       r.BidCount,
		CurrentHighBid: r.CurrentHighBid.InexactFloat64(),
		TopBidderID:    r.TopBidderID,
	}
}
