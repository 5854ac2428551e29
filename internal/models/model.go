package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction is the aggregate root for bidding on one charity item
type Auction struct {
	AuctionID            string           `json:"auction_id"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	Category             string           `json:"category"`
	CreatedBy            string           `json:"created_by"`
	StartingBid          decimal.Decimal  `json:"starting_bid"`
	BidIncrement         decimal.Decimal  `json:"bid_increment"`
	CurrentHighBid       decimal.Decimal  `json:"current_high_bid"`
	BidCount             int              `json:"bid_count"`
	TopBidderID          string           `json:"top_bidder_id,omitempty"`
	TopBidderDisplayName string           `json:"top_bidder_display_name,omitempty"`
	BidHistory           []Bid            `json:"bid_history"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	ReservePrice         *decimal.Decimal `json:"reserve_price,omitempty"`
	BuyNowPrice          *decimal.Decimal `json:"buy_now_price,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

// MinimumNextBid is the smallest amount the next bid must reach
func (a Auction) MinimumNextBid() decimal.Decimal {
	return a.CurrentHighBid.Add(a.BidIncrement)
}

// ReserveMet reports whether the current high bid has reached the reserve.
// Auctions without a reserve always report true.
func (a Auction) ReserveMet() bool {
	if a.ReservePrice == nil {
		return true
	}
	return a.BidCount > 0 && a.CurrentHighBid.GreaterThanOrEqual(*a.ReservePrice)
}

// Clone returns a copy that shares no mutable state with a
func (a Auction) Clone() Auction {
	c := a
	c.BidHistory = append([]Bid(nil), a.BidHistory...)
	if a.ReservePrice != nil {
		v := *a.ReservePrice
		c.ReservePrice = &v
	}
	if a.BuyNowPrice != nil {
		v := *a.BuyNowPrice
		c.BuyNowPrice = &v
	}
	return c
}

// Bid is an accepted bid. It is never mutated after it is committed.
type Bid struct {
	BidID             string          `json:"bid_id"`
	AuctionID         string          `json:"auction_id"`
	BidderID          string          `json:"bidder_id"`
	BidderDisplayName string          `json:"bidder_display_name"`
	Amount            decimal.Decimal `json:"amount"`
	AcceptedAt        time.Time       `json:"accepted_at"`
}

// BidRequest is a proposed bid as submitted by an authorized bidder
type BidRequest struct {
	AuctionID         string
	BidderID          string
	BidderDisplayName string
	Amount            float64
	// IdempotencyKey identifies one submission; resubmitting with the same key
	// never commits a second bid. Generated when empty.
	IdempotencyKey string
}

// PlacedBid is the outcome of an accepted bid
type PlacedBid struct {
	Bid     Bid
	Auction Auction
	// Replayed is true when the key had already been committed by an earlier submission
	Replayed bool
}

// NewAuction holds the fields supplied by the auction-creation workflow
type NewAuction struct {
	Title        string
	Description  string
	Category     string
	CreatedBy    string
	StartingBid  float64
	BidIncrement float64
	ReservePrice *float64
	BuyNowPrice  *float64
	StartDate    time.Time
	EndDate      time.Time
}

// AuditReport is the result of replaying an auction's bid history
type AuditReport struct {
	AuctionID      string          `json:"auction_id"`
	Consistent     bool            `json:"consistent"`
	Problem        string          `json:"problem,omitempty"`
	BidCount       int             `json:"bid_count"`
	CurrentHighBid decimal.Decimal `json:"current_high_bid"`
	TopBidderID    string          `json:"top_bidder_id,omitempty"`
}
