package repository

import (
	"fmt"
	"time"

	"charity-auction/internal/bidhistory"
	"charity-auction/internal/biddingerrors"
	"charity-auction/internal/lifecycle"
	model "charity-auction/internal/models"

	"github.com/shopspring/decimal"
)

// BidCommit is one conditional write: append Bid to the auction, but only if
// the stored high bid and bid count still match what the writer read. The
// store decides liveness and AcceptedAt with its own clock at write time.
type BidCommit struct {
	AuctionID        string
	ExpectedHighBid  decimal.Decimal
	ExpectedBidCount int
	Bid              model.Bid
}

// Option configures a MemoryRepo or BoltRepo
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock sets the clock a store checks the bidding window against when a
// write lands and stamps AcceptedAt with. Defaults to the UTC wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// applyCommit evaluates the commit against the stored auction at time now and
// returns the new state. It is the single compare-and-swap rule shared by every
// store that evaluates the condition in Go; callers must hold the auction
// exclusively and read now while holding it.
func applyCommit(current model.Auction, c BidCommit, now time.Time) (model.Auction, error) {
	if !lifecycle.IsLive(now, current.StartDate, current.EndDate) {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: %w", c.AuctionID, biddingerrors.ErrAuctionNotLive)
	}
	if !current.CurrentHighBid.Equal(c.ExpectedHighBid) || current.BidCount != c.ExpectedBidCount {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: expected high bid %s, stored %s: %w",
			c.AuctionID, c.ExpectedHighBid, current.CurrentHighBid, biddingerrors.ErrWriteConflict)
	}
	if _, dup := bidhistory.Contains(current.BidHistory, c.Bid.BidID); dup {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: bid %s already committed: %w",
			c.AuctionID, c.Bid.BidID, biddingerrors.ErrWriteConflict)
	}
	if c.Bid.Amount.LessThan(current.MinimumNextBid()) {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: amount %s below %s: %w",
			c.AuctionID, c.Bid.Amount, current.MinimumNextBid(), biddingerrors.ErrWriteConflict)
	}

	bid := c.Bid
	bid.AcceptedAt = now
	// acceptance order is the history order, even across writers with skewed clocks
	if last, ok := bidhistory.Last(current.BidHistory); ok && bid.AcceptedAt.Before(last.AcceptedAt) {
		bid.AcceptedAt = last.AcceptedAt
	}

	next := current.Clone()
	next.CurrentHighBid = c.Bid.Amount
	next.TopBidderID = c.Bid.BidderID
	next.TopBidderDisplayName = c.Bid.BidderDisplayName
	next.BidCount = current.BidCount + 1
	next.BidHistory = bidhistory.Append(current.BidHistory, bid)
	return next, nil
}

// newAuctionState checks a freshly created auction before it is stored
func newAuctionState(a model.Auction) error {
	if a.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}
	if a.BidCount != 0 || len(a.BidHistory) != 0 || !a.CurrentHighBid.Equal(a.StartingBid) {
		return fmt.Errorf("create auction %s: %w - auction must start with no bids", a.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	return nil
}
