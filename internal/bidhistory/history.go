// Package bidhistory holds the rules of an auction's append-only bid log.
//
// The log is the audit trail of an auction: entries appear in the order their
// conditional writes committed and are never edited or reordered. The
// denormalized fields on the auction (current high bid, top bidder, bid count)
// must always be derivable from it.
package bidhistory

import (
	"errors"
	"fmt"

	model "charity-auction/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInconsistent is wrapped by every Verify failure
var ErrInconsistent = errors.New("bid history inconsistent")

// Append returns a new log with bid added at the end. The input slice is not
// modified, so snapshots holding the old log stay valid.
func Append(history []model.Bid, bid model.Bid) []model.Bid {
	out := make([]model.Bid, len(history), len(history)+1)
	copy(out, history)
	return append(out, bid)
}

// Last returns the most recently accepted bid
func Last(history []model.Bid) (model.Bid, bool) {
	if len(history) == 0 {
		return model.Bid{}, false
	}
	return history[len(history)-1], true
}

// Contains reports whether a bid with bidID has already been committed
func Contains(history []model.Bid, bidID string) (model.Bid, bool) {
	for _, b := range history {
		if b.BidID == bidID {
			return b, true
		}
	}
	return model.Bid{}, false
}

// Derived is the auction state implied by a bid log
type Derived struct {
	CurrentHighBid decimal.Decimal
	TopBidderID    string
	BidCount       int
}

// Verify checks that the auction's log obeys the ordering rules and that the
// denormalized fields match its last entry.
func Verify(a model.Auction) error {
	prev := a.StartingBid
	for i, b := range a.BidHistory {
		if b.AuctionID != "" && b.AuctionID != a.AuctionID {
			return fmt.Errorf("%w: entry %d belongs to auction %s", ErrInconsistent, i, b.AuctionID)
		}
		required := prev.Add(a.BidIncrement)
		if b.Amount.LessThan(required) {
			return fmt.Errorf("%w: entry %d amount %s below required %s", ErrInconsistent, i, b.Amount, required)
		}
		if i > 0 && b.AcceptedAt.Before(a.BidHistory[i-1].AcceptedAt) {
			return fmt.Errorf("%w: entry %d accepted before entry %d", ErrInconsistent, i, i-1)
		}
		prev = b.Amount
	}

	if a.BidCount != len(a.BidHistory) {
		return fmt.Errorf("%w: bid count %d but %d entries", ErrInconsistent, a.BidCount, len(a.BidHistory))
	}

	last, ok := Last(a.BidHistory)
	if !ok {
		if !a.CurrentHighBid.Equal(a.StartingBid) {
			return fmt.Errorf("%w: no bids but current high bid %s differs from starting bid %s",
				ErrInconsistent, a.CurrentHighBid, a.StartingBid)
		}
		if a.TopBidderID != "" {
			return fmt.Errorf("%w: no bids but top bidder is %s", ErrInconsistent, a.TopBidderID)
		}
		return nil
	}
	if !a.CurrentHighBid.Equal(last.Amount) {
		return fmt.Errorf("%w: current high bid %s but last entry is %s", ErrInconsistent, a.CurrentHighBid, last.Amount)
	}
	if a.TopBidderID != last.BidderID {
		return fmt.Errorf("%w: top bidder %s but last entry is by %s", ErrInconsistent, a.TopBidderID, last.BidderID)
	}
	return nil
}

// Derive replays the log from the starting bid
func Derive(a model.Auction) Derived {
	d := Derived{CurrentHighBid: a.StartingBid, BidCount: len(a.BidHistory)}
	if last, ok := Last(a.BidHistory); ok {
		d.CurrentHighBid = last.Amount
		d.TopBidderID = last.BidderID
	}
	return d
}
