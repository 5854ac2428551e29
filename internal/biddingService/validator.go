package bidding

import (
	"fmt"
	"math"
	"time"

	"charity-auction/internal/biddingerrors"
	"charity-auction/internal/lifecycle"
	model "charity-auction/internal/models"

	"github.com/shopspring/decimal"
)

// ValidationInput is everything ValidateBid needs to decide on a bid
type ValidationInput struct {
	CurrentHighBid decimal.Decimal
	BidIncrement   decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	Now            time.Time
	Amount         float64
	BidderID       string
}

// InputFor builds the validation input for a bid against an auction snapshot
func InputFor(a model.Auction, amount float64, bidderID string, now time.Time) ValidationInput {
	return ValidationInput{
		CurrentHighBid: a.CurrentHighBid,
		BidIncrement:   a.BidIncrement,
		StartDate:      a.StartDate,
		EndDate:        a.EndDate,
		Now:            now,
		Amount:         amount,
		BidderID:       bidderID,
	}
}

// ValidateBid decides whether a proposed bid is acceptable. It has no side
// effects; a nil error means accept and the returned decimal is the exact bid
// amount. Rules are checked in order: window, amount, increment.
//
// The current top bidder may raise their own bid, so BidderID does not take
// part in the decision.
func ValidateBid(in ValidationInput) (decimal.Decimal, error) {
	if !lifecycle.IsLive(in.Now, in.StartDate, in.EndDate) {
		return decimal.Zero, fmt.Errorf("%w - bidding window is %s to %s",
			biddingerrors.ErrAuctionNotLive, in.StartDate.UTC().Format(time.RFC3339), in.EndDate.UTC().Format(time.RFC3339))
	}

	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return decimal.Zero, fmt.Errorf("%w - got %v", biddingerrors.ErrInvalidAmount, in.Amount)
	}
	amount := decimal.NewFromFloat(in.Amount)

	minimum := in.CurrentHighBid.Add(in.BidIncrement)
	if amount.LessThan(minimum) {
		return decimal.Zero, &biddingerrors.BidTooLowError{
			CurrentHighBid:    in.CurrentHighBid,
			MinimumAcceptable: minimum,
		}
	}

	return amount, nil
}
