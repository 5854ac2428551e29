package biddingerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrNoBids           = errors.New("no bids found for auction")
	ErrUserNoBids       = errors.New("user has not placed any bids")
	ErrWriteConflict    = errors.New("auction state changed since it was read")
	ErrStoreUnavailable = errors.New("auction store unavailable")
)

// business logic errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	ErrAuctionNotLive = errors.New("auction is not accepting bids")
	ErrInvalidAmount  = errors.New("bid amount must be a finite positive number")
	ErrBidTooLow      = errors.New("bid amount too low")
	ErrConflict       = errors.New("concurrent bid won the race, refresh and resubmit")
)

// BidTooLowError reports the smallest amount that would have been accepted.
type BidTooLowError struct {
	CurrentHighBid    decimal.Decimal
	MinimumAcceptable decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: current high bid is %s, minimum acceptable is %s",
		ErrBidTooLow, e.CurrentHighBid.String(), e.MinimumAcceptable.String())
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// Reason returns the machine-readable rejection code for err, or "" if err is
// not a known bidding rejection.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAuctionNotLive):
		return "auction_not_live"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrAuctionNotFound):
		return "auction_not_found"
	case errors.Is(err, ErrInvalidBid):
		return "invalid_bid"
	case errors.Is(err, ErrInvalidAuction):
		return "invalid_auction"
	default:
		return ""
	}
}

// UnknownOutcomeError is returned when a conditional write failed in a way
// that does not tell whether it committed. Resubmitting with the same BidID is
// safe: a committed bid is found in the history instead of being applied twice.
type UnknownOutcomeError struct {
	BidID string
	Err   error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("outcome of bid %s unknown: %v", e.BidID, e.Err)
}

func (e *UnknownOutcomeError) Unwrap() error {
	return e.Err
}
