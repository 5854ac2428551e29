package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"charity-auction/internal/biddingerrors"
	"charity-auction/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONRejection(c, http.StatusBadRequest, wrappedErr, "invalid request payload", "invalid_request", nil)
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	var unknown *biddingerrors.UnknownOutcomeError
	switch {
	case errors.As(err, &unknown):
		return http.StatusServiceUnavailable, "bid outcome unknown, resubmit with the same bid_id"
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, biddingerrors.ErrAuctionNotLive):
		return http.StatusForbidden, "auction is not accepting bids"
	case errors.Is(err, biddingerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid bid amount"
	case errors.Is(err, biddingerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, biddingerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, biddingerrors.ErrBidTooLow):
		return http.StatusUnprocessableEntity, "bid amount too low"
	case errors.Is(err, biddingerrors.ErrConflict):
		return http.StatusConflict, "auction is busy, refresh and resubmit"
	case errors.Is(err, biddingerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "auction store unavailable"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusOK, "no auctions found for user"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// RejectionDetails returns the fields a client needs to act on err
func RejectionDetails(err error) map[string]any {
	details := map[string]any{}
	var tooLow *biddingerrors.BidTooLowError
	if errors.As(err, &tooLow) {
		details["current_high_bid"] = tooLow.CurrentHighBid.InexactFloat64()
		details["minimum_acceptable"] = tooLow.MinimumAcceptable.InexactFloat64()
	}
	var unknown *biddingerrors.UnknownOutcomeError
	if errors.As(err, &unknown) {
		details["bid_id"] = unknown.BidID
	}
	return details
}

// RespondError writes the error envelope for err, including its reason code
func RespondError(c *gin.Context, err error) {
	status, message := MapErrorToHTTP(err)
	utils.JSONRejection(c, status, fmt.Errorf("%s: %w", message, err), message, biddingerrors.Reason(err), RejectionDetails(err))
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
