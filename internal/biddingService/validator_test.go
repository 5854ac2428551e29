package bidding

import (
	"errors"
	"math"
	"testing"
	"time"

	"charity-auction/internal/biddingerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateBid(t *testing.T) {
	t.Parallel()

	base := ValidationInput{
		CurrentHighBid: decimal.NewFromInt(1050),
		BidIncrement:   decimal.NewFromInt(50),
		StartDate:      windowStart,
		EndDate:        windowEnd,
		Now:            fixedNow,
		BidderID:       "userB",
	}

	tests := []struct {
		name          string
		mutate        func(in *ValidationInput)
		amount        float64
		expectedError error
		wantMinimum   string
	}{
		{name: "exact_minimum_accepted", amount: 1100},
		{name: "above_minimum_accepted", amount: 5000},
		{name: "fractional_amount_accepted", amount: 1100.25},
		{name: "one_below_minimum", amount: 1099, expectedError: biddingerrors.ErrBidTooLow, wantMinimum: "1100"},
		{name: "equal_to_current_high", amount: 1050, expectedError: biddingerrors.ErrBidTooLow, wantMinimum: "1100"},
		{name: "zero_amount", amount: 0, expectedError: biddingerrors.ErrInvalidAmount},
		{name: "negative_amount", amount: -50, expectedError: biddingerrors.ErrInvalidAmount},
		{name: "nan_amount", amount: math.NaN(), expectedError: biddingerrors.ErrInvalidAmount},
		{name: "infinite_amount", amount: math.Inf(1), expectedError: biddingerrors.ErrInvalidAmount},
		{
			name:          "before_start",
			mutate:        func(in *ValidationInput) { in.Now = windowStart.Add(-time.Second) },
			amount:        2000,
			expectedError: biddingerrors.ErrAuctionNotLive,
		},
		{
			name:          "one_second_after_end",
			mutate:        func(in *ValidationInput) { in.Now = windowEnd.Add(time.Second) },
			amount:        2000,
			expectedError: biddingerrors.ErrAuctionNotLive,
		},
		{
			name:   "exactly_at_end",
			mutate: func(in *ValidationInput) { in.Now = windowEnd },
			amount: 1100,
		},
		{
			// window is checked before the amount
			name:          "closed_auction_with_invalid_amount",
			mutate:        func(in *ValidationInput) { in.Now = windowEnd.Add(time.Hour) },
			amount:        -1,
			expectedError: biddingerrors.ErrAuctionNotLive,
		},
		{
			name:   "top_bidder_may_rebid",
			mutate: func(in *ValidationInput) { in.BidderID = "userA" },
			amount: 1100,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := base
			in.Amount = tc.amount
			if tc.mutate != nil {
				tc.mutate(&in)
			}

			amount, err := ValidateBid(in)
			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				if tc.wantMinimum != "" {
					var tooLow *biddingerrors.BidTooLowError
					require.True(t, errors.As(err, &tooLow))
					requireDecimal(t, tc.wantMinimum, tooLow.MinimumAcceptable)
					requireDecimal(t, "1050", tooLow.CurrentHighBid)
				}
				return
			}
			require.NoError(t, err)
			require.True(t, decimal.NewFromFloat(tc.amount).Equal(amount))
		})
	}
}

func TestValidateBid_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		high := rapid.Int64Range(1, 1_000_000).Draw(t, "high")
		inc := rapid.Int64Range(1, 10_000).Draw(t, "increment")
		amount := rapid.Float64Range(-1000, 2_000_000).Draw(t, "amount")
		offset := rapid.Int64Range(-100, 100).Draw(t, "offset_hours")

		in := ValidationInput{
			CurrentHighBid: decimal.NewFromInt(high),
			BidIncrement:   decimal.NewFromInt(inc),
			StartDate:      windowStart,
			EndDate:        windowEnd,
			Now:            windowStart.Add(time.Duration(offset) * time.Hour),
			Amount:         amount,
			BidderID:       "bidder",
		}

		first, err1 := ValidateBid(in)
		second, err2 := ValidateBid(in)

		// identical inputs give identical decisions
		require.True(t, first.Equal(second))
		require.Equal(t, err1 == nil, err2 == nil)
		if err1 != nil {
			require.Equal(t, err1.Error(), err2.Error())
		}

		live := offset >= 0 && offset <= 72
		minimum := decimal.NewFromInt(high + inc)
		wantAccept := live && amount > 0 && !decimal.NewFromFloat(amount).LessThan(minimum)
		require.Equal(t, wantAccept, err1 == nil, "amount=%v minimum=%s live=%v err=%v", amount, minimum, live, err1)

		if live && amount > 0 && !wantAccept {
			var tooLow *biddingerrors.BidTooLowError
			require.True(t, errors.As(err1, &tooLow))
			require.True(t, minimum.Equal(tooLow.MinimumAcceptable))
		}
	})
}
