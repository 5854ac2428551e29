package bidding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"charity-auction/internal/bidhistory"
	"charity-auction/internal/biddingerrors"
	model "charity-auction/internal/models"
	"charity-auction/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type bidOutcome struct {
	bidderID string
	amount   float64
	placed   model.PlacedBid
	err      error
}

// placeConcurrently releases every request at once and collects the outcomes
func placeConcurrently(svc *BiddingService, reqs []model.BidRequest) []bidOutcome {
	out := make([]bidOutcome, len(reqs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		i, req := i, req
		go func() {
			defer wg.Done()
			<-start
			placed, err := svc.PlaceBid(context.Background(), req)
			out[i] = bidOutcome{bidderID: req.BidderID, amount: req.Amount, placed: placed, err: err}
		}()
	}
	close(start)
	wg.Wait()
	return out
}

// settableClock is shared by a service and its store
type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// stallingStore moves the clock to at after the coordinator has validated but
// before its write reaches the store
type stallingStore struct {
	*repository.MemoryRepo
	clock *settableClock
	at    time.Time
}

func (s stallingStore) ConditionalWrite(ctx context.Context, c repository.BidCommit) (model.Auction, error) {
	s.clock.Set(s.at)
	return s.MemoryRepo.ConditionalWrite(ctx, c)
}

func TestPlaceBid_AuctionEndsDuringWrite(t *testing.T) {
	clock := &settableClock{now: windowEnd.Add(-time.Second)}
	mem := repository.NewMemoryRepo(repository.WithClock(clock.Now))
	mem.AddAuction(newAuction("auction1", 1000, 50))
	svc := NewBiddingService(stallingStore{MemoryRepo: mem, clock: clock, at: windowEnd.Add(10 * time.Second)}, WithClock(clock.Now))
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "A", Amount: 1050})
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionNotLive), "got: %v", err)

	final, err := mem.GetAuction(ctx, "auction1")
	require.NoError(t, err)
	require.Equal(t, 0, final.BidCount)
	require.Empty(t, final.BidHistory)
	requireDecimal(t, "1000", final.CurrentHighBid)
}

func TestPlaceBid_AuctionScenario(t *testing.T) {
	repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
	repo.AddAuction(newAuction("auction1", 1000, 50))
	svc := NewBiddingService(repo, WithClock(fixedClock))
	ctx := context.Background()

	placed, err := svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "A", Amount: 1050})
	require.NoError(t, err)
	requireDecimal(t, "1050", placed.Auction.CurrentHighBid)

	_, err = svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "B", Amount: 1060})
	var tooLow *biddingerrors.BidTooLowError
	require.True(t, errors.As(err, &tooLow), "got: %v", err)
	requireDecimal(t, "1100", tooLow.MinimumAcceptable)

	_, err = svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "B", Amount: 1100})
	require.NoError(t, err)

	outcomes := placeConcurrently(svc, []model.BidRequest{
		{AuctionID: "auction1", BidderID: "C", Amount: 1150},
		{AuctionID: "auction1", BidderID: "D", Amount: 1150},
	})

	var winners, losers int
	for _, o := range outcomes {
		if o.err == nil {
			winners++
			continue
		}
		losers++
		var loserTooLow *biddingerrors.BidTooLowError
		require.True(t, errors.As(o.err, &loserTooLow), "loser should be rejected as too low, got: %v", o.err)
		requireDecimal(t, "1200", loserTooLow.MinimumAcceptable)
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 1, losers)

	final, err := repo.GetAuction(ctx, "auction1")
	require.NoError(t, err)
	require.NoError(t, bidhistory.Verify(final))
	require.Equal(t, 3, final.BidCount)
	requireDecimal(t, "1150", final.CurrentHighBid)
}

func TestPlaceBid_SameAmountOnlyOneWins(t *testing.T) {
	repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
	repo.AddAuction(newAuction("auction1", 1000, 50))
	svc := NewBiddingService(repo, WithClock(fixedClock))

	reqs := make([]model.BidRequest, 50)
	for i := range reqs {
		reqs[i] = model.BidRequest{AuctionID: "auction1", BidderID: fmt.Sprintf("user-%d", i), Amount: 1050}
	}

	accepted := 0
	for _, o := range placeConcurrently(svc, reqs) {
		if o.err == nil {
			accepted++
			continue
		}
		// every loser is told why; nothing is silently dropped
		require.True(t, errors.Is(o.err, biddingerrors.ErrBidTooLow) || errors.Is(o.err, biddingerrors.ErrConflict), "got: %v", o.err)
	}
	require.Equal(t, 1, accepted)

	final, err := repo.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.Len(t, final.BidHistory, 1)
	require.NoError(t, bidhistory.Verify(final))
}

func TestPlaceBid_ConcurrentMonotonicity(t *testing.T) {
	repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
	repo.AddAuction(newAuction("auction1", 100, 5))
	svc := NewBiddingService(repo, WithClock(fixedClock))

	reqs := make([]model.BidRequest, 0, 200)
	for i := 0; i < 200; i++ {
		reqs = append(reqs, model.BidRequest{
			AuctionID: "auction1",
			BidderID:  fmt.Sprintf("user-%d", i%20),
			Amount:    float64(105 + (i*37)%400),
		})
	}

	outcomes := placeConcurrently(svc, reqs)

	final, err := repo.GetAuction(context.Background(), "auction1")
	require.NoError(t, err)
	require.NoError(t, bidhistory.Verify(final))

	accepted := 0
	highest := decimal.Zero
	for _, o := range outcomes {
		if o.err != nil {
			require.True(t, errors.Is(o.err, biddingerrors.ErrBidTooLow) || errors.Is(o.err, biddingerrors.ErrConflict), "got: %v", o.err)
			continue
		}
		accepted++
		if o.placed.Bid.Amount.GreaterThan(highest) {
			highest = o.placed.Bid.Amount
		}
		_, found := bidhistory.Contains(final.BidHistory, o.placed.Bid.BidID)
		require.True(t, found, "accepted bid %s missing from history", o.placed.Bid.BidID)
	}

	require.Equal(t, accepted, len(final.BidHistory))
	require.True(t, highest.Equal(final.CurrentHighBid), "final %s, highest accepted %s", final.CurrentHighBid, highest)
	for i := 1; i < len(final.BidHistory); i++ {
		require.True(t, final.BidHistory[i].Amount.GreaterThan(final.BidHistory[i-1].Amount))
	}
}

func TestPlaceBid_IdempotentResubmission(t *testing.T) {
	repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
	repo.AddAuction(newAuction("auction1", 1000, 50))
	svc := NewBiddingService(repo, WithClock(fixedClock))
	ctx := context.Background()

	req := model.BidRequest{AuctionID: "auction1", BidderID: "A", Amount: 1050, IdempotencyKey: "submission-1"}
	first, err := svc.PlaceBid(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := svc.PlaceBid(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Bid.BidID, second.Bid.BidID)

	final, err := repo.GetAuction(ctx, "auction1")
	require.NoError(t, err)
	require.Equal(t, 1, final.BidCount)
}

// a key committed by one bidder cannot be claimed by another
func TestPlaceBid_ReusedKeyRejected(t *testing.T) {
	repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
	repo.AddAuction(newAuction("auction1", 1000, 50))
	svc := NewBiddingService(repo, WithClock(fixedClock))
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "A", Amount: 1050, IdempotencyKey: "K"})
	require.NoError(t, err)

	placed, err := svc.PlaceBid(ctx, model.BidRequest{AuctionID: "auction1", BidderID: "B", Amount: 5000, IdempotencyKey: "K"})
	require.True(t, errors.Is(err, biddingerrors.ErrInvalidBid), "got: %v", err)
	require.False(t, placed.Replayed)

	final, err := repo.GetAuction(ctx, "auction1")
	require.NoError(t, err)
	require.Equal(t, 1, final.BidCount)
	require.Equal(t, "A", final.TopBidderID)
	requireDecimal(t, "1050", final.CurrentHighBid)
}

// sequential bids of random amounts keep the log consistent and accept exactly the valid ones
func TestPlaceBid_SequentialProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		starting := rapid.Int64Range(1, 5000).Draw(t, "starting")
		increment := rapid.Int64Range(1, 500).Draw(t, "increment")
		amounts := rapid.SliceOfN(rapid.Int64Range(-10, 20000), 1, 40).Draw(t, "amounts")

		repo := repository.NewMemoryRepo(repository.WithClock(fixedClock))
		repo.AddAuction(newAuction("auction1", starting, increment))
		svc := NewBiddingService(repo, WithClock(fixedClock))
		ctx := context.Background()

		high := starting
		count := 0
		for i, amount := range amounts {
			_, err := svc.PlaceBid(ctx, model.BidRequest{
				AuctionID: "auction1",
				BidderID:  fmt.Sprintf("user-%d", i%3),
				Amount:    float64(amount),
			})
			switch {
			case amount <= 0:
				require.True(t, errors.Is(err, biddingerrors.ErrInvalidAmount), "amount %d: %v", amount, err)
			case amount < high+increment:
				var tooLow *biddingerrors.BidTooLowError
				require.True(t, errors.As(err, &tooLow), "amount %d: %v", amount, err)
				require.True(t, decimal.NewFromInt(high+increment).Equal(tooLow.MinimumAcceptable))
			default:
				require.NoError(t, err)
				high = amount
				count++
			}
		}

		final, err := repo.GetAuction(ctx, "auction1")
		require.NoError(t, err)
		require.NoError(t, bidhistory.Verify(final))
		require.Equal(t, count, final.BidCount)
		require.True(t, decimal.NewFromInt(high).Equal(final.CurrentHighBid))
	})
}
