package bidding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"charity-auction/internal/bidhistory"
	"charity-auction/internal/biddingerrors"
	model "charity-auction/internal/models"
	"charity-auction/internal/repository"
	"charity-auction/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRetryBudget is how many read-validate-write attempts PlaceBid makes
// before it reports a conflict.
const DefaultRetryBudget = 5

// DefaultBidIncrement applies when an auction is created without one
const DefaultBidIncrement = 50

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo        repository.AuctionDB
	retryBudget int
	now         func() time.Time
	tracer      trace.Tracer
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithRetryBudget sets the number of conditional-write attempts per bid
func WithRetryBudget(n int) Option {
	return func(s *BiddingService) {
		if n > 0 {
			s.retryBudget = n
		}
	}
}

// WithClock replaces the wall clock used to timestamp and gate bids
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) {
		s.now = now
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:        repo,
		retryBudget: DefaultRetryBudget,
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      otel.Tracer("charity-auction/bidding"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceBid validates a bid against the latest auction state and commits it
// with a conditional write. A write that loses the race is retried against
// fresh state; after the retry budget is spent it reports ErrConflict.
func (s *BiddingService) PlaceBid(ctx context.Context, req model.BidRequest) (model.PlacedBid, error) {
	if req.AuctionID == "" || req.BidderID == "" {
		return model.PlacedBid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	displayName := strings.TrimSpace(req.BidderDisplayName)
	if displayName == "" {
		displayName = req.BidderID
	}
	bidID := req.IdempotencyKey
	if bidID == "" {
		bidID = utils.GenerateID()
	}

	ctx, span := s.tracer.Start(ctx, "bidding.place_bid", trace.WithAttributes(
		attribute.String("auction.id", req.AuctionID),
		attribute.String("bidder.id", req.BidderID),
		attribute.String("bid.id", bidID),
		attribute.Float64("bid.amount", req.Amount),
	))
	defer span.End()

	for attempt := 1; attempt <= s.retryBudget; attempt++ {
		span.SetAttributes(attribute.Int("bid.attempts", attempt))

		snapshot, err := s.repo.GetAuction(ctx, req.AuctionID)
		if err != nil {
			return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: failed to read auction %s: %w", req.AuctionID, storeFailure(err)))
		}

		// an earlier submission with this key already committed
		if prior, ok := bidhistory.Contains(snapshot.BidHistory, bidID); ok {
			if !sameSubmission(prior, req) {
				return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: %w - bid_id %s already used", biddingerrors.ErrInvalidBid, bidID))
			}
			span.SetAttributes(attribute.Bool("bid.replayed", true))
			utils.Debug("PlaceBid: replaying committed bid", map[string]any{"auction_id": req.AuctionID, "bid_id": bidID})
			return model.PlacedBid{Bid: prior, Auction: snapshot, Replayed: true}, nil
		}

		now := s.now()
		amount, err := ValidateBid(InputFor(snapshot, req.Amount, req.BidderID, now))
		if err != nil {
			return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: %w", err))
		}

		bid := model.Bid{
			BidID:             bidID,
			AuctionID:         req.AuctionID,
			BidderID:          req.BidderID,
			BidderDisplayName: displayName,
			Amount:            amount,
		}
		updated, err := s.repo.ConditionalWrite(ctx, repository.BidCommit{
			AuctionID:        req.AuctionID,
			ExpectedHighBid:  snapshot.CurrentHighBid,
			ExpectedBidCount: snapshot.BidCount,
			Bid:              bid,
		})
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("auction.current_high_bid", updated.CurrentHighBid.String()))
			if committed, ok := bidhistory.Contains(updated.BidHistory, bidID); ok {
				bid = committed
			}
			utils.Debug("PlaceBid: bid committed", map[string]any{
				"auction_id": req.AuctionID,
				"bid_id":     bidID,
				"attempt":    attempt,
				"amount":     amount.String(),
			})
			return model.PlacedBid{Bid: bid, Auction: updated}, nil
		case errors.Is(err, biddingerrors.ErrWriteConflict):
			span.AddEvent("bid.conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
			utils.Warn("PlaceBid: conditional write lost the race", map[string]any{
				"auction_id":      req.AuctionID,
				"bid_id":          bidID,
				"attempt":         attempt,
				"expected_high":   snapshot.CurrentHighBid.String(),
				"retry_budget":    s.retryBudget,
				"proposed_amount": amount.String(),
			})
			continue
		case errors.Is(err, biddingerrors.ErrAuctionNotLive), errors.Is(err, biddingerrors.ErrAuctionNotFound):
			return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: %w", err))
		default:
			return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: failed to commit bid on auction %s: %w",
				req.AuctionID, &biddingerrors.UnknownOutcomeError{BidID: bidID, Err: storeFailure(err)}))
		}
	}

	return model.PlacedBid{}, s.fail(span, fmt.Errorf("service: %w - %d attempts on auction %s",
		biddingerrors.ErrConflict, s.retryBudget, req.AuctionID))
}

// sameSubmission reports whether req resubmits the committed bid prior
func sameSubmission(prior model.Bid, req model.BidRequest) bool {
	if prior.BidderID != req.BidderID || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return false
	}
	return decimal.NewFromFloat(req.Amount).Equal(prior.Amount)
}

func (s *BiddingService) fail(span trace.Span, err error) error {
	span.SetStatus(codes.Error, biddingerrors.Reason(err))
	span.RecordError(err)
	return err
}

// storeFailure marks errors that are not domain outcomes as an unavailable store
func storeFailure(err error) error {
	if errors.Is(err, biddingerrors.ErrAuctionNotFound) || errors.Is(err, biddingerrors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", biddingerrors.ErrStoreUnavailable, err)
}

// CreateAuction validates the creation request and stores a new auction with no bids
func (s *BiddingService) CreateAuction(ctx context.Context, req model.NewAuction) (model.Auction, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing title", biddingerrors.ErrInvalidAuction)
	}
	if req.CreatedBy == "" {
		return model.Auction{}, fmt.Errorf("service: %w - missing creator", biddingerrors.ErrInvalidAuction)
	}
	if !positive(req.StartingBid) {
		return model.Auction{}, fmt.Errorf("service: %w - starting bid must be positive", biddingerrors.ErrInvalidAuction)
	}
	increment := req.BidIncrement
	if increment == 0 {
		increment = DefaultBidIncrement
	}
	if !positive(increment) {
		return model.Auction{}, fmt.Errorf("service: %w - bid increment must be positive", biddingerrors.ErrInvalidAuction)
	}

	now := s.now()
	start := req.StartDate
	if start.IsZero() {
		start = now
	}
	if !req.EndDate.After(start) {
		return model.Auction{}, fmt.Errorf("service: %w - end date must be after start date", biddingerrors.ErrInvalidAuction)
	}

	reserve, err := optionalPrice("reserve price", req.ReservePrice)
	if err != nil {
		return model.Auction{}, err
	}
	buyNow, err := optionalPrice("buy now price", req.BuyNowPrice)
	if err != nil {
		return model.Auction{}, err
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "Other"
	}

	starting := decimal.NewFromFloat(req.StartingBid)
	auction := model.Auction{
		AuctionID:      utils.GenerateID(),
		Title:          title,
		Description:    req.Description,
		Category:       category,
		CreatedBy:      req.CreatedBy,
		StartingBid:    starting,
		BidIncrement:   decimal.NewFromFloat(increment),
		CurrentHighBid: starting,
		BidHistory:     []model.Bid{},
		StartDate:      start.UTC(),
		EndDate:        req.EndDate.UTC(),
		ReservePrice:   reserve,
		BuyNowPrice:    buyNow,
		CreatedAt:      now,
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction %q: %w", title, err)
	}
	return auction, nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func optionalPrice(name string, v *float64) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	if !positive(*v) {
		return nil, fmt.Errorf("service: %w - %s must be positive", biddingerrors.ErrInvalidAuction, name)
	}
	d := decimal.NewFromFloat(*v)
	return &d, nil
}

// GetAuction returns the current snapshot of an auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	a, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, storeFailure(err))
	}
	return a, nil
}

// ListAuctions returns all auctions, newest first
func (s *BiddingService) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	auctions, err := s.repo.ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", storeFailure(err))
	}
	return auctions, nil
}

// GetBidsForAuction returns the bid history of an auction in acceptance order
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a.BidHistory == nil {
		return []model.Bid{}, nil
	}
	return a.BidHistory, nil
}

// GetWinningBid returns the most recently accepted, and therefore highest, bid
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Bid{}, err
	}
	last, ok := bidhistory.Last(a.BidHistory)
	if !ok {
		return model.Bid{}, fmt.Errorf("service: winning bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return last, nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}
	auctions, err := s.repo.GetAuctionsByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrUserNoBids) {
			return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
		}
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, storeFailure(err))
	}
	return auctions, nil
}

// GetAuctionsByCreator returns the auctions a user has listed, newest first
func (s *BiddingService) GetAuctionsByCreator(ctx context.Context, userID string) ([]model.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}
	auctions, err := s.ListAuctions(ctx)
	if err != nil {
		return nil, err
	}
	created := []model.Auction{}
	for _, a := range auctions {
		if a.CreatedBy == userID {
			created = append(created, a)
		}
	}
	return created, nil
}

// AuditAuction replays the bid history and checks it against the stored fields
func (s *BiddingService) AuditAuction(ctx context.Context, auctionID string) (model.AuditReport, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return model.AuditReport{}, err
	}
	derived := bidhistory.Derive(a)
	report := model.AuditReport{
		AuctionID:      a.AuctionID,
		Consistent:     true,
		BidCount:       derived.BidCount,
		CurrentHighBid: derived.CurrentHighBid,
		TopBidderID:    derived.TopBidderID,
	}
	if err := bidhistory.Verify(a); err != nil {
		report.Consistent = false
		report.Problem = err.Error()
		utils.Error("AuditAuction: bid history inconsistent", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
	}
	return report, nil
}
