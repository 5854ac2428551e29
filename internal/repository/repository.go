package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"charity-auction/internal/biddingerrors"
	model "charity-auction/internal/models"
)

// AuctionDB defines the auction record store. ConditionalWrite is the only way
// to change bid state and must reject the write itself when the stored state
// no longer matches the commit's expectations.
type AuctionDB interface {
	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context) ([]model.Auction, error)
	ConditionalWrite(ctx context.Context, commit BidCommit) (model.Auction, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	now          func() time.Time
	mu           sync.RWMutex
	auctions     map[string]model.Auction // key: auctionID -> value: auction
	userAuctions map[string][]string      // key: userID -> value: list of auctionIDs user has bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo(opts ...Option) *MemoryRepo {
	o := buildOptions(opts)
	return &MemoryRepo{
		now:          o.now,
		auctions:     make(map[string]model.Auction),
		userAuctions: make(map[string][]string),
	}
}

// CreateAuction stores a new auction with no bids
func (r *MemoryRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	if err := newAuctionState(auction); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w - duplicate auction ID", auction.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	r.auctions[auction.AuctionID] = auction.Clone()
	return nil
}

// GetAuction returns a snapshot of the auction
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a.Clone(), nil
}

// ListAuctions returns every auction, newest first
func (r *MemoryRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, a.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

// ConditionalWrite commits a bid if the stored state still matches the commit
func (r *MemoryRepo) ConditionalWrite(ctx context.Context, commit BidCommit) (model.Auction, error) {
	if err := ctx.Err(); err != nil {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: %w: %v", commit.AuctionID, biddingerrors.ErrStoreUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.auctions[commit.AuctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: %w", commit.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	next, err := applyCommit(current, commit, r.now())
	if err != nil {
		return model.Auction{}, err
	}
	r.auctions[commit.AuctionID] = next

	bidderID := commit.Bid.BidderID
	for _, id := range r.userAuctions[bidderID] {
		if id == commit.AuctionID {
			return next.Clone(), nil
		}
	}
	r.userAuctions[bidderID] = append(r.userAuctions[bidderID], commit.AuctionID)
	return next.Clone(), nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.userAuctions[userID]
	if !ok || len(ids) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	out := make([]model.Auction, 0, len(ids))
	for _, id := range ids {
		if a, exists := r.auctions[id]; exists {
			out = append(out, a.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// AddAuction adds an auction to the repository without validation. This method is intended for tests and seeding only.
func (r *MemoryRepo) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction.Clone()
}

func sortNewestFirst(auctions []model.Auction) {
	sort.SliceStable(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
}
