package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"charity-auction/internal/biddingerrors"
	model "charity-auction/internal/models"

	bolt "github.com/boltdb/bolt"
)

var (
	auctionsBucket     = []byte("auctions")
	userAuctionsBucket = []byte("user_auctions")
)

// BoltRepo is a file-backed AuctionDB. BoltDB serializes read-write
// transactions, so evaluating the commit inside db.Update makes the
// compare and the write one atomic step.
type BoltRepo struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltRepo opens (or creates) the database file at path and ensures its buckets exist
func NewBoltRepo(path string, opts ...Option) (*BoltRepo, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("repository: open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{auctionsBucket, userAuctionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: create bolt buckets: %w", err)
	}

	return &BoltRepo{db: db, now: buildOptions(opts).now}, nil
}

// Close releases the database file lock
func (r *BoltRepo) Close() error {
	return r.db.Close()
}

// CreateAuction stores a new auction with no bids
func (r *BoltRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	if err := newAuctionState(auction); err != nil {
		return err
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(auctionsBucket)
		if b.Get([]byte(auction.AuctionID)) != nil {
			return fmt.Errorf("create auction %s: %w - duplicate auction ID", auction.AuctionID, biddingerrors.ErrInvalidAuction)
		}
		return putAuction(b, auction)
	})
	return storeErr("create auction", auction.AuctionID, err)
}

// GetAuction returns a snapshot of the auction
func (r *BoltRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var a model.Auction
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		a, err = getAuction(tx.Bucket(auctionsBucket), auctionID)
		return err
	})
	if err != nil {
		return model.Auction{}, storeErr("get auction", auctionID, err)
	}
	return a, nil
}

// ListAuctions returns every auction, newest first
func (r *BoltRepo) ListAuctions(ctx context.Context) ([]model.Auction, error) {
	out := []model.Auction{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(auctionsBucket).ForEach(func(k, v []byte) error {
			var a model.Auction
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, storeErr("list auctions", "", err)
	}
	sortNewestFirst(out)
	return out, nil
}

// ConditionalWrite commits a bid if the stored state still matches the commit
func (r *BoltRepo) ConditionalWrite(ctx context.Context, commit BidCommit) (model.Auction, error) {
	if err := ctx.Err(); err != nil {
		return model.Auction{}, fmt.Errorf("conditional write for auction %s: %w: %v", commit.AuctionID, biddingerrors.ErrStoreUnavailable, err)
	}

	var next model.Auction
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(auctionsBucket)
		current, err := getAuction(b, commit.AuctionID)
		if err != nil {
			return err
		}
		next, err = applyCommit(current, commit, r.now())
		if err != nil {
			return err
		}
		if err := putAuction(b, next); err != nil {
			return err
		}
		return addUserAuction(tx.Bucket(userAuctionsBucket), commit.Bid.BidderID, commit.AuctionID)
	})
	if err != nil {
		return model.Auction{}, storeErr("conditional write for auction", commit.AuctionID, err)
	}
	return next, nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (r *BoltRepo) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	var out []model.Auction
	err := r.db.View(func(tx *bolt.Tx) error {
		ids, err := getUserAuctions(tx.Bucket(userAuctionsBucket), userID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
		}
		b := tx.Bucket(auctionsBucket)
		for _, id := range ids {
			a, err := getAuction(b, id)
			if errors.Is(err, biddingerrors.ErrAuctionNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("get auctions for user", userID, err)
	}
	sortNewestFirst(out)
	return out, nil
}

func getAuction(b *bolt.Bucket, auctionID string) (model.Auction, error) {
	v := b.Get([]byte(auctionID))
	if v == nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	var a model.Auction
	if err := json.Unmarshal(v, &a); err != nil {
		return model.Auction{}, err
	}
	return a, nil
}

func putAuction(b *bolt.Bucket, a model.Auction) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return b.Put([]byte(a.AuctionID), data)
}

func getUserAuctions(b *bolt.Bucket, userID string) ([]string, error) {
	v := b.Get([]byte(userID))
	if v == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func addUserAuction(b *bolt.Bucket, userID, auctionID string) error {
	ids, err := getUserAuctions(b, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == auctionID {
			return nil
		}
	}
	data, err := json.Marshal(append(ids, auctionID))
	if err != nil {
		return err
	}
	return b.Put([]byte(userID), data)
}

// storeErr passes domain errors through and marks everything else as an
// unavailable store so callers do not mistake I/O failures for rejections.
func storeErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{
		biddingerrors.ErrAuctionNotFound,
		biddingerrors.ErrAuctionNotLive,
		biddingerrors.ErrWriteConflict,
		biddingerrors.ErrInvalidAuction,
		biddingerrors.ErrUserNoBids,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%s %s: %w: %v", op, id, biddingerrors.ErrStoreUnavailable, err)
}
