package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "charity-auction/internal/biddingService"
	model "charity-auction/internal/models"
	"charity-auction/internal/repository"
	"charity-auction/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// SetupTestRouter initializes the router with in-memory repository for integration testing.
func SetupTestRouter() *gin.Engine {
	return SetupTestRouterWithAuctions()
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response.
// Successful responses are unwrapped to their "data" field when it is an object.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if w.Code < 300 {
			if data, ok := resp["data"].(map[string]any); ok {
				resp = data
			}
		}
	}

	return resp, w
}

// ExecuteListRequest executes a GET request whose "data" field is a list
func ExecuteListRequest(t *testing.T, router *gin.Engine, url string) ([]map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", url, nil))

	var resp struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data, w
}

// LiveAuction returns an auction with no bids whose window contains the current time
func LiveAuction(auctionID string, startingBid int64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:      auctionID,
		Title:          "title-" + auctionID,
		Description:    "description-" + auctionID,
		Category:       "Other",
		CreatedBy:      "celeb1",
		StartingBid:    decimal.NewFromInt(startingBid),
		BidIncrement:   decimal.NewFromInt(bidding.DefaultBidIncrement),
		CurrentHighBid: decimal.NewFromInt(startingBid),
		BidHistory:     []model.Bid{},
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(time.Hour),
		CreatedAt:      now.Add(-2 * time.Hour),
	}
}

// SetupTestRouterWithAuctions initializes the router and seeds the repo with auctions.
func SetupTestRouterWithAuctions(auctions ...model.Auction) *gin.Engine {
	router, _ := SetupTestRouterWithRepo(nil, auctions...)
	return router
}

// SetupTestRouterWithRepo is SetupTestRouterWithAuctions with a bid limiter, also
// returning the repository so tests can inspect committed state.
func SetupTestRouterWithRepo(limiter *rate.Limiter, auctions ...model.Auction) (*gin.Engine, *repository.MemoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()

	for _, a := range auctions {
		repo.AddAuction(a)
	}

	service := bidding.NewBiddingService(repo)
	return server.SetupRouter(service, limiter), repo
}
