package airtable

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL     = "https://api.airtable.com"
	apiVersion = "v0"
	userAgent  = "spigell/resource-recommender"
	// Max value for pageSize.
	pageSize = "100"

	// DefaultTable is the table holding the recommended resources.
	DefaultTable = "Technical tools"
)

type Client struct {
	token      string
	baseID     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates an Airtable client bound to a single base. A zero timeout
// leaves requests unbounded.
func New(logger *zap.Logger, token, baseID string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		baseID: baseID,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Select returns every record of the table matching params, following
// pagination until the store reports no further offset.
func (c *Client) Select(ctx context.Context, table string, params *SelectParams) (*Records, error) {
	return c.selectRecords(ctx, table, params)
}

func (c *Client) BaseID() string {
	return c.baseID
}
