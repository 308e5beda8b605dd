package airtable

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// SelectParams narrows down a table read. Zero values are omitted from the
// query, so an empty FilterByFormula returns every row.
type SelectParams struct {
	FilterByFormula string
	PageSize        string
}

func (c *Client) selectRecords(ctx context.Context, table string, params *SelectParams) (*Records, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("table name is required")
	}

	if strings.TrimSpace(c.baseID) == "" {
		return nil, errors.New("airtable base id is required")
	}

	if params == nil {
		params = &SelectParams{}
	}

	// Set pageSize max as possible. It should be faster.
	if params.PageSize == "" {
		params.PageSize = pageSize
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		strings.TrimRight(c.APIURL, "/"), apiVersion, url.PathEscape(c.baseID), url.PathEscape(table),
	)

	items, err := c.GetItems(ctx, endpoint, buildParams(params))
	if err != nil {
		return nil, err
	}

	var records []*Record
	if err := mapstructure.Decode(items, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	return &Records{Items: records}, nil
}

func buildParams(params *SelectParams) url.Values {
	q := url.Values{}

	if params.FilterByFormula != "" {
		q.Set("filterByFormula", params.FilterByFormula)
	}
	if params.PageSize != "" {
		q.Set("pageSize", params.PageSize)
	}

	return q
}
