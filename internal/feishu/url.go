// Package feishu is the collaboration-table boundary: tenant token
// management, field schema fetch, record search with type-aware flattening,
// and batch record creation.
package feishu

import (
	"fmt"
	"net/url"
	"regexp"
)

var appTokenRe = regexp.MustCompile(`/base/([A-Za-z0-9]+)`)

// ParseTableURL extracts the app token and table id from a shared table
// link of the form https://<host>/base/<app_token>?table=<table_id>&view=...
func ParseTableURL(tableURL string) (appToken, tableID string, err error) {
	m := appTokenRe.FindStringSubmatch(tableURL)
	if m == nil {
		return "", "", fmt.Errorf("no app token in table url %q", tableURL)
	}
	appToken = m[1]

	u, err := url.Parse(tableURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid table url %q: %w", tableURL, err)
	}
	tableID = u.Query().Get("table")
	if tableID == "" {
		return "", "", fmt.Errorf("no table id in table url %q", tableURL)
	}
	return appToken, tableID, nil
}
