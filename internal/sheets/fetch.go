// Package sheets downloads published Google Sheets documents via the
// anonymous export endpoint.
package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	appLog "github.com/renattele/itis-schedule/internal/log"
)

const exportURL = "https://docs.google.com/spreadsheets/d/%s/export?format=%s&gid=%s"

// Format selects the export format requested from Google Sheets.
type Format string

const (
	// FormatCSV exports the tab as comma-separated UTF-8 text.
	FormatCSV Format = "csv"
	// FormatXLSX exports the whole workbook as XLSX, which preserves
	// merged cells and hyperlinks.
	FormatXLSX Format = "xlsx"
)

// RetrievalError indicates the source document could not be downloaded.
type RetrievalError struct {
	SpreadsheetID string
	GID           string
	StatusCode    int // 0 when the request never produced a response
	Err           error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retrieving sheet %s (gid %s): HTTP %d", e.SpreadsheetID, e.GID, e.StatusCode)
	}
	return fmt.Sprintf("retrieving sheet %s (gid %s): %v", e.SpreadsheetID, e.GID, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Fetcher downloads spreadsheet exports. A single attempt per call; no
// caching, no retries.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a 30 second request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads one tab of the given spreadsheet and returns the raw
// export body.
func (f *Fetcher) Fetch(ctx context.Context, spreadsheetID, gid string, format Format) ([]byte, error) {
	url := fmt.Sprintf(exportURL, spreadsheetID, string(format), gid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RetrievalError{SpreadsheetID: spreadsheetID, GID: gid, Err: err}
	}

	appLog.Info("sheet fetch start", "spreadsheet_id", spreadsheetID, "gid", gid, "format", format)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &RetrievalError{SpreadsheetID: spreadsheetID, GID: gid, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RetrievalError{SpreadsheetID: spreadsheetID, GID: gid, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetrievalError{SpreadsheetID: spreadsheetID, GID: gid, Err: err}
	}

	appLog.Info("sheet fetch success", "spreadsheet_id", spreadsheetID, "gid", gid, "bytes", len(body))
	return body, nil
}
