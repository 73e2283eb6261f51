// Package sheet appends rows to a Google spreadsheet.
package sheet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Appender adds rows to the end of a named range.
type Appender interface {
	Append(ctx context.Context, rangeName string, rows [][]any) error
}

// TimestampReader reports the newest timestamp already written to a range.
type TimestampReader interface {
	LastTimestamp(ctx context.Context, rangeName string) (time.Time, bool, error)
}

// Credentials of a Google service account.
type Credentials struct {
	Email      string
	PrivateKey string // PEM
}

// Client talks to one spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New authenticates as a service account.
func New(ctx context.Context, creds Credentials, spreadsheetID string) (*Client, error) {
	conf := &jwt.Config{
		Email:      creds.Email,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	return Open(ctx, spreadsheetID, option.WithHTTPClient(conf.Client(ctx)))
}

// Open builds a client from raw API options.
func Open(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) Append(ctx context.Context, rangeName string, rows [][]any) error {
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rangeName, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", rangeName, err)
	}
	return nil
}

// EnsureSheet adds a sheet named title with header as its first row unless
// it already exists.
func (c *Client) EnsureSheet(ctx context.Context, title string, header []any) (created bool, err error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return false, nil
		}
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to add sheet %s: %w", title, err)
	}

	if len(header) > 0 {
		rng := fmt.Sprintf("%s!A1:%s1", title, column(len(header)))
		_, err = c.svc.Spreadsheets.Values.
			Update(c.spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{header}}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return true, fmt.Errorf("failed to write header to %s: %w", title, err)
		}
	}
	return true, nil
}

// timeLayouts are the timestamp formats earlier writers used.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05"}

// LastTimestamp reads the first column of rangeName and returns the last
// value that parses as a timestamp.
func (c *Client) LastTimestamp(ctx context.Context, rangeName string) (time.Time, bool, error) {
	res, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeName+"!A:A").Context(ctx).Do()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read %s: %w", rangeName, err)
	}
	for i := len(res.Values) - 1; i >= 0; i-- {
		if len(res.Values[i]) == 0 {
			continue
		}
		if t, ok := parseTime(fmt.Sprint(res.Values[i][0])); ok {
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// column converts a 1-based index into a column letter (1 -> A, 27 -> AA).
func column(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
