// Package google writes the ledger change log to a Google Sheets spreadsheet,
// one "<year> <base>" sheet per calendar year.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "maasser/internal/log"
	ports "maasser/internal/sheets"
)

const defaultSheetBase = "Journal"

type Options struct {
	SpreadsheetID   string
	SheetBase       string // defaults to "Journal"
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger

	mu    sync.Mutex
	known map[string]bool // sheets confirmed to exist
}

var _ ports.ChangeWriter = (*Client)(nil)

// New creates a client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsJSON(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newWithService(svc, opts, logger), nil
}

func newWithService(svc *gsheet.Service, opts Options, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	base := strings.TrimSpace(opts.SheetBase)
	if base == "" {
		base = defaultSheetBase
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetBase:     base,
		logger:        logger.WithComponent(applog.ComponentSheets),
		known:         make(map[string]bool),
	}
}

// credentialsJSON prefers inline JSON, then the file, then GOOGLE_APPLICATION_CREDENTIALS.
func credentialsJSON(opts Options) ([]byte, error) {
	if j := strings.TrimSpace(opts.CredentialsJSON); j != "" {
		return []byte(j), nil
	}
	path := strings.TrimSpace(opts.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// AppendChange appends e to the sheet of the year it happened in, creating
// the sheet with a header row when needed.
func (c *Client) AppendChange(ctx context.Context, e ports.ChangeEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, e.Timestamp.Year())
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("'%s'!A:I", sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{e.Row()}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[name] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[name] {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1:I1", name),
		&gsheet.ValueRange{Values: [][]any{ports.Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}

	c.known[name] = true
	c.logger.InfoContext(ctx, "Created journal sheet", "sheet", name)
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
