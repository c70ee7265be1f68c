package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"qboard/internal/core"
	ports "qboard/internal/mirror"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors target records into a Google spreadsheet, one sheet per
// report kind. Row layout is A:H = record ID, entity ID, period, target,
// achieved, pending, extra hours, working days.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet names without year (e.g. "UserTargets"); code prefixes year.
	sheetBase map[core.EntityKind]string
}

// Ensure interface conformance
var (
	_ ports.RecordAppender = (*Client)(nil)
	_ ports.RecordRemover  = (*Client)(nil)
	_ ports.ReportMirror   = (*Client)(nil)
)

// NewFromEnv creates a mirror client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_USER_SHEET_NAME (default "UserTargets"),
// GOOGLE_PROJECT_SHEET_NAME (default "ProjectTargets").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	userBase := strings.TrimSpace(os.Getenv("GOOGLE_USER_SHEET_NAME"))
	if userBase == "" {
		userBase = core.KindUser.ReportName()
	}
	projectBase := strings.TrimSpace(os.Getenv("GOOGLE_PROJECT_SHEET_NAME"))
	if projectBase == "" {
		projectBase = core.KindProject.ReportName()
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase: map[core.EntityKind]string{
			core.KindUser:    userBase,
			core.KindProject: projectBase,
		},
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AppendRecord upserts the record's row. An existing row with the same record
// ID is overwritten in place so repeated deliveries stay idempotent.
func (c *Client) AppendRecord(ctx context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := c.sheetName(r.Kind, r.Period.Year)

	row, ids, err := c.findRow(ctx, sheetName, r.ID)
	if err != nil {
		return "", err
	}
	if row == 0 {
		row = len(ids) + 2 // first free row below the header
	}

	rng := fmt.Sprintf("%s!A%d:H%d", sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		r.ID,
		r.EntityID,
		r.Period.String(),
		r.Metrics.Target,
		r.Metrics.Achieved,
		r.Metrics.Pending,
		r.Metrics.ExtraHours,
		r.Metrics.WorkingDays,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Mirrored record to sheet",
		"record_id", r.ID,
		"kind", r.Kind,
		"sheet", sheetName,
		"row", row)

	return rng, nil
}

// RemoveRecord clears the record's row if present. Only the current year's
// sheet is scanned; rows from past years stay as history.
func (c *Client) RemoveRecord(ctx context.Context, kind core.EntityKind, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheetName := c.sheetName(kind, time.Now().Year())

	row, _, err := c.findRow(ctx, sheetName, id)
	if err != nil {
		return err
	}
	if row == 0 {
		// Never mirrored, nothing to remove.
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:H%d", sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Removed record from sheet",
		"record_id", id,
		"kind", kind,
		"sheet", sheetName,
		"row", row)

	return nil
}

// EnsureSheets creates the current year's report sheets when they are
// missing and writes the header row into each. Safe to run repeatedly.
func (c *Client) EnsureSheets(ctx context.Context, year int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	existing := make(map[string]bool, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var requests []*gsheet.Request
	var created []string
	for _, kind := range []core.EntityKind{core.KindUser, core.KindProject} {
		name := c.sheetName(kind, year)
		if existing[name] {
			continue
		}
		requests = append(requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: name},
			},
		})
		created = append(created, name)
	}

	if len(requests) > 0 {
		_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheets: %w", err)
		}
	}

	header := &gsheet.ValueRange{Values: [][]any{{
		"Record ID", "Entity ID", "Period", "Target", "Achieved",
		"Pending", "Extra Hours", "Working Days",
	}}}
	for _, name := range created {
		rng := fmt.Sprintf("%s!A1:H1", name)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, header).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
	}

	slog.InfoContext(ctx, "Ensured mirror sheets",
		"spreadsheet_id", c.spreadsheetID,
		"year", year,
		"created", created)
	return nil
}

// findRow scans column A below the header for the record id. It returns the
// 1-based row of the match (0 when absent) and the raw id column for callers
// that need the sheet length.
func (c *Client) findRow(ctx context.Context, sheetName string, id int64) (int, [][]any, error) {
	rng := fmt.Sprintf("%s!A2:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", rng, err)
	}
	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 2, resp.Values, nil
		}
	}
	return 0, resp.Values, nil
}

func (c *Client) sheetName(kind core.EntityKind, year int) string {
	base := c.sheetBase[kind]
	if base == "" {
		base = kind.ReportName()
	}
	return yearPrefixedName(base, year)
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
