// Package sheets implements SpreadsheetService on the Google Sheets API v4.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/runoshun/promptbench/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var (
	urlIDPattern  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// Options configures a Client.
// Fields are ordered to minimize memory padding.
type Options struct {
	HTTPClient      *http.Client // Overrides credentials when set
	APIKey          string       // For publicly readable sheets
	CredentialsFile string       // Service account JSON
	SheetRange      string       // A1 range of the task table, e.g. "Tasks" or "Tasks!A1:Z"
	Endpoint        string       // Overrides the API endpoint
}

// Client implements domain.SpreadsheetService with the Sheets API.
type Client struct {
	opts Options
}

// Ensure Client implements domain.SpreadsheetService.
var _ domain.SpreadsheetService = (*Client)(nil)

// New creates a Client. No request is made until the first call.
func New(opts Options) *Client {
	if opts.SheetRange == "" {
		opts.SheetRange = domain.DefaultSheetRange
	}
	return &Client{opts: opts}
}

// SpreadsheetID extracts the spreadsheet ID from a Sheets URL or accepts a bare ID.
func SpreadsheetID(url string) (string, error) {
	url = strings.TrimSpace(url)
	if m := urlIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if bareIDPattern.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("%q: %w", url, domain.ErrInvalidSpreadsheetURL)
}

func (c *Client) service(ctx context.Context) (*gsheets.Service, error) {
	var opts []option.ClientOption
	switch {
	case c.opts.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(c.opts.HTTPClient))
	case c.opts.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.opts.CredentialsFile))
	case c.opts.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.opts.APIKey))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}
	if c.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.opts.Endpoint))
	}

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return srv, nil
}

// Validate checks that url points at a readable spreadsheet.
func (c *Client) Validate(ctx context.Context, url string) (*domain.SpreadsheetInfo, error) {
	id, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}
	srv, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	ss, err := srv.Spreadsheets.Get(id).
		Fields("spreadsheetId", "spreadsheetUrl", "properties.title", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, apiError("get spreadsheet", err)
	}

	info := &domain.SpreadsheetInfo{ID: ss.SpreadsheetId, URL: ss.SpreadsheetUrl}
	if info.ID == "" {
		info.ID = id
	}
	if info.URL == "" {
		info.URL = url
	}
	if ss.Properties != nil {
		info.Title = ss.Properties.Title
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			info.Sheets = append(info.Sheets, sh.Properties.Title)
		}
	}
	return info, nil
}

// LoadRows returns every data row of the task sheet.
func (c *Client) LoadRows(ctx context.Context, url string) ([]domain.RawRow, error) {
	table, err := c.table(ctx, url)
	if err != nil {
		return nil, err
	}
	return domain.RowsFromTable(table), nil
}

// GetTaskData returns the row whose id column equals taskID.
func (c *Client) GetTaskData(ctx context.Context, taskID, url string) (domain.RawRow, error) {
	table, err := c.table(ctx, url)
	if err != nil {
		return nil, err
	}
	i := domain.FindRow(table, taskID)
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}
	return domain.RowsFromTable([][]string{table[0], table[i]})[0], nil
}

// UpdateTaskStatus writes status into the status cell of the task's row.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, url string) error {
	id, err := SpreadsheetID(url)
	if err != nil {
		return err
	}
	table, err := c.table(ctx, url)
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}
	col := domain.ColumnIndex(table[0], domain.StatusHeaders)
	if col < 0 {
		return errors.New("sheet has no status column")
	}
	row := domain.FindRow(table, taskID)
	if row < 0 {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}

	srv, err := c.service(ctx)
	if err != nil {
		return err
	}
	cell := CellRef(c.opts.SheetRange, col, row)
	_, err = srv.Spreadsheets.Values.Update(id, cell, &gsheets.ValueRange{
		Values: [][]any{{string(status)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return apiError("update status", err)
	}
	return nil
}

// table fetches the configured range as strings.
func (c *Client) table(ctx context.Context, url string) ([][]string, error) {
	id, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}
	srv, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Values.Get(id, c.opts.SheetRange).Context(ctx).Do()
	if err != nil {
		return nil, apiError("get values", err)
	}

	table := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		table[i] = make([]string, len(row))
		for j, v := range row {
			table[i][j] = fmt.Sprint(v)
		}
	}
	return table, nil
}

// CellRef returns the A1 reference of a zero-based column and row of the table
// read from sheetRange. Offsets are relative to the range's top-left cell, so
// "Tasks!B2:Z" maps (0, 0) to Tasks!B2.
func CellRef(sheetRange string, col, row int) string {
	sheet, area, _ := strings.Cut(sheetRange, "!")
	if strings.HasPrefix(sheet, "'") {
		// Quoted names may contain "!", so split after the closing quote.
		if end := strings.LastIndex(sheetRange, "'!"); end > 0 {
			sheet, area = sheetRange[:end+1], sheetRange[end+2:]
		}
		sheet = strings.ReplaceAll(strings.Trim(sheet, "'"), "''", "'")
	}
	startCol, startRow := rangeStart(area)
	return fmt.Sprintf("%s!%s%d", quoteSheet(sheet), ColumnLetter(startCol+col), startRow+row+1)
}

// rangeStart parses the top-left cell of an A1 area such as "B2:Z", "C:F"
// or "3:10" into zero-based indexes. Missing parts default to zero.
func rangeStart(area string) (col, row int) {
	start, _, _ := strings.Cut(area, ":")
	start = strings.ToUpper(strings.ReplaceAll(start, "$", ""))

	i := 0
	for ; i < len(start) && start[i] >= 'A' && start[i] <= 'Z'; i++ {
		col = col*26 + int(start[i]-'A'+1)
	}
	if col > 0 {
		col--
	}
	if n, err := strconv.Atoi(start[i:]); err == nil && n > 0 {
		row = n - 1
	}
	return col, row
}

// quoteSheet quotes a sheet name unless it is a plain identifier.
func quoteSheet(name string) string {
	plain := name != ""
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ColumnLetter converts a zero-based column index to A1 letters (0=A, 26=AA).
func ColumnLetter(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// apiError maps Sheets API failures onto domain errors where one fits.
func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound, http.StatusBadRequest:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidSpreadsheetURL, gerr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
