// Package csvsheet implements SpreadsheetService over CSV files.
// A source is a local path, a file:// URL, or an http(s) URL such as a
// published Google Sheets CSV export. Only local sources are writable.
package csvsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/promptbench/internal/domain"
	"github.com/runoshun/promptbench/internal/infra/fileutil"
)

// ErrReadOnlySource is returned when writing to a remote CSV source.
var ErrReadOnlySource = errors.New("csv source is read-only")

// Service implements domain.SpreadsheetService for CSV sources.
type Service struct {
	client *http.Client
}

// Ensure Service implements domain.SpreadsheetService.
var _ domain.SpreadsheetService = (*Service)(nil)

// New creates a Service. A nil client uses http.DefaultClient.
func New(client *http.Client) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{client: client}
}

// Validate checks that url reads as a CSV table with an id column.
func (s *Service) Validate(ctx context.Context, url string) (*domain.SpreadsheetInfo, error) {
	table, err := s.read(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 || domain.ColumnIndex(table[0], domain.IDHeaders) < 0 {
		return nil, fmt.Errorf("%s has no id column: %w", url, domain.ErrInvalidSpreadsheetURL)
	}

	name := url
	if path, ok := localPath(url); ok {
		name = filepath.Base(path)
	}
	return &domain.SpreadsheetInfo{
		ID:    url,
		Title: strings.TrimSuffix(name, filepath.Ext(name)),
		URL:   url,
	}, nil
}

// LoadRows returns every data row of the CSV table.
func (s *Service) LoadRows(ctx context.Context, url string) ([]domain.RawRow, error) {
	table, err := s.read(ctx, url)
	if err != nil {
		return nil, err
	}
	return domain.RowsFromTable(table), nil
}

// GetTaskData returns the row whose id column equals taskID.
func (s *Service) GetTaskData(ctx context.Context, taskID, url string) (domain.RawRow, error) {
	table, err := s.read(ctx, url)
	if err != nil {
		return nil, err
	}
	i := domain.FindRow(table, taskID)
	if i < 0 {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}
	return domain.RowsFromTable([][]string{table[0], table[i]})[0], nil
}

// UpdateTaskStatus rewrites the status cell of a local CSV file.
func (s *Service) UpdateTaskStatus(_ context.Context, taskID string, status domain.TaskStatus, url string) error {
	path, ok := localPath(url)
	if !ok {
		return fmt.Errorf("update %s: %w", url, ErrReadOnlySource)
	}

	return fileutil.NewLock(path+".lock").Exclusive(func() error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		table, err := parse(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		if len(table) == 0 {
			return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
		}
		col := domain.ColumnIndex(table[0], domain.StatusHeaders)
		if col < 0 {
			return errors.New("csv has no status column")
		}
		row := domain.FindRow(table, taskID)
		if row < 0 {
			return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
		}
		for len(table[row]) <= col {
			table[row] = append(table[row], "")
		}
		table[row][col] = string(status)

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(table); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return fileutil.WriteAtomic(path, buf.Bytes(), 0o644)
	})
}

func (s *Service) read(ctx context.Context, url string) ([][]string, error) {
	if path, ok := localPath(url); ok {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", url, domain.ErrInvalidSpreadsheetURL)
		}
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return parse(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrInvalidSpreadsheetURL)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch csv: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrInvalidSpreadsheetURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch csv: unexpected status %s", resp.Status)
	}
	return parse(resp.Body)
}

func parse(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(table) > 0 && len(table[0]) > 0 {
		table[0][0] = strings.TrimPrefix(table[0][0], "\ufeff")
	}
	return table, nil
}

// localPath reports whether url names a local file and returns its path.
func localPath(url string) (string, bool) {
	switch {
	case strings.HasPrefix(url, "file://"):
		return strings.TrimPrefix(url, "file://"), true
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return "", false
	default:
		return url, true
	}
}
