// Package seed bulk-creates first exposures from a spreadsheet or CSV file of
// (learner, item) rows, so a course roster can be loaded without driving the
// review loop item by item.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/recall/pkg/models"
)

// RecordCreator is the slice of the record store the importer needs.
type RecordCreator interface {
	Get(ctx context.Context, learnerID, itemID string) (*models.ReviewRecord, error)
	CreateIfAbsent(ctx context.Context, learnerID, itemID string, now time.Time) (*models.ReviewRecord, error)
}

// Config defines the import configuration
type Config struct {
	FilePath   string // Path to the Excel or CSV file
	SheetName  string // Name of the sheet to import (Excel only)
	SkipHeader bool   // Skip the first row
}

// DefaultConfig returns the default import configuration
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:   filePath,
		SheetName:  "Sheet1",
		SkipHeader: true,
	}
}

// Result holds the result of an import operation
type Result struct {
	TotalProcessed int
	Created        int
	Existing       int
	Errors         []string
}

// Importer creates review records for rows of (learner, item) pairs.
type Importer struct {
	records RecordCreator
	log     *zap.Logger
}

// NewImporter creates an importer instance.
func NewImporter(records RecordCreator, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{records: records, log: log}
}

// ImportExposures reads (learner, item) rows from an Excel or CSV file and
// creates the missing review records, each immediately due. Existing records
// are left untouched, so re-running an import is safe.
func (i *Importer) ImportExposures(ctx context.Context, cfg Config, now time.Time) (*Result, error) {
	rows, err := readRows(cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for n, row := range rows {
		if cfg.SkipHeader && n == 0 {
			continue
		}
		if len(row) < 2 {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: expected learner and item columns", n+1))
			continue
		}
		learnerID := strings.TrimSpace(row[0])
		itemID := strings.TrimSpace(row[1])
		if learnerID == "" || itemID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: empty learner or item id", n+1))
			continue
		}
		result.TotalProcessed++

		if _, err := i.records.Get(ctx, learnerID, itemID); err == nil {
			result.Existing++
			continue
		}
		if _, err := i.records.CreateIfAbsent(ctx, learnerID, itemID, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", n+1, err))
			continue
		}
		result.Created++
	}

	i.log.Info("exposure import finished",
		zap.Int("processed", result.TotalProcessed),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func readRows(cfg Config) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".xlsx":
		return readExcelRows(cfg)
	case ".csv":
		return readCSVRows(cfg)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", cfg.FilePath)
	}
}

func readExcelRows(cfg Config) ([][]string, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", cfg.SheetName, err)
	}
	return rows, nil
}

func readCSVRows(cfg Config) ([][]string, error) {
	f, err := os.Open(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
