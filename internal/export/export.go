// internal/export/export.go
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/javajoker/asin-radar/internal/models"
)

var columns = []string{
	"identifier", "name", "brand", "price", "rating", "reviews_count",
	"sales_volume", "provider_monthly_sales", "avg_monthly_sales", "sales_3m",
	"listing_date", "sales_months_count",
	"price_min", "price_max", "price_min_date", "price_max_date",
	"category_sub", "category_main", "url",
}

// Exporter writes the final unfiltered record set to disk, one file per
// run named by keyword and timestamp.
type Exporter struct {
	dir    string
	logger *logrus.Logger
}

func NewExporter(dir string, logger *logrus.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

// WriteCSV exports records as CSV and returns the file path.
func (e *Exporter) WriteCSV(keyword string, records []models.ItemRecord) (string, error) {
	path, err := e.outputPath(keyword, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(row(record)); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":  path,
		"count": len(records),
	}).Info("CSV export written")
	return path, nil
}

// WriteXLSX exports records as a spreadsheet and returns the file path.
func (e *Exporter) WriteXLSX(keyword string, records []models.ItemRecord) (string, error) {
	path, err := e.outputPath(keyword, "xlsx")
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return "", fmt.Errorf("failed to write header cell: %w", err)
		}
	}
	for i, record := range records {
		for col, value := range row(record) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return "", fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return "", fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save spreadsheet: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":  path,
		"count": len(records),
	}).Info("XLSX export written")
	return path, nil
}

func (e *Exporter) outputPath(keyword, extension string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.%s", safeName(keyword), timestamp, extension)), nil
}

func safeName(keyword string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(keyword)
}

func row(r models.ItemRecord) []string {
	return []string{
		r.Identifier,
		r.Name,
		r.Brand,
		formatFloat(r.Price),
		formatFloat(r.Rating),
		formatInt(r.ReviewsCount),
		formatInt(r.SalesVolume),
		formatInt(r.ProviderMonthlySales),
		formatInt(r.AvgMonthlySales),
		formatInt(r.Sales3M),
		formatString(r.ListingDate),
		formatInt(r.SalesMonthsCount),
		formatFloat(r.PriceMin),
		formatFloat(r.PriceMax),
		formatString(r.PriceMinDate),
		formatString(r.PriceMaxDate),
		formatString(r.CategorySub),
		formatString(r.CategoryMain),
		r.URL,
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
