package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"siesa-sync/config"
	"siesa-sync/internal/domain/order"
)

// Exporter writes one order as a flat file and reports where it landed.
type Exporter interface {
	Export(ctx context.Context, o order.Order, snapshot order.Snapshot) (fileName, filePath string, err error)
}

// FlatFileExporter renders the fixed-layout text file SIESA's import job
// consumes: one header record followed by one record per line item.
type FlatFileExporter struct {
	dir       string
	prefix    string
	warehouse string
	unitCode  string
	currency  string
}

func NewFlatFileExporter(cfg config.SiesaConfig) *FlatFileExporter {
	return &FlatFileExporter{
		dir:       cfg.FlatFilesPath,
		prefix:    cfg.FilePrefix,
		warehouse: cfg.DefaultWarehouse,
		unitCode:  cfg.DefaultUnitCode,
		currency:  cfg.DefaultCurrency,
	}
}

func (e *FlatFileExporter) Export(ctx context.Context, o order.Order, snapshot order.Snapshot) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create export dir: %w", err)
	}

	fileName := fmt.Sprintf("%s%s.txt", e.prefix, o.ShopifyOrderNumber)
	filePath := filepath.Join(e.dir, fileName)

	var b strings.Builder
	b.WriteString(e.headerRecord(o, snapshot))
	for i, item := range snapshot.Items() {
		b.WriteString(e.itemRecord(o, i+1, item))
	}

	// Written atomically via rename so SIESA's import job never reads a
	// half-written file.
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("write flat file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return "", "", fmt.Errorf("finalize flat file: %w", err)
	}
	return fileName, filePath, nil
}

func (e *FlatFileExporter) headerRecord(o order.Order, s order.Snapshot) string {
	return fmt.Sprintf("%s%s%s%s%012.2f%s\n",
		"01",
		padRight(o.ShopifyOrderNumber, 20),
		padRight(s.CustomerName(), 60),
		padRight(s.CustomerEmail(), 60),
		s.Total(),
		padRight(e.currency, 3),
	)
}

func (e *FlatFileExporter) itemRecord(o order.Order, line int, item order.LineItem) string {
	return fmt.Sprintf("%s%s%04d%s%s%08d%s%012.2f\n",
		"02",
		padRight(o.ShopifyOrderNumber, 20),
		line,
		padRight(item.SKU, 30),
		padRight(e.warehouse, 5),
		item.Quantity,
		padRight(e.unitCode, 5),
		item.Price.Float(),
	)
}

// padRight pads or truncates to width in runes, never splitting a multibyte
// character mid-sequence (customer names are routinely accented).
func padRight(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
