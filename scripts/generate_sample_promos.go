package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

type promoLine struct {
	code    string
	percent decimal.Decimal
}

// Writes sample promo catalogues for local runs. Load them in order with
// PROMO_FILES=data/promos/base.gz,data/promos/seasonal.gz so that the seasonal
// file overrides EASTER10 from the base one.
func main() {
	dataDir := "data/promos"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	catalogues := map[string][]promoLine{
		"base.gz": {
			{"KARIBU10", decimal.NewFromInt(10)},
			{"FARMFRESH", decimal.RequireFromString("7.5")},
			{"EASTER10", decimal.NewFromInt(10)},
			{"BULKTRAY", decimal.NewFromInt(5)},
		},
		"seasonal.gz": {
			{"EASTER10", decimal.NewFromInt(15)},
			{"XMAS2026", decimal.NewFromInt(20)},
		},
	}

	for filename, lines := range catalogues {
		filePath := filepath.Join(dataDir, filename)

		if err := writeCatalogue(filePath, lines); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d codes\n", filePath, len(lines))
	}
}

func writeCatalogue(filePath string, lines []promoLine) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	if _, err := fmt.Fprintln(gzipWriter, "# CODE,PERCENT"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(gzipWriter, "%s,%s\n", l.code, l.percent.String()); err != nil {
			return fmt.Errorf("failed to write promo code: %w", err)
		}
	}

	return nil
}
