package promo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	minCodeLength = 4
	maxCodeLength = 20

	// cancellation is checked every this many lines
	ctxCheckInterval = 100_000
)

var hundred = decimal.NewFromInt(100)

// mapCatalog implements Catalog with a map keyed by upper-case code.
type mapCatalog struct {
	codes map[string]decimal.Decimal
}

func newMapCatalog(capacity int) *mapCatalog {
	return &mapCatalog{codes: make(map[string]decimal.Decimal, capacity)}
}

func (c *mapCatalog) Size() int {
	return len(c.codes)
}

func (c *mapCatalog) Range(fn func(code string, pct decimal.Decimal)) {
	for code, pct := range c.codes {
		fn(code, pct)
	}
}

func (c *mapCatalog) add(code string, pct decimal.Decimal) {
	c.codes[code] = pct
}

// NormaliseCode trims and upper-cases a code. ok is false when the length is out of range.
func NormaliseCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return "", false
	}
	return code, true
}

// parseCatalog reads "CODE,PERCENT" lines. Blank lines and lines starting with '#' are skipped.
func parseCatalog(ctx context.Context, r io.Reader, source string) (*mapCatalog, error) {
	catalog := newMapCatalog(1024)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rawCode, rawPct, found := strings.Cut(line, ",")
		if !found {
			return nil, fmt.Errorf("%s:%d: expected CODE,PERCENT", source, lineNo)
		}

		code, ok := NormaliseCode(rawCode)
		if !ok {
			return nil, fmt.Errorf("%s:%d: code %q must be %d-%d characters", source, lineNo, rawCode, minCodeLength, maxCodeLength)
		}

		pct, err := decimal.NewFromString(strings.TrimSpace(rawPct))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid percent: %w", source, lineNo, err)
		}
		if !pct.IsPositive() || pct.GreaterThan(hundred) {
			return nil, fmt.Errorf("%s:%d: percent %s out of range (0, 100]", source, lineNo, pct)
		}

		catalog.add(code, pct)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading promo catalogue %s: %w", source, err)
	}

	return catalog, nil
}
