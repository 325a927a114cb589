package amazon

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chri75252/simpler-fba-sub003/internal/domain"
)

// keepaPrimaryWaitBudget and keepaFallbackWaitBudget are the two wait
// windows spec §4.5 allows for the Keepa grid to render: a 12s primary
// attempt, then one 5s fallback attempt before giving up.
const (
	keepaPrimaryWaitBudget  = 12
	keepaFallbackWaitBudget = 5
)

// statusProductDetailsTabTimeout is the sentinel spec §4.5 requires
// when the Keepa grid never appears within either wait budget. This is
// not treated as an extraction error: the rest of the product's fields
// are still usable.
const statusProductDetailsTabTimeout = "Product details tab timeout"

var rowSeparator = regexp.MustCompile(`\s*:\s*`)

// extractKeepa waits for and parses the Keepa price-history iframe
// overlay, populating product.Keepa (the raw per-tab tables) and
// product.KeepaSnapshot (the coerced fallback-chain view). A no-op
// when no Keepa iframe is present on the page at all.
func (e *Extractor) extractKeepa(ctx context.Context, product *domain.AmazonProduct) {
	if !e.page.HasIframe(e.selectors.KeepaIframe) {
		return
	}

	ready := e.page.WaitFor(ctx, e.selectors.KeepaGridRows, keepaPrimaryWaitBudget)
	if !ready {
		ready = e.page.WaitFor(ctx, e.selectors.KeepaGridRows, keepaFallbackWaitBudget)
	}
	if !ready {
		product.Status = statusProductDetailsTabTimeout
		return
	}

	rows, err := e.page.Select(e.selectors.KeepaGridRows, nil)
	if err != nil || len(rows) == 0 {
		product.Status = statusProductDetailsTabTimeout
		return
	}

	tables := &domain.KeepaTables{
		ProductDetailsTabData: map[string]any{},
		SalesRankDetailsTable: map[string]any{},
	}
	for _, row := range rows {
		key, value, ok := parseKeepaRow(e.page, row)
		if !ok {
			continue
		}
		if isSalesRankKey(key) {
			tables.SalesRankDetailsTable[key] = value
		} else {
			tables.ProductDetailsTabData[key] = value
		}
	}
	product.Keepa = tables
	product.KeepaSnapshot = buildKeepaSnapshot(tables)
}

// parseKeepaRow reads one role="row" grid element's text and splits it
// into a "key: value" pair the way Keepa's overlay renders each stat.
func parseKeepaRow(page Page, row Element) (key string, value string, ok bool) {
	text, err := page.Text(row)
	if err != nil || text == "" {
		return "", "", false
	}
	parts := rowSeparator.Split(strings.TrimSpace(text), 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func isSalesRankKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "sales rank") || strings.Contains(lower, "best sellers rank")
}

// buyBoxPriceKeys and salesRankKeys are tried in order against the raw
// Keepa grid rows; the hyphen-space separator ("Buy Box - Current") is
// how Keepa's overlay actually renders these labels.
var (
	buyBoxPriceKeys = []string{"Buy Box - Current", "Amazon - Current", "New - Current"}
	salesRankKeys   = []string{"Sales Rank: Current", "Sales Rank - Current", "Current Sales Rank"}
)

// buildKeepaSnapshot coerces the raw product-details/sales-rank tables
// into the typed fallback-chain view spec §4.5's "Buy Box -> Amazon ->
// New" price resolution and sales-rank fallback rely on.
func buildKeepaSnapshot(tables *domain.KeepaTables) *domain.KeepaSnapshot {
	snapshot := &domain.KeepaSnapshot{}

	for i, key := range buyBoxPriceKeys {
		d := decimalFromTable(tables.ProductDetailsTabData, key)
		switch i {
		case 0:
			snapshot.BuyBoxCurrent = d
		case 1:
			snapshot.AmazonCurrent = d
		case 2:
			snapshot.NewCurrent = d
		}
	}

	for _, key := range salesRankKeys {
		if rank := intFromTable(tables.SalesRankDetailsTable, key); rank != nil {
			snapshot.SalesRank = rank
			break
		}
	}
	if snapshot.SalesRank == nil {
		snapshot.SalesRank = intFromFirstNumeric(tables.SalesRankDetailsTable)
	}

	return snapshot
}

func decimalFromTable(table map[string]any, key string) *decimal.Decimal {
	raw, ok := table[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	cleaned := strings.TrimPrefix(strings.TrimSpace(s), "£")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

func intFromTable(table map[string]any, key string) *int {
	raw, ok := table[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return parseFirstInt(s)
}

// intFromFirstNumeric falls back to the first numeric-looking value in
// the sales-rank table when the expected key isn't present, since
// Keepa's row labelling varies by category (e.g. "Sales Rank - Home &
// Kitchen" instead of a generic "Sales Rank - Current").
func intFromFirstNumeric(table map[string]any) *int {
	for _, raw := range table {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if v := parseFirstInt(s); v != nil {
			return v
		}
	}
	return nil
}

var digitsWithCommas = regexp.MustCompile(`[\d,]+`)

func parseFirstInt(s string) *int {
	m := digitsWithCommas.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}
