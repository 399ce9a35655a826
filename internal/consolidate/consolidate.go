// Package consolidate groups extracted items by a caller-selected key tuple
// and computes aggregate quantity and value metrics.
package consolidate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/nfe-auditor/internal/model"
)

// Key identifies an item column usable as a grouping key.
type Key string

// Allowed grouping keys.
const (
	KeyXProd Key = "xProd"
	KeyCProd Key = "cProd"
	KeyNCM   Key = "NCM"
	KeyCFOP  Key = "CFOP"
)

// The fixed key combinations offered to callers.
var (
	ByProductNCMCFOP = []Key{KeyXProd, KeyNCM, KeyCFOP}
	ByCodeNCMCFOP    = []Key{KeyCProd, KeyNCM, KeyCFOP}
	ByNCMCFOP        = []Key{KeyNCM, KeyCFOP}
	ByProduct        = []Key{KeyXProd}
)

// KeysFor maps a preset name (as used by the CLI and the HTTP API) to its key
// tuple. Defaults to ByProductNCMCFOP for unknown names.
func KeysFor(preset string) []Key {
	switch preset {
	case "cprod", "cProd+NCM+CFOP":
		return ByCodeNCMCFOP
	case "ncm", "NCM+CFOP":
		return ByNCMCFOP
	case "xprod-only", "xProd":
		return ByProduct
	default:
		return ByProductNCMCFOP
	}
}

// Row is one consolidated group. Keys holds the grouping column values;
// Quantidade and ValorTotal are sums, ValorUnitMedio the arithmetic mean of
// parseable unit values.
type Row struct {
	Keys           map[Key]string  `json:"chaves"`
	Quantidade     decimal.Decimal `json:"quantidade"`
	ValorTotal     decimal.Decimal `json:"valor_total"`
	ValorUnitMedio decimal.Decimal `json:"valor_unit_medio"`

	unitSum   decimal.Decimal
	unitCount int64
}

// Consolidate groups items by the given key columns. Missing key values group
// under the empty string. Quantity and total value are summed, unit value is
// averaged; locale-formatted decimals (comma separator) are converted, and
// unparseable values contribute nothing rather than failing the row. Output
// is sorted descending by summed total value, ties kept in first-seen order.
func Consolidate(items []model.Item, keys []Key) ([]Row, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one grouping key is required")
	}
	for _, k := range keys {
		switch k {
		case KeyXProd, KeyCProd, KeyNCM, KeyCFOP:
		default:
			return nil, fmt.Errorf("unsupported grouping key: %s", k)
		}
	}

	var rows []Row
	index := make(map[string]int)

	for _, item := range items {
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = keyValue(item, k)
		}
		groupID := strings.Join(values, "\x1f")

		pos, ok := index[groupID]
		if !ok {
			pos = len(rows)
			index[groupID] = pos
			kv := make(map[Key]string, len(keys))
			for i, k := range keys {
				kv[k] = values[i]
			}
			rows = append(rows, Row{Keys: kv})
		}

		row := &rows[pos]
		if q, ok := parseDecimal(item.QCom); ok {
			row.Quantidade = row.Quantidade.Add(q)
		}
		if v, ok := parseDecimal(item.VProd); ok {
			row.ValorTotal = row.ValorTotal.Add(v)
		}
		if u, ok := parseDecimal(item.VUn); ok {
			row.unitSum = row.unitSum.Add(u)
			row.unitCount++
		}
	}

	for i := range rows {
		if rows[i].unitCount > 0 {
			rows[i].ValorUnitMedio = rows[i].unitSum.Div(decimal.NewFromInt(rows[i].unitCount)).Round(6)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ValorTotal.GreaterThan(rows[j].ValorTotal)
	})

	return rows, nil
}

func keyValue(item model.Item, k Key) string {
	switch k {
	case KeyXProd:
		return item.XProd
	case KeyCProd:
		return item.CProd
	case KeyNCM:
		return item.NCM
	case KeyCFOP:
		return item.CFOP
	}
	return ""
}

// parseDecimal converts a source value that may use a comma as the decimal
// separator. Unparseable values report ok=false so callers can exclude them
// from aggregates.
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
