// Package builtin contains the reusable record transforms that a table rule
// set compiles into.
//
// DeDup collapses records sharing a key and picks a winner by policy:
//
//   - "keep-first"   : keep the earliest occurrence
//   - "keep-last"    : keep the latest occurrence (default)
//   - "most-complete": keep the record with the most non-empty fields;
//     ties break by keep-last
//
// Run DeDup after Coerce so that "7" and "7.0" collapse to the same int64 key.
package builtin

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"starload/pkg/records"
)

// DeDup implements in-memory de-duplication over one batch of records.
type DeDup struct {
	// Keys are the fields forming the key, e.g. ["product_id"].
	Keys []string

	// Policy selects the winner: "keep-first", "keep-last" or "most-complete".
	Policy string

	// PreferFields weigh more in "most-complete" scoring.
	PreferFields []string
}

// Apply returns one record per key. Winners keep their relative input order;
// records lacking a key field are appended after them unchanged.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}

	type slot struct {
		rec   records.Record
		index int
		score int
	}

	winners := make(map[xxh3.Uint128]slot, len(in))

	prefer := make(map[string]struct{}, len(d.PreferFields))
	for _, f := range d.PreferFields {
		prefer[f] = struct{}{}
	}

	var b strings.Builder
	keyOf := func(r records.Record) (xxh3.Uint128, bool) {
		b.Reset()
		for i, k := range d.Keys {
			v, ok := r[k]
			if !ok {
				return xxh3.Uint128{}, false
			}
			if i > 0 {
				b.WriteByte('\x1f')
			}
			b.WriteString(KeyString(v))
		}
		return xxh3.HashString128(b.String()), true
	}

	scoreOf := func(r records.Record) int {
		score, bonus := 0, 0
		for k, v := range r {
			if isBlank(v) {
				continue
			}
			score++
			if _, ok := prefer[k]; ok {
				bonus++
			}
		}
		return score*10 + bonus
	}

	var passthrough []records.Record
	for i, r := range in {
		key, ok := keyOf(r)
		if !ok {
			passthrough = append(passthrough, r)
			continue
		}
		switch policy {
		case "keep-first":
			if _, exists := winners[key]; !exists {
				winners[key] = slot{rec: r, index: i}
			}
		case "most-complete":
			s := slot{rec: r, index: i, score: scoreOf(r)}
			if prev, exists := winners[key]; !exists || s.score >= prev.score {
				winners[key] = s
			}
		default:
			winners[key] = slot{rec: r, index: i}
		}
	}

	slots := make([]slot, 0, len(winners))
	for _, s := range winners {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].index < slots[j].index })

	out := make([]records.Record, 0, len(slots)+len(passthrough))
	for _, s := range slots {
		out = append(out, s.rec)
	}
	return append(out, passthrough...)
}

// KeyString renders a key value so that equal keys of different Go types
// (int64 from a transform, int64 or []byte from a driver) compare equal.
// nil renders as "\x00".
func KeyString(v any) string {
	switch t := v.(type) {
	case nil:
		return "\x00"
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		if n, ok := ToInt64(t); ok {
			return fmt.Sprint(n)
		}
		return fmt.Sprint(t)
	case float32:
		return KeyString(float64(t))
	case decimal.Decimal:
		if t.IsInteger() {
			return fmt.Sprint(t.IntPart())
		}
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
