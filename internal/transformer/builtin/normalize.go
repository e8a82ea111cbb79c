package builtin

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"starload/internal/schema"
	"starload/pkg/records"
)

const nbspace = "\u00a0"

// StringRule is the whitespace and casing treatment for one column.
type StringRule struct {
	Trim bool
	Case schema.Case
}

// Normalize rewrites string values in place: NBSP becomes a plain space,
// text is folded to Unicode NFC, and per-column trim/casing rules apply.
// Columns without a rule are only NBSP/NFC-normalized. Non-string values are
// left untouched.
type Normalize struct {
	Rules map[string]StringRule
}

func (n Normalize) Apply(in []records.Record) []records.Record {
	casers := make(map[schema.Case]cases.Caser, 3)
	caserFor := func(c schema.Case) (cases.Caser, bool) {
		if cs, ok := casers[c]; ok {
			return cs, true
		}
		var cs cases.Caser
		switch c {
		case schema.CaseLower:
			cs = cases.Lower(language.Und)
		case schema.CaseUpper:
			cs = cases.Upper(language.Und)
		case schema.CaseTitle:
			cs = cases.Title(language.Und)
		default:
			return cases.Caser{}, false
		}
		casers[c] = cs
		return cs, true
	}

	for _, r := range in {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = norm.NFC.String(strings.ReplaceAll(s, nbspace, " "))
			rule := n.Rules[k]
			if rule.Trim {
				s = strings.TrimSpace(s)
			}
			if cs, ok := caserFor(rule.Case); ok {
				s = cs.String(s)
			}
			r[k] = s
		}
	}
	return in
}
