package accesscontrol

import (
	"strconv"
	"strings"
)

// Filter accumulates WHERE conditions for a list query. The zero value matches
// every row. Conditions use ? placeholders; SQL renumbers them into pgx $n
// placeholders. Filters are values: Where returns a copy, so a scoped filter
// never mutates the base it was derived from.
type Filter struct {
	conds []string
	args  []any
	none  bool
}

// Where returns a filter extended with an AND condition.
func (f Filter) Where(cond string, args ...any) Filter {
	conds := make([]string, len(f.conds), len(f.conds)+1)
	copy(conds, f.conds)
	f.conds = append(conds, cond)
	combined := make([]any, len(f.args), len(f.args)+len(args))
	copy(combined, f.args)
	f.args = append(combined, args...)
	return f
}

// MatchNone returns a filter that yields no rows regardless of other conditions.
func (f Filter) MatchNone() Filter {
	f.none = true
	return f
}

// IsNone reports whether the filter can never match a row.
func (f Filter) IsNone() bool {
	return f.none
}

// SQL renders the filter as a WHERE clause body plus its arguments, numbering
// placeholders from start. It returns "TRUE" for the zero filter and "FALSE"
// for a match-none filter so callers can always interpolate the result.
func (f Filter) SQL(start int) (string, []any) {
	if f.none {
		return "FALSE", nil
	}
	if len(f.conds) == 0 {
		return "TRUE", nil
	}
	var sb strings.Builder
	n := start
	for i, cond := range f.conds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, r := range cond {
			if r == '?' {
				sb.WriteString("$" + strconv.Itoa(n))
				n++
				continue
			}
			sb.WriteRune(r)
		}
	}
	args := make([]any, len(f.args))
	copy(args, f.args)
	return sb.String(), args
}
