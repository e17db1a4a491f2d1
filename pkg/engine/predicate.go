package engine

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Verdict is the result of evaluating a Predicate. Reason explains a match or
// a miss and ends up in the summary either way.
type Verdict struct {
	Match  bool
	Reason string
}

// Predicate decides whether a record is a maintenance candidate.
// Implementations must not retain or modify the record.
type Predicate func(rec ResourceRecord) Verdict

func match(format string, args ...any) Verdict {
	return Verdict{Match: true, Reason: fmt.Sprintf(format, args...)}
}

func miss(format string, args ...any) Verdict {
	return Verdict{Match: false, Reason: fmt.Sprintf(format, args...)}
}

// Always selects every record.
func Always(reason string) Predicate {
	return func(ResourceRecord) Verdict {
		return Verdict{Match: true, Reason: reason}
	}
}

// AgeInDays rounds (now - ts) up to whole days, in UTC.
func AgeInDays(ts, now time.Time) int {
	d := now.UTC().Sub(ts.UTC())
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// OlderThan matches records whose timestamp attribute is strictly more than
// days old. Records without the attribute never match.
func OlderThan(attr string, days int, now time.Time) Predicate {
	return func(rec ResourceRecord) Verdict {
		ts, ok := rec.Time(attr)
		if !ok {
			return miss("no %s timestamp", attr)
		}
		age := AgeInDays(ts, now)
		if age > days {
			return match("age %d days exceeds retention of %d days", age, days)
		}
		return miss("age %d days within retention of %d days", age, days)
	}
}

// FewerThan matches records whose integer attribute is strictly below threshold.
// A missing attribute counts as zero.
func FewerThan(attr string, threshold int64) Predicate {
	return func(rec ResourceRecord) Verdict {
		n, _ := rec.Int(attr)
		if n < threshold {
			return match("%s %d below threshold %d", attr, n, threshold)
		}
		return miss("%s %d meets threshold %d", attr, n, threshold)
	}
}

func Equals(attr, value string) Predicate {
	return func(rec ResourceRecord) Verdict {
		got := rec.String(attr)
		if got == value {
			return match("%s is %q", attr, value)
		}
		return miss("%s is %q, want %q", attr, got, value)
	}
}

// NotEqualFold matches when the attribute differs from value ignoring case.
// A missing attribute is treated as fallback.
func NotEqualFold(attr, value, fallback string) Predicate {
	return func(rec ResourceRecord) Verdict {
		got := rec.String(attr)
		if got == "" {
			got = fallback
		}
		if strings.EqualFold(got, value) {
			return miss("%s is %q", attr, got)
		}
		return match("%s is %q", attr, got)
	}
}

// Contains matches when the list attribute holds value exactly.
func Contains(attr, value string) Predicate {
	return func(rec ResourceRecord) Verdict {
		for _, v := range rec.Strings(attr) {
			if v == value {
				return match("%s includes %s", attr, value)
			}
		}
		return miss("%s does not include %s", attr, value)
	}
}

// Excluding never selects records whose attribute equals sentinel.
func Excluding(attr, sentinel string) Predicate {
	return func(rec ResourceRecord) Verdict {
		if rec.String(attr) == sentinel {
			return miss("%s %s is never selected", attr, sentinel)
		}
		return match("%s %s", attr, rec.String(attr))
	}
}

// NotIn rejects records whose attribute is in the given set.
func NotIn(attr string, set map[string]bool, why string) Predicate {
	return func(rec ResourceRecord) Verdict {
		v := rec.String(attr)
		if set[v] {
			return miss("%s %s %s", attr, v, why)
		}
		return match("%s %s", attr, v)
	}
}

// Missing matches records that lack attr entirely.
func Missing(attr string) Predicate {
	return func(rec ResourceRecord) Verdict {
		if _, ok := rec.Attr(attr); ok {
			return miss("%s already set", attr)
		}
		return match("no %s set", attr)
	}
}

// All matches when every predicate matches. The reasons of the matching
// predicates are joined; the first miss short-circuits.
func All(preds ...Predicate) Predicate {
	return func(rec ResourceRecord) Verdict {
		var reasons []string
		for _, p := range preds {
			if p == nil {
				continue
			}
			v := p(rec)
			if !v.Match {
				return v
			}
			if v.Reason != "" {
				reasons = append(reasons, v.Reason)
			}
		}
		return Verdict{Match: true, Reason: strings.Join(reasons, "; ")}
	}
}
