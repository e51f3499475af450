// Package reident reverses pseudonymization across structured reports and
// the free text embedded in them, for presentation to a human reader.
//
// Reversal is a pure store lookup. Nothing in this package calls any
// service other than its Resolver.
package reident

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/tinymask/internal/metrics"
	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
	"github.com/abdul-hamid-achik/tinymask/internal/record"
)

// Resolver maps a pseudonym back to its original value. A miss is reported
// as ok == false with a nil error. *pseudonym.Engine implements it.
type Resolver interface {
	Deanonymize(ctx context.Context, pseudonym string, hint pseudonym.ValueType) (original string, ok bool, err error)
}

// Reidentifier reverses pseudonyms in records, free text and reports.
// It is safe for concurrent use.
type Reidentifier struct {
	r        Resolver
	patterns []Pattern
}

// New creates a Reidentifier. With no patterns, DefaultPatterns is used.
func New(r Resolver, patterns ...Pattern) *Reidentifier {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Reidentifier{r: r, patterns: patterns}
}

// DeanonymizeRecord returns a shallow copy of rec with every listed field
// that holds a known pseudonym replaced by its original. Fields without a
// mapping are left unchanged. A nil fields slice means record.DefaultFields.
func (ri *Reidentifier) DeanonymizeRecord(ctx context.Context, rec record.Record, fields []string) (record.Record, error) {
	if rec == nil {
		return nil, nil
	}
	return ri.deanonymizeFields(ctx, rec, fields, make(map[string]resolution))
}

func (ri *Reidentifier) deanonymizeFields(ctx context.Context, rec record.Record, fields []string, cache map[string]resolution) (record.Record, error) {
	if fields == nil {
		fields = record.DefaultFields
	}

	out := make(record.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, field := range fields {
		s, ok := rec[field].(string)
		if !ok || s == "" {
			continue
		}
		res, err := ri.resolve(ctx, s, record.FieldType(field), cache)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		if res.ok {
			out[field] = res.original
		}
	}
	return out, nil
}

// match is one pseudonym-shaped token in the scanned text.
type match struct {
	start, end int
	typ        pseudonym.ValueType
	order      int
}

// scan returns the non-overlapping pattern matches in text, ordered by
// position. Where matches overlap, the earliest start wins, then the
// longest, then the pattern listed first.
func (ri *Reidentifier) scan(text string) []match {
	var all []match
	for i, p := range ri.patterns {
		for _, loc := range p.Re.FindAllStringIndex(text, -1) {
			all = append(all, match{start: loc[0], end: loc[1], typ: p.Type, order: i})
		}
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end != b.end {
			return a.end > b.end
		}
		return a.order < b.order
	})

	kept := all[:0]
	last := -1
	for _, m := range all {
		if m.start < last {
			continue
		}
		kept = append(kept, m)
		last = m.end
	}
	return kept
}

// DeanonymizeText replaces every resolvable pseudonym in text with its
// original value. All matches are located in the input before anything is
// replaced, so a restored value is never scanned again. Tokens without a
// mapping stay as they are. On a store error the input is returned unchanged
// along with the error.
func (ri *Reidentifier) DeanonymizeText(ctx context.Context, text string) (string, error) {
	return ri.deanonymizeText(ctx, text, make(map[string]resolution))
}

// resolution caches a lookup within one call so repeated tokens cost one
// store round-trip.
type resolution struct {
	original string
	ok       bool
}

func (ri *Reidentifier) resolve(ctx context.Context, tok string, t pseudonym.ValueType, cache map[string]resolution) (resolution, error) {
	key := string(t) + "\x00" + tok
	if res, ok := cache[key]; ok {
		return res, nil
	}
	orig, ok, err := ri.r.Deanonymize(ctx, tok, t)
	if err != nil {
		return resolution{}, err
	}
	res := resolution{original: orig, ok: ok}
	cache[key] = res
	return res, nil
}

func (ri *Reidentifier) deanonymizeText(ctx context.Context, text string, cache map[string]resolution) (string, error) {
	matches := ri.scan(text)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	changed := false
	for _, m := range matches {
		tok := text[m.start:m.end]
		res, err := ri.resolve(ctx, tok, m.typ, cache)
		if err != nil {
			return text, fmt.Errorf("resolve %q: %w", tok, err)
		}
		b.WriteString(text[prev:m.start])
		if res.ok {
			metrics.TextTokens.WithLabelValues("resolved").Inc()
			b.WriteString(res.original)
			changed = true
		} else {
			metrics.TextTokens.WithLabelValues("unresolved").Inc()
			b.WriteString(tok)
		}
		prev = m.end
	}
	if !changed {
		return text, nil
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// Unresolved returns the sorted, distinct pseudonym-shaped tokens anywhere
// in v that have no mapping. v is usually a report after reversal; the
// count is a data-quality signal, not a failure.
func (ri *Reidentifier) Unresolved(ctx context.Context, v any) ([]string, error) {
	cache := make(map[string]resolution)
	seen := make(map[string]struct{})

	var walk func(v any) error
	walk = func(v any) error {
		switch val := v.(type) {
		case string:
			for _, m := range ri.scan(val) {
				tok := val[m.start:m.end]
				res, err := ri.resolve(ctx, tok, m.typ, cache)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", tok, err)
				}
				if !res.ok {
					seen[tok] = struct{}{}
				}
			}
		case map[string]any:
			for _, item := range val {
				if err := walk(item); err != nil {
					return err
				}
			}
		case []any:
			for _, item := range val {
				if err := walk(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(v); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out, nil
}
