// Package record pseudonymizes the sensitive fields of loosely typed records
// before they leave the trust boundary.
package record

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
)

// Record is a decoded JSON or YAML object. Values are strings, numbers,
// booleans, nil, []any or map[string]any.
type Record = map[string]any

// DefaultFields are the field names anonymized when the caller names none.
var DefaultFields = []string{
	"ip", "source_ip", "destination_ip",
	"hostname", "host", "server",
	"username", "user", "account",
	"email", "user_email",
}

// fieldTypes maps lower-cased field names to the value type used for them.
// Any other field is generic.
var fieldTypes = map[string]pseudonym.ValueType{
	"ip":             pseudonym.TypeIP,
	"source_ip":      pseudonym.TypeIP,
	"destination_ip": pseudonym.TypeIP,
	"email":          pseudonym.TypeEmail,
	"user_email":     pseudonym.TypeEmail,
	"username":       pseudonym.TypeUsername,
	"user":           pseudonym.TypeUsername,
	"account":        pseudonym.TypeUsername,
	"hostname":       pseudonym.TypeHostname,
	"host":           pseudonym.TypeHostname,
	"server":         pseudonym.TypeHostname,
}

// FieldType returns the value type for a field name. Matching ignores case.
func FieldType(name string) pseudonym.ValueType {
	if t, ok := fieldTypes[strings.ToLower(name)]; ok {
		return t
	}
	return pseudonym.TypeGeneric
}

// Pseudonymizer is the part of the engine the anonymizer needs.
type Pseudonymizer interface {
	Anonymize(ctx context.Context, value string, t pseudonym.ValueType) (string, error)
}

// Anonymizer replaces sensitive record fields with pseudonyms.
type Anonymizer struct {
	p Pseudonymizer
}

// NewAnonymizer creates a new Anonymizer.
func NewAnonymizer(p Pseudonymizer) *Anonymizer {
	return &Anonymizer{p: p}
}

// AnonymizeRecord returns a shallow copy of rec with every listed field that
// holds a non-empty string replaced by its pseudonym. Fields that are
// missing, empty or not strings are left as they are, and rec itself is
// never modified. A nil fields slice means DefaultFields.
//
// The walk is not recursive; see AnonymizeNested.
func (a *Anonymizer) AnonymizeRecord(ctx context.Context, rec Record, fields []string) (Record, error) {
	if rec == nil {
		return nil, nil
	}
	if fields == nil {
		fields = DefaultFields
	}

	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, field := range fields {
		s, ok := rec[field].(string)
		if !ok || s == "" {
			continue
		}
		p, err := a.p.Anonymize(ctx, s, FieldType(field))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = p
	}
	return out, nil
}

// AnonymizeNested applies AnonymizeRecord to rec and then to every map
// reachable through nested maps and lists, using the same field list.
// Nothing reachable from rec is modified; changed containers are copied.
func (a *Anonymizer) AnonymizeNested(ctx context.Context, rec Record, fields []string) (Record, error) {
	out, err := a.AnonymizeRecord(ctx, rec, fields)
	if err != nil || out == nil {
		return out, err
	}
	for k, v := range out {
		nv, err := a.nested(ctx, v, fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func (a *Anonymizer) nested(ctx context.Context, v any, fields []string) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		return a.AnonymizeNested(ctx, val, fields)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			nv, err := a.nested(ctx, item, fields)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

// AnonymizeRecords anonymizes a batch with at most concurrency records in
// flight. Output order matches input order. The first error cancels the
// remaining work and is returned.
func (a *Anonymizer) AnonymizeRecords(ctx context.Context, recs []Record, fields []string, concurrency int) ([]Record, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]Record, len(recs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, rec := range recs {
		g.Go(func() error {
			r, err := a.AnonymizeRecord(ctx, rec, fields)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
