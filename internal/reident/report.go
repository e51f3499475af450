package reident

import (
	"context"
	"fmt"
)

// ProseFields are the keys whose string values are free text and get the
// text scan.
var ProseFields = []string{
	"title", "description", "executive_summary", "markdown",
	"summary", "details", "content", "message", "value",
}

// nestedMaps are sub-objects walked with the same rules as their parent.
var nestedMaps = []string{"raw_data", "normalized_fields", "metadata"}

// kind selects which list-valued keys of an object are walked.
type kind int

const (
	kindObject kind = iota
	kindEvidence
	kindFinding
	kindReport
)

// lists maps each kind to its list-valued keys and the kind of their elements.
var lists = map[kind]map[string]kind{
	kindEvidence: {
		"indicators": kindObject,
		"references": kindObject,
	},
	kindFinding: {
		"evidence":        kindEvidence,
		"indicators":      kindObject,
		"recommendations": kindObject,
		"references":      kindObject,
	},
	kindReport: {
		"findings":        kindFinding,
		"evidence":        kindEvidence,
		"indicators":      kindObject,
		"recommendations": kindObject,
	},
}

// DeanonymizeFinding reverses a finding: its record fields, its prose, its
// nested raw data, and the evidence, indicators and recommendations it
// lists. Absent sections are skipped. Values with no detected pseudonym are
// returned unchanged.
func (ri *Reidentifier) DeanonymizeFinding(ctx context.Context, finding map[string]any) (map[string]any, error) {
	return ri.walk(ctx, finding, kindFinding, make(map[string]resolution))
}

// DeanonymizeEvidence reverses one evidence item.
func (ri *Reidentifier) DeanonymizeEvidence(ctx context.Context, evidence map[string]any) (map[string]any, error) {
	return ri.walk(ctx, evidence, kindEvidence, make(map[string]resolution))
}

// DeanonymizeReport reverses a full report: top-level prose such as the
// executive summary and markdown body, then every finding and evidence item.
// Running it twice on the same input yields identical output.
func (ri *Reidentifier) DeanonymizeReport(ctx context.Context, report map[string]any) (map[string]any, error) {
	return ri.walk(ctx, report, kindReport, make(map[string]resolution))
}

// walk returns a shallow copy of m with record fields looked up, prose
// fields scanned, nested maps walked and the lists for k walked. Keys that
// are not touched keep their original values.
func (ri *Reidentifier) walk(ctx context.Context, m map[string]any, k kind, cache map[string]resolution) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	out, err := ri.deanonymizeFields(ctx, m, nil, cache)
	if err != nil {
		return nil, err
	}

	for _, key := range ProseFields {
		s, ok := m[key].(string)
		if !ok || s == "" {
			continue
		}
		text, err := ri.deanonymizeText(ctx, s, cache)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = text
	}

	for _, key := range nestedMaps {
		sub, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		nv, err := ri.walk(ctx, sub, kindObject, cache)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = nv
	}

	for key, elem := range lists[k] {
		list, ok := m[key].([]any)
		if !ok {
			continue
		}
		nl, err := ri.walkList(ctx, list, elem, cache)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = nl
	}
	return out, nil
}

// walkList walks each object in list as k and scans each string. Other
// elements are kept as they are.
func (ri *Reidentifier) walkList(ctx context.Context, list []any, k kind, cache map[string]resolution) ([]any, error) {
	out := make([]any, len(list))
	for i, item := range list {
		switch val := item.(type) {
		case map[string]any:
			nv, err := ri.walk(ctx, val, k, cache)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		case string:
			text, err := ri.deanonymizeText(ctx, val, cache)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = text
		default:
			out[i] = item
		}
	}
	return out, nil
}
