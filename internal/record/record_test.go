package record

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
	"github.com/abdul-hamid-achik/tinymask/internal/store"
)

func newTestEngine(t *testing.T) *pseudonym.Engine {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "mappings.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	e, err := pseudonym.New(context.Background(), s, pseudonym.Options{Salt: "record-test-salt"})
	if err != nil {
		t.Fatalf("pseudonym.New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

// fakePseudonymizer returns "<type>:<value>" and records every call.
type fakePseudonymizer struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

func (f *fakePseudonymizer) Anonymize(_ context.Context, value string, t pseudonym.ValueType) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, value)
	if value == f.fail {
		return "", pseudonym.ErrStore
	}
	return string(t) + ":" + value, nil
}

// ---------------------------------------------------------------------------
// FieldType
// ---------------------------------------------------------------------------

func TestFieldType(t *testing.T) {
	tests := []struct {
		field string
		want  pseudonym.ValueType
	}{
		{"ip", pseudonym.TypeIP},
		{"source_ip", pseudonym.TypeIP},
		{"destination_ip", pseudonym.TypeIP},
		{"email", pseudonym.TypeEmail},
		{"user_email", pseudonym.TypeEmail},
		{"username", pseudonym.TypeUsername},
		{"user", pseudonym.TypeUsername},
		{"account", pseudonym.TypeUsername},
		{"hostname", pseudonym.TypeHostname},
		{"host", pseudonym.TypeHostname},
		{"server", pseudonym.TypeHostname},
		{"Source_IP", pseudonym.TypeIP},
		{"HOST", pseudonym.TypeHostname},
		{"sid", pseudonym.TypeGeneric},
		{"", pseudonym.TypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := FieldType(tt.field); got != tt.want {
				t.Errorf("FieldType(%q) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// AnonymizeRecord
// ---------------------------------------------------------------------------

func TestAnonymizeRecord_OnlyListedField(t *testing.T) {
	a := NewAnonymizer(newTestEngine(t))
	rec := Record{"ip": "10.0.0.5", "note": "10.0.0.5 is fine"}

	out, err := a.AnonymizeRecord(context.Background(), rec, []string{"ip"})
	if err != nil {
		t.Fatalf("AnonymizeRecord: %v", err)
	}
	if out["ip"] == "10.0.0.5" {
		t.Error("ip field was not anonymized")
	}
	if out["note"] != "10.0.0.5 is fine" {
		t.Errorf("note = %q, want it untouched", out["note"])
	}
	if rec["ip"] != "10.0.0.5" {
		t.Error("input record was modified")
	}
}

func TestAnonymizeRecord_UntouchedFields(t *testing.T) {
	f := &fakePseudonymizer{}
	a := NewAnonymizer(f)

	nested := map[string]any{"host": "inner"}
	rec := Record{
		"host":     "dc01",
		"user":     42.0,
		"email":    "",
		"account":  nil,
		"server":   true,
		"raw_data": nested,
		"tags":     []any{"a", "b"},
		"comment":  "free text",
	}

	out, err := a.AnonymizeRecord(context.Background(), rec, nil)
	if err != nil {
		t.Fatalf("AnonymizeRecord: %v", err)
	}

	if out["host"] != "hostname:dc01" {
		t.Errorf("host = %v", out["host"])
	}
	for _, k := range []string{"user", "email", "account", "server", "comment"} {
		if out[k] != rec[k] {
			t.Errorf("%s changed: %v -> %v", k, rec[k], out[k])
		}
	}
	if !reflect.DeepEqual(out["raw_data"], nested) || !reflect.DeepEqual(out["tags"], rec["tags"]) {
		t.Error("nested values changed")
	}
	if nested["host"] != "inner" {
		t.Error("base operation must not recurse")
	}
	if len(f.calls) != 1 {
		t.Errorf("Anonymize called %d times, want 1", len(f.calls))
	}
}

func TestAnonymizeRecord_MissingFields(t *testing.T) {
	a := NewAnonymizer(&fakePseudonymizer{})

	out, err := a.AnonymizeRecord(context.Background(), Record{"x": "y"}, []string{"ip", "host"})
	if err != nil {
		t.Fatalf("AnonymizeRecord: %v", err)
	}
	if len(out) != 1 || out["x"] != "y" {
		t.Errorf("out = %v", out)
	}
	if _, ok := out["ip"]; ok {
		t.Error("missing field should not be added")
	}
}

func TestAnonymizeRecord_Nil(t *testing.T) {
	out, err := NewAnonymizer(&fakePseudonymizer{}).AnonymizeRecord(context.Background(), nil, nil)
	if err != nil || out != nil {
		t.Errorf("AnonymizeRecord(nil) = (%v, %v)", out, err)
	}
}

func TestAnonymizeRecord_Deterministic(t *testing.T) {
	a := NewAnonymizer(newTestEngine(t))
	ctx := context.Background()
	rec := Record{"source_ip": "192.168.1.10", "user": "john.doe", "host": "ws-01"}

	first, err := a.AnonymizeRecord(ctx, rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.AnonymizeRecord(ctx, rec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("records differ:\n%v\n%v", first, second)
	}
	if !strings.HasPrefix(first["user"].(string), pseudonym.UsernamePrefix) {
		t.Errorf("user = %q, want username pseudonym", first["user"])
	}
	if !strings.HasPrefix(first["host"].(string), pseudonym.HostnamePrefix) {
		t.Errorf("host = %q, want hostname pseudonym", first["host"])
	}
}

func TestAnonymizeRecord_Error(t *testing.T) {
	a := NewAnonymizer(&fakePseudonymizer{fail: "boom"})

	out, err := a.AnonymizeRecord(context.Background(), Record{"host": "boom"}, nil)
	if !errors.Is(err, pseudonym.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if out != nil {
		t.Error("no record should be returned on failure")
	}
}

// ---------------------------------------------------------------------------
// AnonymizeNested
// ---------------------------------------------------------------------------

func TestAnonymizeNested(t *testing.T) {
	a := NewAnonymizer(&fakePseudonymizer{})

	inner := map[string]any{"host": "inner-host", "count": 3.0}
	item := map[string]any{"ip": "10.1.1.1"}
	rec := Record{
		"host":              "outer-host",
		"raw_data":          inner,
		"normalized_fields": []any{item, "ip", 7.0},
	}

	out, err := a.AnonymizeNested(context.Background(), rec, nil)
	if err != nil {
		t.Fatalf("AnonymizeNested: %v", err)
	}

	if out["host"] != "hostname:outer-host" {
		t.Errorf("host = %v", out["host"])
	}
	raw := out["raw_data"].(map[string]any)
	if raw["host"] != "hostname:inner-host" || raw["count"] != 3.0 {
		t.Errorf("raw_data = %v", raw)
	}
	list := out["normalized_fields"].([]any)
	if list[0].(map[string]any)["ip"] != "ip:10.1.1.1" || list[1] != "ip" || list[2] != 7.0 {
		t.Errorf("normalized_fields = %v", list)
	}

	if inner["host"] != "inner-host" || item["ip"] != "10.1.1.1" {
		t.Error("nested input was modified")
	}
}

// ---------------------------------------------------------------------------
// AnonymizeRecords
// ---------------------------------------------------------------------------

func TestAnonymizeRecords_PreservesOrder(t *testing.T) {
	a := NewAnonymizer(newTestEngine(t))
	ctx := context.Background()

	recs := make([]Record, 50)
	for i := range recs {
		recs[i] = Record{"host": fmt.Sprintf("host-%02d", i), "seq": float64(i)}
	}

	out, err := a.AnonymizeRecords(ctx, recs, nil, 4)
	if err != nil {
		t.Fatalf("AnonymizeRecords: %v", err)
	}
	if len(out) != len(recs) {
		t.Fatalf("got %d records, want %d", len(out), len(recs))
	}
	for i, r := range out {
		if r["seq"] != float64(i) {
			t.Fatalf("record %d out of order: seq=%v", i, r["seq"])
		}
		single, err := a.AnonymizeRecord(ctx, recs[i], nil)
		if err != nil {
			t.Fatal(err)
		}
		if r["host"] != single["host"] {
			t.Errorf("record %d: batch %v != single %v", i, r["host"], single["host"])
		}
	}
}

func TestAnonymizeRecords_Error(t *testing.T) {
	a := NewAnonymizer(&fakePseudonymizer{fail: "bad"})
	recs := []Record{{"host": "ok"}, {"host": "bad"}, {"host": "ok2"}}

	_, err := a.AnonymizeRecords(context.Background(), recs, nil, 0)
	if !errors.Is(err, pseudonym.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if !strings.Contains(err.Error(), "record 1") {
		t.Errorf("error should name the failing record: %v", err)
	}
}
