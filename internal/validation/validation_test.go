package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestOriginalValue(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr error
	}{
		{
			name:    "hostname",
			value:   "server-01.example.com",
			wantErr: nil,
		},
		{
			name:    "whitespace only is still a value",
			value:   " ",
			wantErr: nil,
		},
		{
			name:    "empty",
			value:   "",
			wantErr: ErrValueEmpty,
		},
		{
			name:    "max length valid",
			value:   strings.Repeat("a", MaxValueLength),
			wantErr: nil,
		},
		{
			name:    "too long",
			value:   strings.Repeat("a", MaxValueLength+1),
			wantErr: ErrValueTooLong,
		},
		{
			name:    "invalid utf8",
			value:   "bad\xff",
			wantErr: ErrValueInvalidUTF8,
		},
		{
			name:    "unicode",
			value:   "ユーザー",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := OriginalValue(tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("OriginalValue(%q) = %v, want %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestPseudonym(t *testing.T) {
	if err := Pseudonym("host-abcdefghijkl.local"); err != nil {
		t.Errorf("Pseudonym() = %v, want nil", err)
	}
	if err := Pseudonym(""); !errors.Is(err, ErrPseudonymEmpty) {
		t.Errorf("Pseudonym(\"\") = %v, want ErrPseudonymEmpty", err)
	}
	if err := Pseudonym(strings.Repeat("x", MaxValueLength+1)); !errors.Is(err, ErrValueTooLong) {
		t.Errorf("Pseudonym(long) = %v, want ErrValueTooLong", err)
	}
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		wantErr error
	}{
		{"simple", "ip", nil},
		{"underscore", "source_ip", nil},
		{"dotted", "raw_data.host", nil},
		{"hyphen", "user-email", nil},
		{"empty", "", ErrFieldNameEmpty},
		{"leading digit", "1ip", ErrFieldNameInvalid},
		{"space", "source ip", ErrFieldNameInvalid},
		{"comma", "ip,host", ErrFieldNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FieldName(tt.field)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FieldName(%q) = %v, want %v", tt.field, err, tt.wantErr)
			}
		})
	}
}
