package imposition

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("disk full"), want: ""},
		{name: "config", err: &ConfigError{Field: "paper", Value: "B5"}, want: "paper size"},
		{name: "ambiguous", err: &AmbiguousNamingError{Reason: "x"}, want: "rename"},
		{name: "duplicate wrapped", err: fmt.Errorf("sequence: %w", &DuplicateKeyError{Key: 1}), want: "rename"},
		{name: "placement", err: &InvalidSpreadPlacementError{Position: 0, Total: 8}, want: "cover or back"},
		{name: "insufficient", err: &InsufficientPagesError{Count: 2}, want: "at least 4"},
		{name: "unresolvable", err: &UnresolvableBindingError{Count: 5}, want: "divisible by 4"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Hint(tt.err)
			if tt.want == "" && got != "" {
				t.Errorf("Hint(%v) = %q, want empty", tt.err, got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Hint(%v) = %q, want it to mention %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestInvalidSpreadPlacementError_Error(t *testing.T) {
	t.Parallel()

	first := (&InvalidSpreadPlacementError{Position: 0, Total: 8}).Error()
	last := (&InvalidSpreadPlacementError{Position: 7, Total: 8}).Error()
	if !strings.Contains(first, "first page") || !strings.Contains(last, "last page") {
		t.Errorf("Error() = %q / %q, want first and last page", first, last)
	}
}

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	if IsBindingError(&DuplicateKeyError{}) {
		t.Error("IsBindingError(DuplicateKeyError) = true, want false")
	}
	if IsNamingError(&InsufficientPagesError{}) {
		t.Error("IsNamingError(InsufficientPagesError) = true, want false")
	}
	if !IsConfigError(fmt.Errorf("load: %w", &ConfigError{Field: "direction"})) {
		t.Error("IsConfigError(wrapped ConfigError) = false, want true")
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "right", want: RightToLeft},
		{in: "RTL", want: RightToLeft},
		{in: " left ", want: LeftToRight},
		{in: "left-to-right", want: LeftToRight},
		{in: "up", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !IsConfigError(err) {
			t.Errorf("ParseDirection(%q) error = %T, want *ConfigError", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSequence_MinHeight(t *testing.T) {
	t.Parallel()

	if got := (Sequence{}).MinHeight(); got != 0 {
		t.Errorf("MinHeight() of empty = %d, want 0", got)
	}
	seq := Sequence{{Height: 30}, {Height: 10}, {Height: 20}}
	if got := seq.MinHeight(); got != 10 {
		t.Errorf("MinHeight() = %d, want 10", got)
	}
}
