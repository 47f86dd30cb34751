package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "phase and kind only",
			err:  &Error{Phase: PhaseRead, Kind: KindBoundsViolation},
			want: "[read] bounds_violation",
		},
		{
			name: "with path",
			err: &Error{
				Phase: PhaseRead,
				Kind:  KindBoundsViolation,
				Path:  []string{"arg[0]", "[elem]"},
			},
			want: "[read] bounds_violation at arg[0].[elem]",
		},
		{
			name: "with go type",
			err: &Error{
				Phase:  PhaseClassify,
				Kind:   KindUnsupportedType,
				Path:   []string{"arg[1]"},
				GoType: "chan int",
			},
			want: "[classify] unsupported_type at arg[1]: Go type chan int",
		},
		{
			name: "with detail",
			err: &Error{
				Phase:  PhaseRead,
				Kind:   KindBoundsViolation,
				Detail: "need 4 bytes, 2 remaining",
			},
			want: "[read] bounds_violation: need 4 bytes, 2 remaining",
		},
		{
			name: "go type and detail",
			err: &Error{
				Phase:  PhaseClassify,
				Kind:   KindUnsupportedType,
				GoType: "func()",
				Detail: "no category applies",
			},
			want: "[classify] unsupported_type: Go type func() - no category applies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Cause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(PhaseWrite, KindInvalidData, cause, "hook failed")

	if !strings.Contains(err.Error(), "caused by: boom") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should match the wrapped cause")
	}
}

func TestError_Is(t *testing.T) {
	err := BoundsViolation(PhaseRead, []string{"arg[0]"}, 8, 3)

	if !stderrors.Is(err, &Error{Phase: PhaseRead, Kind: KindBoundsViolation}) {
		t.Error("expected match on same phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseWrite, Kind: KindBoundsViolation}) {
		t.Error("expected no match on different phase")
	}
	if stderrors.Is(err, &Error{Phase: PhaseRead, Kind: KindConstViolation}) {
		t.Error("expected no match on different kind")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseRead, KindInvalidData).
		Path("arg[2]", "[key]").
		GoType("uint32").
		Value(uint32(7)).
		Detail("count %d exceeds remaining %d", 7, 3).
		Build()

	if err.Phase != PhaseRead || err.Kind != KindInvalidData {
		t.Errorf("phase/kind = %s/%s", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 {
		t.Errorf("path len = %d, want 2", len(err.Path))
	}
	if err.Detail != "count 7 exceeds remaining 3" {
		t.Errorf("detail = %q", err.Detail)
	}
	if err.Value.(uint32) != 7 {
		t.Errorf("value = %v", err.Value)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if e := UnsupportedType(PhaseClassify, nil, "map[string]func()"); e.Kind != KindUnsupportedType {
		t.Errorf("Kind = %s", e.Kind)
	}
	if e := ConstViolation(PhaseRead, nil, "int32"); e.Kind != KindConstViolation {
		t.Errorf("Kind = %s", e.Kind)
	}
	if e := NilPointer(PhaseRead, nil, "*int32"); e.Kind != KindNilPointer {
		t.Errorf("Kind = %s", e.Kind)
	}
	if e := Registration("Custom", "already registered"); e.Phase != PhaseClassify {
		t.Errorf("Phase = %s", e.Phase)
	}

	e := BoundsViolation(PhaseRead, []string{"arg[0]"}, 16, 4)
	if e.Value.(int) != 16 {
		t.Errorf("Value = %v, want 16", e.Value)
	}
}
