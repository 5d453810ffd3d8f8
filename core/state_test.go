package core

import "testing"

func TestState_CloneIsIndependent(t *testing.T) {
	s := State{KeyActiveAgent: "info", "a": 1}

	clone := s.Clone()
	clone["b"] = 2
	clone[KeyActiveAgent] = "billing"

	if _, ok := s["b"]; ok {
		t.Error("original should not see keys added to the clone")
	}
	if s.ActiveAgent() != "info" {
		t.Errorf("expected info, got %s", s.ActiveAgent())
	}
}

func TestState_MergeLastWriteWins(t *testing.T) {
	s := State{}
	s.Merge(map[string]any{"a": 1})
	s.Merge(map[string]any{"a": 2, "b": "x"})

	if s["a"] != 2 || s["b"] != "x" {
		t.Fatalf("unexpected state: %#v", s)
	}
}

func TestState_ConsumeHandback(t *testing.T) {
	s := State{KeyHandbackTurn: true}
	if !s.ConsumeHandback() {
		t.Fatal("expected flag to be reported as set")
	}
	if s.Bool(KeyHandbackTurn) {
		t.Fatal("flag must be cleared after consumption")
	}
	if s.ConsumeHandback() {
		t.Fatal("flag must only be observed once")
	}
}

func TestState_BoolAcceptsPersistedForms(t *testing.T) {
	cases := map[string]struct {
		v    any
		want bool
	}{
		"bool":        {true, true},
		"string true": {"true", true},
		"string one":  {"1", true},
		"float":       {float64(1), true},
		"zero":        {0, false},
		"missing":     {nil, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := State{}
			if tc.v != nil {
				s["k"] = tc.v
			}
			if got := s.Bool("k"); got != tc.want {
				t.Errorf("Bool(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestState_StringRendersNonStrings(t *testing.T) {
	s := State{"n": 42, "empty": "", "nil": nil}

	if v, ok := s.String("n"); !ok || v != "42" {
		t.Errorf("expected 42, got %q (%v)", v, ok)
	}
	if _, ok := s.String("empty"); ok {
		t.Error("empty string should be reported as absent")
	}
	if _, ok := s.String("nil"); ok {
		t.Error("nil should be reported as absent")
	}
}
