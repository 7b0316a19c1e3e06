package config

import "testing"

func TestParseAppliesCoreDefaultWhenLoadLevelOmitted(t *testing.T) {
	b, err := Parse([]byte(`opt_outs:
  no_eval: true`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.LoadLevel != LoadCore {
		t.Errorf("load_level = %q, want %q", b.LoadLevel, LoadCore)
	}
	if !b.OptOuts.NoEval {
		t.Errorf("expected no_eval opt-out to be true")
	}
}

func TestParseRejectsUnknownLoadLevel(t *testing.T) {
	_, err := Parse([]byte(`load_level: bogus`))
	if err == nil {
		t.Fatalf("expected error for unknown load_level")
	}
}

func TestParseDialectRoundTrip(t *testing.T) {
	b, err := Parse([]byte(`
load_level: full
dialect:
  auto_define_unknown_identifiers: true
  parameters_are_default_const: true
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := b.Dialect.ToDialect()
	if !d.AutoDefineUnknownIdentifiers {
		t.Errorf("expected AutoDefineUnknownIdentifiers true")
	}
	if !d.ParametersAreDefaultConst {
		t.Errorf("expected ParametersAreDefaultConst true")
	}
	if d.UndefineUnknownIdentifiersAllowed {
		t.Errorf("expected UndefineUnknownIdentifiersAllowed to default false")
	}
}
