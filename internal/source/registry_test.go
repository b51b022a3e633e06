package source

import "testing"

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("storefront", Config{Kind: "generic"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	a, ok := r.Get("storefront")
	if !ok {
		t.Fatalf("expected adapter to be registered")
	}
	if !a.Enabled() {
		t.Errorf("generic adapter should always be enabled")
	}
	if a.Name() != "generic" {
		t.Errorf("Name() = %q, want generic", a.Name())
	}
}

func TestRegistry_RegisterUnknownKind(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("mystery", Config{Kind: "nope"}); err == nil {
		t.Errorf("expected error for unknown adapter kind")
	}
}

func TestRegistry_DisabledWhenConfigMissing(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("partner", Config{Kind: "bearer_partner"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	a, _ := r.Get("partner")
	if a.Enabled() {
		t.Errorf("expected adapter with missing config to be disabled")
	}
}

func TestRegistry_NamesAndAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("a", Config{Kind: "generic"})
	_ = r.Register("b", Config{Kind: "generic"})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("len(names) = %d, want 2", len(names))
	}
	if len(r.All()) != 2 {
		t.Errorf("len(All()) = %d, want 2", len(r.All()))
	}
}
