package identity

import (
	"context"
	"errors"
	"testing"
)

func TestIDGenerator_Shape(t *testing.T) {
	g := NewIDGenerator()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, _, err := g.Generate(context.Background(), func(_ context.Context, id string) (bool, error) {
			return seen[id], nil
		})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !ValidExternalID(id) {
			t.Fatalf("id %q does not match PT-NNNNN", id)
		}
		if seen[id] {
			t.Fatalf("id %q reused", id)
		}
		seen[id] = true
	}
}

func TestIDGenerator_ZeroPadded(t *testing.T) {
	g := NewSequenceGenerator(7)
	id, _, err := g.Generate(context.Background(), func(context.Context, string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatal(err)
	}
	if id != "PT-00007" {
		t.Errorf("expected PT-00007, got %s", id)
	}
}

func TestIDGenerator_SkipsTaken(t *testing.T) {
	g := NewSequenceGenerator(1, 1, 2)
	taken := map[string]bool{"PT-00001": true}

	id, collisions, err := g.Generate(context.Background(), func(_ context.Context, id string) (bool, error) {
		return taken[id], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "PT-00002" {
		t.Errorf("expected PT-00002, got %s", id)
	}
	if collisions != 2 {
		t.Errorf("expected 2 collisions, got %d", collisions)
	}
}

func TestIDGenerator_GivesUp(t *testing.T) {
	g := NewSequenceGenerator(1)
	_, _, err := g.Generate(context.Background(), func(context.Context, string) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("expected error when every id is taken")
	}
}

func TestIDGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewIDGenerator().Generate(ctx, func(context.Context, string) (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestValidExternalID(t *testing.T) {
	for _, s := range []string{"PT-12345", "PT-00000"} {
		if !ValidExternalID(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []string{"PT-1234", "PT-123456", "pt-12345", "XX-12345", "PT-1234a"} {
		if ValidExternalID(s) {
			t.Errorf("%s should be invalid", s)
		}
	}
}
