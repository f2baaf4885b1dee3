package resolve

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

func testPopulation() []*things.Thing {
	carryable := tags.Get("carryable")
	return []*things.Thing{
		things.New("Rusty Key", carryable),
		things.New("Golden Key", carryable),
		things.New("rope", carryable),
		things.New("Old Guard", tags.Get("character")),
	}
}

func TestThing_Exact(t *testing.T) {
	pop := testPopulation()

	got, err := Thing(pop, "ROPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != pop[2] {
		t.Errorf("got %v, want rope", got)
	}

	got, err = Thing(pop, pop[3].ID)
	if err != nil || got != pop[3] {
		t.Errorf("lookup by ID = %v, %v", got, err)
	}
}

func TestThing_Partial(t *testing.T) {
	pop := testPopulation()
	tests := []struct {
		query string
		want  *things.Thing
	}{
		{"guard", pop[3]},
		{"golden", pop[1]},
		{"rusty_key", pop[0]},
		{"rusty key", pop[0]},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := Thing(pop, tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThing_Ambiguous(t *testing.T) {
	_, err := Thing(testPopulation(), "key")
	var ae *AmbiguityError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguityError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Rusty Key", "Golden Key"}, ae.Candidates); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	if ae.Error() != "which key? (Rusty Key, Golden Key)" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

func TestThing_NotFound(t *testing.T) {
	for _, q := range []string{"sword", "", "  "} {
		_, err := Thing(testPopulation(), q)
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("Thing(%q): expected NotFoundError, got %v", q, err)
		}
	}
}

func TestNames(t *testing.T) {
	want := []string{"Rusty Key", "Golden Key", "rope", "Old Guard"}
	if diff := cmp.Diff(want, Names(testPopulation())); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}
