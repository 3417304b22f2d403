package normalize

import "testing"

func TestEmail(t *testing.T) {
	in := "  John.DOE@Example.COM  "
	want := "john.doe@example.com"
	got := Email(in)
	if got != want {
		t.Fatalf("Normalize.Email(%q) = %q, want %q", in, got, want)
	}
}

func TestFiliere(t *testing.T) {
	if got := Filiere("  GI \n"); got != "GI" {
		t.Fatalf("Filiere = %q, want %q", got, "GI")
	}
	if got := Filiere("info"); got != "info" {
		t.Fatalf("Filiere should keep case, got %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("  Ada \t Lovelace\n"); got != "Ada Lovelace" {
		t.Fatalf("DisplayName = %q", got)
	}
}
