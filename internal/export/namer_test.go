package export

import "testing"

func TestNamerResolve(t *testing.T) {
	n := NewNamer()

	if got := n.Resolve("name.jpg"); got != "name.jpg" {
		t.Errorf("first use = %q, want unchanged name", got)
	}
	if got := n.Resolve("name.jpg"); got != "name (1).jpg" {
		t.Errorf("first collision = %q, want \"name (1).jpg\"", got)
	}
	if got := n.Resolve("name.jpg"); got != "name (2).jpg" {
		t.Errorf("second collision = %q, want \"name (2).jpg\"", got)
	}
	if got := n.Resolve("other.png"); got != "other.png" {
		t.Errorf("unrelated name = %q, want unchanged", got)
	}
}

func TestNamerNoExtension(t *testing.T) {
	n := NewNamer()

	n.Resolve("cover")
	if got := n.Resolve("cover"); got != "cover (1)" {
		t.Errorf("collision without extension = %q, want \"cover (1)\"", got)
	}
}

func TestNamerReset(t *testing.T) {
	n := NewNamer()

	n.Resolve("name.jpg")
	n.Reset()

	if got := n.Resolve("name.jpg"); got != "name.jpg" {
		t.Errorf("after reset = %q, want counters cleared", got)
	}
}
