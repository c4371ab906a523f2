package archive

import "testing"

func TestShouldArchive(t *testing.T) {
	small := make([]byte, maxInlineBodyBytes)
	large := make([]byte, maxInlineBodyBytes+1)

	if ShouldArchive(small) {
		t.Fatalf("expected body at threshold to stay inline")
	}
	if !ShouldArchive(large) {
		t.Fatalf("expected body over threshold to be archived")
	}
}
