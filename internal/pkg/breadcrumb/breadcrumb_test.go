package breadcrumb

import "testing"

func TestReplaceAndAppend(t *testing.T) {
	trail := NewTrail()

	trail.Replace([]Entry{
		{Name: "Home", Path: "/"},
		{Name: "Favorites", Path: "/favorites"},
	})
	if trail.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", trail.Len())
	}

	trail.Append(Entry{Name: "Electronics", Path: "/collections/Electronics"})
	if trail.Len() != 3 {
		t.Fatalf("expected 3 entries after append, got %d", trail.Len())
	}

	current, ok := trail.Current()
	if !ok || current.Name != "Electronics" {
		t.Fatalf("expected current Electronics, got %v", current)
	}

	// Replace 必须丢弃之前追加的层级
	trail.Replace([]Entry{{Name: "Home", Path: "/"}})
	if trail.Len() != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", trail.Len())
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	trail := NewTrail()
	trail.Replace([]Entry{{Name: "Home", Path: "/"}})

	snapshot := trail.Entries()
	snapshot[0].Name = "changed"

	current, _ := trail.Current()
	if current.Name != "Home" {
		t.Fatalf("snapshot mutation leaked into trail: %v", current)
	}
}

func TestCurrentEmpty(t *testing.T) {
	trail := NewTrail()
	if _, ok := trail.Current(); ok {
		t.Fatal("expected no current entry on empty trail")
	}
}
