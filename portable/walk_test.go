package portable

import (
	"context"
	"errors"
	"testing"
	"time"
)

func collectWalk(t *testing.T, c *Content, opts WalkOptions) []WalkEntry {
	t.Helper()
	var entries []WalkEntry
	err := c.Walk(context.Background(), func(e WalkEntry) bool {
		entries = append(entries, e)
		return true
	}, opts)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return entries
}

func TestWalkBreadthFirst(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	a := md.AddFolder(st, "A")
	b := md.AddFolder(st, "B")
	md.AddFile(a, "f2.txt", []byte("2"), time.Now())
	md.AddFile(a, "f1.txt", []byte("1"), time.Now())
	md.AddFolder(a, "sub")
	md.AddFile(b, "b.txt", []byte("b"), time.Now())

	card := storageContent(t, dev, "Card")
	entries := collectWalk(t, card, WalkOptions{})

	want := []string{
		"Nokia 6/Card",
		"Nokia 6/Card/A",
		"Nokia 6/Card/B",
		"Nokia 6/Card/A/sub",
	}
	if len(entries) != len(want) {
		t.Fatalf("visited %d directories, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if got := entries[i].Dir.FullName(); got != w {
			t.Errorf("entry %d = %q, want %q", i, got, w)
		}
	}

	// Files within an entry are sorted by full path.
	aEntry := entries[1]
	if len(aEntry.Files) != 2 {
		t.Fatalf("A has %d files, want 2", len(aEntry.Files))
	}
	if aEntry.Files[0].Name() != "f1.txt" || aEntry.Files[1].Name() != "f2.txt" {
		t.Errorf("A files = %q, %q", aEntry.Files[0].Name(), aEntry.Files[1].Name())
	}
}

func TestWalkProgressAbortsEverything(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	a := md.AddFolder(st, "A")
	md.AddFile(a, "one.txt", []byte("1"), time.Now())
	md.AddFile(a, "two.txt", []byte("2"), time.Now())

	card := storageContent(t, dev, "Card")
	seen := 0
	yielded := 0
	err := card.Walk(context.Background(), func(WalkEntry) bool {
		yielded++
		return true
	}, WalkOptions{
		// Abort as soon as the second child of any directory shows up.
		Progress: func(path string) bool {
			seen++
			return seen < 2
		},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if seen != 2 {
		t.Errorf("progress saw %d children after abort, want 2", seen)
	}
	// The walk stopped mid listing, so no further entries were yielded.
	if yielded > 1 {
		t.Errorf("yielded %d entries after abort", yielded)
	}
}

func TestWalkVisitStopsEarly(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	md.AddFolder(st, "A")
	md.AddFolder(st, "B")

	card := storageContent(t, dev, "Card")
	visits := 0
	err := card.Walk(context.Background(), func(WalkEntry) bool {
		visits++
		return false
	}, WalkOptions{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if visits != 1 {
		t.Errorf("visited %d directories after stop, want 1", visits)
	}
}

func TestWalkOnErrorSkipsButDescendsPartialListing(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	md.PageSize = 2
	md.AddFolder(st, "d1")
	md.AddFolder(st, "d2")
	md.AddFolder(st, "d3")
	md.AddFolder(st, "d4")
	md.PageErrAfter[st] = 1

	card := storageContent(t, dev, "Card")
	var skipped []string
	var visited []string
	err := card.Walk(context.Background(), func(e WalkEntry) bool {
		visited = append(visited, e.Dir.Name())
		return true
	}, WalkOptions{
		OnError: func(dir *Content, err error) bool {
			skipped = append(skipped, dir.Name())
			return true
		},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "Card" {
		t.Fatalf("skipped = %v, want [Card]", skipped)
	}
	// The two subdirectories listed before the failure are still walked.
	if len(visited) != 2 || visited[0] != "d1" || visited[1] != "d2" {
		t.Fatalf("visited = %v, want [d1 d2]", visited)
	}
}

func TestWalkOnErrorLeavesSiblingsUntouched(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	a := md.AddFolder(st, "A")
	b := md.AddFolder(st, "B")
	c := md.AddFolder(st, "C")
	md.AddFile(a, "a.txt", []byte("a"), time.Now())
	md.AddFile(b, "b.txt", []byte("b"), time.Now())
	md.AddFile(c, "c.txt", []byte("c"), time.Now())
	md.ChildrenErr[b] = errors.New("device reset during listing")

	card := storageContent(t, dev, "Card")
	var visited []string
	err := card.Walk(context.Background(), func(e WalkEntry) bool {
		visited = append(visited, e.Dir.Name())
		return true
	}, WalkOptions{
		OnError: func(dir *Content, err error) bool { return true },
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"Card", "A", "C"}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i, w := range want {
		if visited[i] != w {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], w)
		}
	}
}

func TestWalkWithoutOnErrorAborts(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	md.AddFolder(st, "A")
	md.PageErrAfter[st] = 0

	card := storageContent(t, dev, "Card")
	err := card.Walk(context.Background(), func(WalkEntry) bool { return true }, WalkOptions{})
	if err == nil {
		t.Fatalf("Walk succeeded, want listing error")
	}
}
