package governor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phantomos/governor/internal/types"
)

func TestScopeCheck(t *testing.T) {
	now := time.Now()

	t.Run("no scopes allows everything", func(t *testing.T) {
		tab := newScopeTable()
		if !tab.Check(types.CapWriteFiles, "/anywhere", 1<<20, now) {
			t.Error("empty table denied")
		}
	})

	t.Run("irrelevant capability allows", func(t *testing.T) {
		tab := newScopeTable()
		mustAdd(t, tab, Scope{ID: "w", Caps: types.CapWriteFiles, PathGlob: "/data/*"})
		if !tab.Check(types.CapReadFiles, "/other/file", 0, now) {
			t.Error("unscoped capability denied")
		}
	})

	t.Run("relevant scope with no path match denies", func(t *testing.T) {
		tab := newScopeTable()
		mustAdd(t, tab, Scope{ID: "w", Caps: types.CapWriteFiles, PathGlob: "/data/*"})
		if tab.Check(types.CapWriteFiles, "/etc/passwd", 0, now) {
			t.Error("out-of-scope path allowed")
		}
	})

	t.Run("path match within size allows", func(t *testing.T) {
		tab := newScopeTable()
		mustAdd(t, tab, Scope{ID: "w", Caps: types.CapWriteFiles, PathGlob: "/data/*", MaxBytes: 1024})
		if !tab.Check(types.CapWriteFiles, "/data/log.txt", 512, now) {
			t.Error("in-scope write denied")
		}
	})

	t.Run("size over budget denies", func(t *testing.T) {
		tab := newScopeTable()
		mustAdd(t, tab, Scope{ID: "w", Caps: types.CapWriteFiles, PathGlob: "/data/*", MaxBytes: 1024})
		if tab.Check(types.CapWriteFiles, "/data/log.txt", 2048, now) {
			t.Error("over-budget write allowed")
		}
	})

	t.Run("question mark matches one character", func(t *testing.T) {
		tab := newScopeTable()
		mustAdd(t, tab, Scope{ID: "q", Caps: types.CapReadFiles, PathGlob: "/logs/day?.txt"})
		if !tab.Check(types.CapReadFiles, "/logs/day1.txt", 0, now) {
			t.Error("single-char glob failed to match")
		}
		if tab.Check(types.CapReadFiles, "/logs/day12.txt", 0, now) {
			t.Error("single-char glob matched two characters")
		}
	})
}

func mustAdd(t *testing.T, tab *scopeTable, s Scope) {
	t.Helper()
	if err := tab.Add(s); err != nil {
		t.Fatalf("Add(%s): %v", s.ID, err)
	}
}

func TestScopeExpiry(t *testing.T) {
	now := time.Now()
	tab := newScopeTable()
	mustAdd(t, tab, Scope{
		ID: "tmp", Caps: types.CapWriteFiles, PathGlob: "/tmp/*",
		ValidUntil: now.Add(time.Minute),
	})

	if !tab.Check(types.CapWriteFiles, "/tmp/a", 0, now) {
		t.Fatal("live scope denied")
	}
	// past expiry the scope deactivates on sight; with no remaining scope
	// claiming the capability, the default allows
	later := now.Add(2 * time.Minute)
	if !tab.Check(types.CapWriteFiles, "/elsewhere", 0, later) {
		t.Error("expired scope still constrained the capability")
	}
	if removed := tab.Cleanup(later); removed != 1 {
		t.Errorf("Cleanup removed %d, want 1", removed)
	}
	if tab.Count() != 0 {
		t.Errorf("count after cleanup = %d", tab.Count())
	}
}

func TestScopeAddErrors(t *testing.T) {
	tab := newScopeTable()
	if err := tab.Add(Scope{ID: "", PathGlob: "/x"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty id error = %v", err)
	}
	if err := tab.Add(Scope{ID: "bad", PathGlob: "[unclosed"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("bad glob error = %v", err)
	}

	for i := 0; i < ScopeMax; i++ {
		mustAdd(t, tab, Scope{ID: fmt.Sprintf("s%d", i), Caps: types.CapReadFiles, PathGlob: "/a/*"})
	}
	err := tab.Add(Scope{ID: "overflow", Caps: types.CapReadFiles, PathGlob: "/a/*"})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("overflow error = %v, want ErrCapacityExceeded", err)
	}

	// replacing an existing ID does not consume a slot
	if err := tab.Add(Scope{ID: "s0", Caps: types.CapWriteFiles, PathGlob: "/b/*"}); err != nil {
		t.Errorf("replace existing: %v", err)
	}
}

func TestScopeRemove(t *testing.T) {
	tab := newScopeTable()
	mustAdd(t, tab, Scope{ID: "a", Caps: types.CapReadFiles, PathGlob: "/a"})
	if err := tab.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := tab.Remove("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}
}
