package state

import (
	"reflect"
	"testing"
)

func TestSynchronizer_InitialVersion(t *testing.T) {
	s := NewSynchronizer()
	if got := s.Version(); got != 1 {
		t.Errorf("Version() = %d, want 1", got)
	}
	if got := s.GetState(); len(got) != 0 {
		t.Errorf("GetState() = %v, want empty", got)
	}
}

func TestSynchronizer_VersionIncrementsByOne(t *testing.T) {
	s := NewSynchronizer()

	mutations := []func() error{
		func() error { s.SetState(map[string]any{"a": 1}); return nil },
		func() error { _, err := s.UpdateState(map[string]any{"b": 2}, ""); return err },
		func() error { s.MergeState(map[string]any{"c": map[string]any{"d": 3}}); return nil },
		func() error { _, err := s.SetValue("c.e", 4); return err },
		func() error { _, err := s.DeleteValue("a"); return err },
	}

	for i, mutate := range mutations {
		before := s.Version()
		if err := mutate(); err != nil {
			t.Fatalf("mutation %d error = %v", i, err)
		}
		if after := s.Version(); after != before+1 {
			t.Errorf("mutation %d: version %d -> %d, want +1", i, before, after)
		}
	}
}

func TestSynchronizer_SetState(t *testing.T) {
	s := NewSynchronizer()

	event := s.SetState(map[string]any{"a": 1, "b": 2})
	if event.Type != SyncFull {
		t.Errorf("event type = %s, want %s", event.Type, SyncFull)
	}
	if event.Version != 2 {
		t.Errorf("event version = %d, want 2", event.Version)
	}
	if !reflect.DeepEqual(event.State, map[string]any{"a": 1, "b": 2}) {
		t.Errorf("event state = %v", event.State)
	}

	// Full replace discards previous keys.
	s.SetState(map[string]any{"c": 3})
	if got := s.GetState(); !reflect.DeepEqual(got, map[string]any{"c": 3}) {
		t.Errorf("GetState() = %v, want {c:3}", got)
	}
}

func TestSynchronizer_UpdateState_PreservesSiblings(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{"root": map[string]any{"a": 1, "b": 2}})

	event, err := s.UpdateState(map[string]any{"a": 3}, "root")
	if err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	if event.Type != SyncIncremental {
		t.Errorf("event type = %s, want %s", event.Type, SyncIncremental)
	}
	if event.State != nil {
		t.Error("incremental event carries full state")
	}
	if event.Path != "root" || !reflect.DeepEqual(event.Delta, map[string]any{"a": 3}) {
		t.Errorf("event = %+v, want delta {a:3} at root", event)
	}

	got := s.GetState()
	root := got["root"].(map[string]any)
	if root["a"] != 3 {
		t.Errorf("a = %v, want 3", root["a"])
	}
	if root["b"] != 2 {
		t.Errorf("sibling b = %v, want 2 (merge must not replace)", root["b"])
	}
}

func TestSynchronizer_UpdateState_CreatesIntermediates(t *testing.T) {
	s := NewSynchronizer()

	if _, err := s.UpdateState(map[string]any{"leaf": 1}, "a.b.c"); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}
	if got := s.GetValue("a.b.c.leaf", nil); got != 1 {
		t.Errorf("GetValue(a.b.c.leaf) = %v, want 1", got)
	}
}

func TestSynchronizer_MergeState_Deep(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{
		"nested": map[string]any{"keep": "x", "replace": 1},
		"scalar": "old",
	})

	s.MergeState(map[string]any{
		"nested": map[string]any{"replace": 2},
		"scalar": "new",
	})

	got := s.GetState()
	nested := got["nested"].(map[string]any)
	if nested["keep"] != "x" {
		t.Errorf("nested.keep = %v, want x", nested["keep"])
	}
	if nested["replace"] != 2 {
		t.Errorf("nested.replace = %v, want 2", nested["replace"])
	}
	if got["scalar"] != "new" {
		t.Errorf("scalar = %v, want new", got["scalar"])
	}
}

func TestSynchronizer_GetValue(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{"a": map[string]any{"b": 42}})

	if got := s.GetValue("a.b", nil); got != 42 {
		t.Errorf("GetValue(a.b) = %v, want 42", got)
	}
	if got := s.GetValue("a.missing", "def"); got != "def" {
		t.Errorf("GetValue(a.missing) = %v, want def", got)
	}
	if got := s.GetValue("a.b.deeper", "def"); got != "def" {
		t.Errorf("GetValue through scalar = %v, want def", got)
	}
}

func TestSynchronizer_DeleteValue(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{"a": map[string]any{"b": 1, "c": 2}})

	event, err := s.DeleteValue("a.b")
	if err != nil {
		t.Fatalf("DeleteValue() error = %v", err)
	}
	if event.Version != 3 {
		t.Errorf("event version = %d, want 3", event.Version)
	}

	got := s.GetState()
	a := got["a"].(map[string]any)
	if _, ok := a["b"]; ok {
		t.Error("a.b still present after delete")
	}
	if a["c"] != 2 {
		t.Errorf("sibling a.c = %v, want 2", a["c"])
	}

	// A missing path is not an error and still bumps the version.
	before := s.Version()
	if _, err := s.DeleteValue("no.such.path"); err != nil {
		t.Fatalf("DeleteValue(missing) error = %v", err)
	}
	if s.Version() != before+1 {
		t.Errorf("version = %d, want %d", s.Version(), before+1)
	}
}

func TestSynchronizer_Reset(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{"a": 1})
	s.MergeState(map[string]any{"b": 2})

	event := s.Reset()
	if event.Type != SyncFull {
		t.Errorf("event type = %s, want %s", event.Type, SyncFull)
	}
	if event.Version != 1 {
		t.Errorf("Reset() version = %d, want 1", event.Version)
	}
	if len(event.State) != 0 {
		t.Errorf("Reset() state = %v, want empty", event.State)
	}
	if s.Version() != 1 {
		t.Errorf("Version() after reset = %d, want 1", s.Version())
	}
}

func TestSynchronizer_HistoryRing(t *testing.T) {
	s := NewSynchronizer()

	for i := 0; i < DefaultHistoryDepth+5; i++ {
		s.MergeState(map[string]any{"i": i})
	}

	history := s.History()
	if len(history) != DefaultHistoryDepth {
		t.Fatalf("history length = %d, want %d", len(history), DefaultHistoryDepth)
	}
	// Snapshots are pre-mutation and ordered oldest first.
	if history[0].Version >= history[len(history)-1].Version {
		t.Errorf("history not ordered: first v%d, last v%d",
			history[0].Version, history[len(history)-1].Version)
	}
}

func TestSynchronizer_GetStateIsolation(t *testing.T) {
	s := NewSynchronizer()
	s.SetState(map[string]any{"nested": map[string]any{"a": 1}})

	got := s.GetState()
	got["nested"].(map[string]any)["a"] = 99

	if v := s.GetValue("nested.a", nil); v != 1 {
		t.Errorf("tree mutated through GetState copy: nested.a = %v", v)
	}
}

func TestRunTable(t *testing.T) {
	table := NewRunTable()

	run := NewRunState("run-1")
	if run.Status != RunRunning {
		t.Errorf("new run status = %s, want %s", run.Status, RunRunning)
	}

	table.Add(run)
	if table.Count() != 1 {
		t.Errorf("Count() = %d, want 1", table.Count())
	}

	got, ok := table.Get("run-1")
	if !ok || got.RunID != "run-1" {
		t.Errorf("Get() = %v %v, want run-1 true", got, ok)
	}

	run.Finish(RunFailed, "boom")
	if run.Status != RunFailed || run.Error != "boom" {
		t.Errorf("Finish() status = %s error = %q", run.Status, run.Error)
	}
	if run.FinishedAt.IsZero() {
		t.Error("Finish() left FinishedAt zero")
	}

	table.Remove("run-1")
	if table.Count() != 0 {
		t.Errorf("Count() after remove = %d, want 0", table.Count())
	}
}
