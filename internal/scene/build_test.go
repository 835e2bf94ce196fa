package scene

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, data string) *File {
	t.Helper()
	f, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return f
}

func TestBuild_Tree(t *testing.T) {
	root := Build(mustParse(t, demoYAML), nil)
	w := root.Context()

	if w.Name != "demo" {
		t.Errorf("World.Name = %q, want demo", w.Name)
	}
	if w.Vars["mode"] != "sandbox" {
		t.Errorf("World.Vars[mode] = %q, want sandbox", w.Vars["mode"])
	}
	if w.Len() != 3 {
		t.Errorf("World.Len() = %d, want 3", w.Len())
	}
	if root.Len() != 2 {
		t.Errorf("root.Len() = %d, want 2", root.Len())
	}

	ship, ok := w.Actor("demo/ship")
	if !ok {
		t.Fatal("Actor(demo/ship) not found")
	}
	engine, ok := w.Actor("demo/ship/engine")
	if !ok {
		t.Fatal("Actor(demo/ship/engine) not found")
	}
	if !root.Has(ship) || !ship.Has(engine) {
		t.Error("tree structure does not match the scene")
	}
	if ship.World() != w {
		t.Error("Actor.World() is not the root context")
	}

	if !ship.HasSetup() || !ship.HasUpdate() || !ship.HasTeardown() {
		t.Error("ship should have all hooks")
	}
	if engine.HasSetup() || !engine.HasUpdate() || engine.HasTeardown() {
		t.Error("engine should only have update")
	}
}

func TestBuild_Lifecycle(t *testing.T) {
	root := Build(mustParse(t, demoYAML), nil)
	w := root.Context()

	if err := root.SetupTree(); err != nil {
		t.Fatalf("SetupTree() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := root.UpdateTree(); err != nil {
			t.Fatalf("UpdateTree() error = %v", err)
		}
	}
	if err := root.TeardownTree(); err != nil {
		t.Fatalf("TeardownTree() error = %v", err)
	}

	if w.Frame != 3 {
		t.Errorf("World.Frame = %d, want 3", w.Frame)
	}

	tests := []struct {
		path                        string
		setups, updates, teardowns int
	}{
		{"demo/ship", 1, 3, 1},
		{"demo/ship/engine", 0, 3, 0},
		{"demo/hud", 1, 0, 0},
	}
	for _, tt := range tests {
		a, _ := w.Actor(tt.path)
		if a.Setups != tt.setups || a.Updates != tt.updates || a.Teardowns != tt.teardowns {
			t.Errorf("%s counts = %d/%d/%d, want %d/%d/%d", tt.path,
				a.Setups, a.Updates, a.Teardowns, tt.setups, tt.updates, tt.teardowns)
		}
	}
}

func TestBuild_InjectedFailure(t *testing.T) {
	data := `
name: demo
nodes:
  - name: a
    hooks: [update]
    fail: update
  - name: b
    hooks: [update]
`
	root := Build(mustParse(t, data), nil)
	w := root.Context()

	err := root.UpdateTree()
	if !errors.Is(err, ErrInjected) {
		t.Fatalf("UpdateTree() error = %v, want ErrInjected", err)
	}
	b, _ := w.Actor("demo/b")
	if b.Updates != 0 {
		t.Errorf("sibling after the failure ran %d times, want 0", b.Updates)
	}
	if w.Frame != 1 {
		t.Errorf("World.Frame = %d, want 1 (root runs before its children)", w.Frame)
	}
}

func TestBuild_IndependentTrees(t *testing.T) {
	f := mustParse(t, demoYAML)
	r1 := Build(f, nil)
	r2 := Build(f, nil)

	if err := r1.UpdateTree(); err != nil {
		t.Fatal(err)
	}
	if r2.Context().Frame != 0 {
		t.Error("building twice should give independent worlds")
	}

	r1.Context().Vars["mode"] = "changed"
	if f.Context["mode"] != "sandbox" {
		t.Error("World.Vars aliases the parsed file")
	}
}

func TestActor_HooksCopy(t *testing.T) {
	root := Build(mustParse(t, demoYAML), nil)
	ship, _ := root.Context().Actor("demo/ship")

	h := ship.Hooks()
	h[0] = "mutated"
	if ship.Hooks()[0] != HookSetup {
		t.Error("Hooks() should return a copy")
	}
}
