package bridge

import (
	"errors"
	"testing"
)

func testCapability(out string) CapabilityFunc {
	return func(args [][]byte) ([]byte, error) {
		return []byte(out), nil
	}
}

func TestBuiltinRegisterAndCall(t *testing.T) {
	reg := NewBuiltinRegistry(DefaultSynonyms())
	err := reg.Register(CapabilityInfo{
		Name:        "echo",
		Description: "Return a fixed payload",
		Category:    "test",
		Arity:       0,
		Keywords:    []string{"echo"},
	}, testCapability("pong"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := reg.Call("echo", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(out) != "pong" {
		t.Errorf("Call = %q, want pong", out)
	}

	if _, err := reg.Call("missing", nil); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("unknown capability = %v, want ErrFunctionNotFound", err)
	}
}

func TestBuiltinDuplicateName(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	info := CapabilityInfo{Name: "dup", Keywords: []string{"dup"}}
	if err := reg.Register(info, testCapability("a")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(info, testCapability("b")); err == nil {
		t.Error("duplicate registration succeeded")
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
}

func TestBuiltinSearchViaSynonym(t *testing.T) {
	reg := NewBuiltinRegistry(DefaultSynonyms())
	err := reg.Register(CapabilityInfo{
		Name:        "squash",
		Description: "Make payloads smaller",
		Keywords:    []string{"compress", "shrink", "deflate"},
	}, testCapability("ok"))
	if err != nil {
		t.Fatal(err)
	}

	// "shrink this data": exact keyword hit on the expanded index.
	info, ok := reg.Search("shrink this data")
	if !ok {
		t.Fatal("Search(shrink this data) found nothing")
	}
	if info.Name != "squash" {
		t.Errorf("Search = %q, want squash", info.Name)
	}

	// "pack" was never supplied but is a synonym of compress.
	if _, ok := reg.Search("pack"); !ok {
		t.Error("synonym expansion did not index pack")
	}

	if _, ok := reg.Search("irrelevant nonsense"); ok {
		t.Error("irrelevant query found a capability")
	}
}

func TestBuiltinSearchThreshold(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	if err := reg.Register(CapabilityInfo{
		Name:     "only",
		Keywords: []string{"compression"},
	}, testCapability("x")); err != nil {
		t.Fatal(err)
	}

	// "compress" is a partial overlap with "compression": 0.5, exactly at
	// the default threshold.
	if _, ok := reg.Search("compress"); !ok {
		t.Error("partial overlap at 0.5 should clear the default threshold")
	}

	reg.SetThreshold(0.75)
	if _, ok := reg.Search("compress"); ok {
		t.Error("partial overlap should fall below a raised threshold")
	}
	if _, ok := reg.Search("compression"); !ok {
		t.Error("exact match should clear a 0.75 threshold")
	}
}

func TestBuiltinSearchTieInsertionOrder(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	for _, name := range []string{"first", "second"} {
		if err := reg.Register(CapabilityInfo{
			Name:     name,
			Keywords: []string{"same"},
		}, testCapability(name)); err != nil {
			t.Fatal(err)
		}
	}
	info, ok := reg.Search("same")
	if !ok {
		t.Fatal("Search found nothing")
	}
	if info.Name != "first" {
		t.Errorf("tie went to %q, want the earliest registration", info.Name)
	}
}

func TestSearchTopRanking(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	add := func(name, desc string, keywords ...string) {
		t.Helper()
		if err := reg.Register(CapabilityInfo{
			Name:        name,
			Description: desc,
			Keywords:    keywords,
		}, testCapability(name)); err != nil {
			t.Fatal(err)
		}
	}
	add("by-desc", "tool to compress payloads", "squeeze")
	add("by-keyword", "smaller outputs", "compress")
	add("unrelated", "something else", "time")

	hits := reg.SearchTop("compress", 10)
	if len(hits) != 2 {
		t.Fatalf("SearchTop returned %d hits, want 2", len(hits))
	}
	// Description substring outweighs an exact keyword: 2.0 vs 1.0.
	if hits[0].Info.Name != "by-desc" || hits[0].Score != 2.0 {
		t.Errorf("first hit = %s at %v, want by-desc at 2.0", hits[0].Info.Name, hits[0].Score)
	}
	if hits[1].Info.Name != "by-keyword" || hits[1].Score != 1.0 {
		t.Errorf("second hit = %s at %v, want by-keyword at 1.0", hits[1].Info.Name, hits[1].Score)
	}
}

func TestSearchTopLimitAndStability(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	for _, name := range []string{"a", "b", "c"} {
		if err := reg.Register(CapabilityInfo{
			Name:     name,
			Keywords: []string{"shared"},
		}, testCapability(name)); err != nil {
			t.Fatal(err)
		}
	}

	hits := reg.SearchTop("shared", 2)
	if len(hits) != 2 {
		t.Fatalf("SearchTop limit ignored: %d hits", len(hits))
	}
	// Stable sort keeps insertion order among equal scores.
	if hits[0].Info.Name != "a" || hits[1].Info.Name != "b" {
		t.Errorf("stable order broken: %s, %s", hits[0].Info.Name, hits[1].Info.Name)
	}
}

func TestBuiltinNamesInsertionOrder(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	for _, name := range []string{"z", "a", "m"} {
		if err := reg.Register(CapabilityInfo{Name: name}, testCapability(name)); err != nil {
			t.Fatal(err)
		}
	}
	names := reg.Names()
	want := []string{"z", "a", "m"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
