package modcache

import (
	"testing"
	"time"
)

func TestStoreAndLookupRoundTrip(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	mt := time.Unix(1700000000, 0)
	blob, err := EncodeSnapshot(map[string]int{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store(Entry{Path: "lib/std.spwn", ModTime: mt, Size: 42, Blob: blob}); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Lookup("lib/std.spwn", mt, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	var decoded map[string]int
	if err := DecodeSnapshot(got.Blob, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["x"] != 1 {
		t.Fatalf("got %v", decoded)
	}
}

func TestLookupMissesOnSizeChange(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	mt := time.Unix(1700000000, 0)
	if err := c.Store(Entry{Path: "a.spwn", ModTime: mt, Size: 10, Blob: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Lookup("a.spwn", mt, 11); err != nil || ok {
		t.Fatalf("expected a miss on size mismatch, ok=%v err=%v", ok, err)
	}
}

func TestInvalidate(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	mt := time.Unix(1700000000, 0)
	if err := c.Store(Entry{Path: "a.spwn", ModTime: mt, Size: 10, Blob: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate("a.spwn"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Lookup("a.spwn", mt, 10); err != nil || ok {
		t.Fatalf("expected a miss after invalidation, ok=%v err=%v", ok, err)
	}
}
