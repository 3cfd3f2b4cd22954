package levelio

import (
	"strings"
	"testing"
)

func TestDesktopRoundTrip(t *testing.T) {
	plist := []byte(`<?xml version="1.0"?><plist><dict><k>k2</k><s>MyLevel</s><k>k4</k><s>1,1,2,15;</s></dict></plist>`)
	enc, err := EncodeDesktop(plist)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := DecodeDesktop(enc)
	if err != nil {
		t.Fatal(err)
	}
	if string(dec) != string(plist) {
		t.Fatalf("round trip mismatch:\n got: %s\nwant: %s", dec, plist)
	}
}

func TestIOSRoundTrip(t *testing.T) {
	plist := []byte(`<?xml version="1.0"?><plist><dict><k>k2</k><s>MyLevel</s><k>k4</k><s>1,1,2,15;</s></dict></plist>`)
	enc, err := EncodeIOS(plist)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := DecodeIOS(enc)
	if err != nil {
		t.Fatal(err)
	}
	if string(dec) != string(plist) {
		t.Fatalf("round trip mismatch:\n got: %s\nwant: %s", dec, plist)
	}
}

func TestFindK4(t *testing.T) {
	plist := []byte(`<k>k2</k><s>Level1</s><k>k4</k><s>obj-a;</s><k>k2</k><s>Level2</s><k>k4</k><s>obj-b;</s>`)

	got, err := FindK4(plist, "Level2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "obj-b;" {
		t.Fatalf("got %q", got)
	}
}

func TestFindK4LevelNotFound(t *testing.T) {
	plist := []byte(`<k>k2</k><s>Level1</s><k>k4</k><s>obj-a;</s>`)
	if _, err := FindK4(plist, "NoSuchLevel"); err != ErrLevelNotFound {
		t.Fatalf("got %v, want ErrLevelNotFound", err)
	}
}

func TestFindK4LevelNotInitialized(t *testing.T) {
	plist := []byte(`<k>k2</k><s>Level1</s><k>k3</k><s>desc</s>`)
	if _, err := FindK4(plist, "Level1"); err != ErrLevelNotInitialized {
		t.Fatalf("got %v, want ErrLevelNotInitialized", err)
	}
}

func TestSpliceK4ReplacesOnlyTheMatchedLevel(t *testing.T) {
	plist := []byte(`<k>k2</k><s>Level1</s><k>k4</k><s>old-a;</s><k>k2</k><s>Level2</s><k>k4</k><s>old-b;</s>`)
	out, err := SpliceK4(plist, "Level2", "new-b;")
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "old-a;") {
		t.Fatal("Level1's k4 must be untouched")
	}
	if strings.Contains(s, "old-b;") || !strings.Contains(s, "new-b;") {
		t.Fatalf("expected Level2's k4 replaced, got %s", s)
	}
}

func TestMergeCompileOutputStripsPriorSignature(t *testing.T) {
	existing := "1,1,57,5.1001;1,2,57,6;"
	merged := MergeCompileOutput(existing, "1,3,57,7.1001;")
	if strings.Contains(merged, "57,5.1001") {
		t.Fatal("expected the old signature-group object removed before concatenating")
	}
	if !strings.Contains(merged, "57,6") {
		t.Fatal("expected the non-SPWN object to survive")
	}
	if !strings.Contains(merged, "57,7.1001") {
		t.Fatal("expected the freshly compiled output appended")
	}
}
