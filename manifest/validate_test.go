package manifest

import (
	"strings"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	doc := `
[bridge]
search-threshold = 0.75

[[libraries]]
name = "zlib"

[[functions]]
library = "zlib"
signature = "u64 crc32(u64 crc, string buf, u32 len)"
`
	if err := Validate([]byte(doc)); err != nil {
		t.Errorf("Validate rejected a well-formed manifest: %v", err)
	}
}

func TestValidateEmptyDocument(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Errorf("Validate rejected an empty manifest: %v", err)
	}
}

func TestValidateRejectsUnknownKey(t *testing.T) {
	doc := `
[bridge]
serch-threshold = 0.5
`
	err := Validate([]byte(doc))
	if err == nil {
		t.Fatal("Validate accepted a misspelled key")
	}
	if !strings.Contains(err.Error(), "serch-threshold") {
		t.Errorf("error does not name the bad key: %v", err)
	}
}

func TestValidateRejectsUnknownSection(t *testing.T) {
	if err := Validate([]byte("[remotes]\ntarget = \"x\"\n")); err == nil {
		t.Error("Validate accepted an unknown section")
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	if err := Validate([]byte("[bridge]\nsearch-threshold = \"high\"\n")); err == nil {
		t.Error("Validate accepted a string threshold")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	if err := Validate([]byte("[bridge]\nsearch-threshold = 1.5\n")); err == nil {
		t.Error("Validate accepted a threshold above 1")
	}
}

func TestValidateRejectsMissingName(t *testing.T) {
	doc := `
[[libraries]]
path = "build/lib.so"
`
	if err := Validate([]byte(doc)); err == nil {
		t.Error("Validate accepted a library without a name")
	}
}

func TestValidateRejectsMalformedTOML(t *testing.T) {
	if err := Validate([]byte("[bridge\n")); err == nil {
		t.Error("Validate accepted malformed TOML")
	}
}

func TestLoadRunsValidation(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[bridge]
thresold = 0.5
`)
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted a manifest with an unknown key")
	}
}
