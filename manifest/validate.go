package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
)

// manifestSchema constrains a raw willie.toml document. The definition
// is closed, so a misspelled section or key is rejected instead of
// silently ignored.
const manifestSchema = `
#Manifest: {
	bridge?: {
		"search-paths"?: [...string]
		"search-threshold"?: number & >=0 & <=1
		"sandbox-root"?: string
	}
	libraries?: [...{
		name: string & !=""
		path?: string
	}]
	functions?: [...{
		library:      string & !=""
		signature:    string & !=""
		description?: string
		keywords?: [...string]
	}]
	synonyms?: [...{
		primary: string & !=""
		terms: [...string & !=""]
	}]
	remote?: {
		target?: string
	}
}
`

// Validate checks a raw willie.toml document against the manifest
// schema. Load runs this before decoding; callers holding manifest
// bytes from elsewhere can run it directly.
func Validate(data []byte) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(manifestSchema).LookupPath(cue.ParsePath("#Manifest"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}

	doc := schema.Unify(ctx.Encode(raw))
	if err := doc.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %s", cueerrors.Details(err, nil))
	}
	return nil
}
