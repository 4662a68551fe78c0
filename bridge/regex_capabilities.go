package bridge

import (
	"fmt"
	"regexp"
)

// ---------------------------------------------------------------------------
// Regular expression capabilities
// ---------------------------------------------------------------------------

func registerRegexCapabilities(reg *BuiltinRegistry) error {
	// regex.match: pattern, input -> "true" or "false"
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "regex.match",
		Description: "Report whether a pattern matches anywhere in the input",
		Category:    "text",
		Arity:       2,
		Keywords:    []string{"match", "regex", "regexp", "pattern"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("regex.match", args, 2); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(string(args[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: regex.match: %v", ErrConversion, err)
		}
		if re.Match(args[1]) {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	}); err != nil {
		return err
	}

	// regex.find: pattern, input -> first match, empty buffer when none
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "regex.find",
		Description: "Return the first substring of the input the pattern matches",
		Category:    "text",
		Arity:       2,
		Keywords:    []string{"find", "regex", "regexp", "pattern", "extract"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("regex.find", args, 2); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(string(args[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: regex.find: %v", ErrConversion, err)
		}
		match := re.Find(args[1])
		if match == nil {
			return []byte{}, nil
		}
		return match, nil
	})
}
