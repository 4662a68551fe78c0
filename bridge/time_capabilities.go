package bridge

import (
	"fmt"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Time capabilities
// ---------------------------------------------------------------------------

func registerTimeCapabilities(reg *BuiltinRegistry) error {
	// time.now.unix: -> current Unix seconds as decimal text
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "time.now.unix",
		Description: "Current time as Unix seconds in decimal text",
		Category:    "time",
		Arity:       0,
		Keywords:    []string{"time", "now", "unix", "epoch"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("time.now.unix", args, 0); err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, time.Now().Unix(), 10), nil
	}); err != nil {
		return err
	}

	// time.format.rfc3339: decimal Unix seconds -> RFC 3339 UTC text
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "time.format.rfc3339",
		Description: "Format Unix seconds as an RFC 3339 UTC timestamp",
		Category:    "time",
		Arity:       1,
		Keywords:    []string{"time", "format", "rfc3339", "iso8601"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("time.format.rfc3339", args, 1); err != nil {
			return nil, err
		}
		secs, err := strconv.ParseInt(string(args[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: time.format.rfc3339: %v", ErrConversion, err)
		}
		return []byte(time.Unix(secs, 0).UTC().Format(time.RFC3339)), nil
	})
}
