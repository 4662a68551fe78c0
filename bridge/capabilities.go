package bridge

import "fmt"

// ---------------------------------------------------------------------------
// Standard capability set
// ---------------------------------------------------------------------------

// RegisterStandardCapabilities installs the curated built-in set:
// compression, digests, text codecs, regular expressions, time, and the
// certificate and TLS inspectors. Capabilities needing host-owned state,
// like sandboxed file access, are registered separately by their
// providers.
func RegisterStandardCapabilities(reg *BuiltinRegistry) error {
	for _, register := range []func(*BuiltinRegistry) error{
		registerCompressCapabilities,
		registerDigestCapabilities,
		registerCodecCapabilities,
		registerRegexCapabilities,
		registerTimeCapabilities,
		registerTLSCapabilities,
	} {
		if err := register(reg); err != nil {
			return err
		}
	}
	return nil
}

// wantArgs rejects a capability invocation whose buffer count does not
// match the declared shape.
func wantArgs(name string, args [][]byte, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s takes %d buffers, got %d", ErrInvalidArgCount, name, n, len(args))
	}
	return nil
}
