package bridge

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ---------------------------------------------------------------------------
// Text codec capabilities
// ---------------------------------------------------------------------------

func registerCodecCapabilities(reg *BuiltinRegistry) error {
	// codec.hex.encode: payload -> lowercase hex text
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "codec.hex.encode",
		Description: "Encode a buffer as lowercase hexadecimal text",
		Category:    "codec",
		Arity:       1,
		Keywords:    []string{"encode", "hex", "hexadecimal"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("codec.hex.encode", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, hex.EncodedLen(len(args[0])))
		hex.Encode(out, args[0])
		return out, nil
	}); err != nil {
		return err
	}

	// codec.hex.decode: hex text -> payload
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "codec.hex.decode",
		Description: "Decode hexadecimal text back into raw bytes",
		Category:    "codec",
		Arity:       1,
		Keywords:    []string{"decode", "hex", "hexadecimal"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("codec.hex.decode", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, hex.DecodedLen(len(args[0])))
		n, err := hex.Decode(out, args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: codec.hex.decode: %v", ErrConversion, err)
		}
		return out[:n], nil
	}); err != nil {
		return err
	}

	// codec.base64.encode: payload -> standard base64 text
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "codec.base64.encode",
		Description: "Encode a buffer as standard base64 text",
		Category:    "codec",
		Arity:       1,
		Keywords:    []string{"encode", "base64", "b64"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("codec.base64.encode", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, base64.StdEncoding.EncodedLen(len(args[0])))
		base64.StdEncoding.Encode(out, args[0])
		return out, nil
	}); err != nil {
		return err
	}

	// codec.base64.decode: base64 text -> payload
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "codec.base64.decode",
		Description: "Decode standard base64 text back into raw bytes",
		Category:    "codec",
		Arity:       1,
		Keywords:    []string{"decode", "base64", "b64"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("codec.base64.decode", args, 1); err != nil {
			return nil, err
		}
		out := make([]byte, base64.StdEncoding.DecodedLen(len(args[0])))
		n, err := base64.StdEncoding.Decode(out, args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: codec.base64.decode: %v", ErrConversion, err)
		}
		return out[:n], nil
	})
}
