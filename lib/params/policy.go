package params

import (
	"strings"

	"github.com/samber/oops"
)

// ScriptType selects the output script used for wallet addresses.
type ScriptType string

const (
	P2PKH  ScriptType = "P2PKH"
	P2WPKH ScriptType = "P2WPKH"
	P2TR   ScriptType = "P2TR"
)

func ParseScriptType(s string) (ScriptType, error) {
	switch t := ScriptType(strings.ToUpper(strings.TrimSpace(s))); t {
	case P2PKH, P2WPKH, P2TR:
		return t, nil
	}
	return "", oops.Errorf("unknown script type %q", s)
}

// KeyStructure is the policy used to lay out the wallet's deterministic key chains.
type KeyStructure string

const (
	// BIP32 uses the single account path m/0'
	BIP32 KeyStructure = "BIP32"
	// BIP43 uses purpose-based paths (BIP44/BIP84/BIP86 depending on script type)
	BIP43 KeyStructure = "BIP43"
)

func ParseKeyStructure(s string) (KeyStructure, error) {
	switch k := KeyStructure(strings.ToUpper(strings.TrimSpace(s))); k {
	case BIP32, BIP43:
		return k, nil
	}
	return "", oops.Errorf("unknown key structure %q", s)
}
