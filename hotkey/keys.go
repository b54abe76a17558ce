package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Key codes reported by the global input hook.
var keyCodes = map[string][]uint16{
	"alt":   {56, 3640},
	"ctrl":  {29, 3613},
	"shift": {42, 54},
	"meta":  {3675, 3676},
}

var keyAliases = map[string]string{
	"option":  "alt",
	"control": "ctrl",
	"cmd":     "meta",
	"command": "meta",
	"super":   "meta",
	"win":     "meta",
}

// ParseKey resolves a key name such as "alt" or "ctrl" to the codes of its
// left and right variants. A decimal number is accepted as a raw code.
func ParseKey(name string) ([]uint16, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := keyAliases[name]; ok {
		name = alias
	}
	if codes, ok := keyCodes[name]; ok {
		return codes, nil
	}
	if n, err := strconv.ParseUint(name, 10, 16); err == nil && n > 0 {
		return []uint16{uint16(n)}, nil
	}
	return nil, fmt.Errorf("unknown hotkey %q", name)
}
