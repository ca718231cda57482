package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is a hotkey identifier and its Windows virtual-key code.
type Key struct {
	Name string
	VK   uint16
}

// keys lists every supported identifier. Mouse buttons come first so a
// capture that sees several keys at once prefers them.
var keys = buildKeys()

var keysByName = func() map[string]Key {
	m := make(map[string]Key, len(keys))
	for _, k := range keys {
		m[k.Name] = k
	}
	return m
}()

func buildKeys() []Key {
	out := []Key{
		{"left", 0x01}, {"right", 0x02}, {"middle", 0x04}, {"x1", 0x05}, {"x2", 0x06},
	}
	for i := 1; i <= 24; i++ {
		out = append(out, Key{"f" + strconv.Itoa(i), uint16(0x70 + i - 1)}) // VK_F1=0x70
	}
	for c := 'a'; c <= 'z'; c++ {
		out = append(out, Key{string(c), uint16(c - 'a' + 'A')})
	}
	for c := '0'; c <= '9'; c++ {
		out = append(out, Key{string(c), uint16(c)})
	}
	return append(out,
		Key{"shift", 0x10}, Key{"ctrl", 0x11}, Key{"alt", 0x12},
		Key{"space", 0x20}, Key{"tab", 0x09}, Key{"caps_lock", 0x14},
		Key{"esc", 0x1B}, Key{"enter", 0x0D},
	)
}

// ParseHotkey resolves a case-insensitive identifier such as "x1", "F3" or "q".
func ParseHotkey(name string) (Key, error) {
	k, ok := keysByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Key{}, fmt.Errorf("action: unknown hotkey %q", name)
	}
	return k, nil
}
