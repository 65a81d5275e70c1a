package x11

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jezek/xgb/xproto"
)

// UnmarshalTOML implements toml.Unmarshaler. Keybinds are written as
// dash-separated strings, e.g. "mod4-shift-t" or "print".
func (k *Key) UnmarshalTOML(value any) error {
	str, ok := value.(string)
	if !ok {
		return errors.New("bind value was not a string")
	}
	return k.UnmarshalText([]byte(str))
}

// UnmarshalText parses a dash-separated keybind string. Raw keycodes can
// be given as "codeNN" for keys without a name in the keycode table.
func (k *Key) UnmarshalText(data []byte) error {
	for _, split := range strings.Split(string(data), "-") {
		split = strings.ToLower(split)
		if code, ok := keys[split]; ok {
			if k.Code != 0 {
				return errors.New("more than one key")
			}
			k.Code = code
		} else if mod, ok := mods[split]; ok {
			k.Mod |= mod
		} else if strings.HasPrefix(split, "code") {
			num, err := strconv.Atoi(split[4:])
			if err != nil {
				return fmt.Errorf("invalid key component: %s", split)
			}
			if num < 0 || num > 255 {
				return fmt.Errorf("invalid key code: %d", num)
			}
			if k.Code != 0 {
				return errors.New("more than one key")
			}
			k.Code = xproto.Keycode(num)
		} else {
			return fmt.Errorf("invalid key component: %s", split)
		}
	}
	if k.Code == 0 {
		return errors.New("bind has no key")
	}
	return nil
}

// String implements Stringer.
func (k Key) String() string {
	parts := make([]string, 0, 2)
	for name, mod := range mods {
		if name == "control" || name == "alt" {
			continue
		}
		if k.Mod&mod != 0 {
			parts = append(parts, name)
		}
	}
	sort.Strings(parts)
	for name, code := range keys {
		if code == k.Code {
			parts = append(parts, name)
			break
		}
	}
	return strings.Join(parts, "-")
}
