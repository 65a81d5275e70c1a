// Package res contains resources embedded within vaporwm that are used
// elsewhere.
package res

import (
	_ "embed"
)

// DefaultConfig contains the default configuration profile.
//
//go:embed default.toml
var DefaultConfig []byte
