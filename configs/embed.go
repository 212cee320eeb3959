// Package configs holds configuration files compiled into the binaries.
package configs

import _ "embed"

// FilterOptions is the default filter options catalog.
//
//go:embed filter_options.yaml
var FilterOptions []byte
