// Package configs provides embedded configuration templates for sift.
//
// Templates are embedded at build time so `sift config init` works from any
// distribution. Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/sift/config.yaml)
//  3. Project config (.sift.yaml)
//  4. Environment variables (SIFT_*)
//  5. Command-line flags
package configs

import _ "embed"

// UserConfigTemplate is written by `sift config init` to the user config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `sift config init --project` to .sift.yaml.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
