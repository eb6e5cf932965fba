// Package config handles YAML configuration loading with environment variable
// substitution. Configuration files support ${VAR} syntax for environment
// variable interpolation, applied before YAML parsing.
//
// OUTPUT_DIR is intentionally not part of this schema: it is read directly
// from the environment by each cmd/ entry point, per the external interface
// contract.
package config
