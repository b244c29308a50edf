// Package config loads ghsweep's runtime configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence, using koanf.
package config
