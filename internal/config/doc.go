// Package config loads uploadd settings from the environment and named upload
// policies from an optional YAML file.
package config
