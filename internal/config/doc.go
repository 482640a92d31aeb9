// Package config provides configuration structures and utilities for keyvet.
// It defines the main options for key validation runs, provider profiles
// loaded from the .keyvet YAML file, and report generation preferences.
package config
