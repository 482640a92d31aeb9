// Package main provides the entry point for the keyvet CLI.
//
// keyvet validates API keys in bulk against an HTTP endpoint. It reads
// keys from a newline-delimited file, checks each one sequentially, and
// reports which keys are still active.
//
// Usage:
//
//	keyvet check
//	keyvet check -f keys.txt -e https://api.example.com/v1/models
//
// See --help for all available options.
package main

// main is the entry point for keyvet.
func main() {
	Execute()
}
