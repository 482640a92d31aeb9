// Package keyfile reads the newline-delimited API key input file and
// writes the active-keys output file.
package keyfile
