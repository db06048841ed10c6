// Package main provides the CLI entrypoint for soundboard.
package main

func main() {
	Execute()
}
