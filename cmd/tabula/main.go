// Command tabula is a small console for the table registries and document
// stores managed by the tabula library.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
