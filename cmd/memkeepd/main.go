// Command memkeepd serves and administers a per-user long-term memory
// store: evaluate and persist proposals under the Policy & Lifecycle Engine,
// retrieve under the governed contract, and inspect or repair the
// underlying SQLite file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
