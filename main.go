// main is the entry point of the examlens CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/examlens/cmd"
	"github.com/huangsam/examlens/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseStores()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
