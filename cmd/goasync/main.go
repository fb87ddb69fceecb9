// Command goasync runs synthetic workloads on a goasync worker thread pool.
package main

import (
	"fmt"
	"os"

	"github.com/vnykmshr/goasync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "goasync:", err)
		os.Exit(1)
	}
}
