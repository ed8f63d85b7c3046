// Command fiberstress runs a contended-mutex workload on a fiber group and
// reports throughput and scheduler counters.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
