//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "hioload-rtc: only linux is supported")
	os.Exit(1)
}
