// Command gpspod talks to a GpsPod GPS recording device over USB HID:
// reading device info and status, managing settings, listing and
// exporting recorded tracks, dumping the raw memory region, and replaying
// captured sessions offline.
package main

import (
	"fmt"
	"os"

	"github.com/ivorwanders-go/gpspod/internal/gpserr"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	if e, ok := err.(*gpserr.Error); ok {
		if e.Kind == gpserr.Decode {
			fmt.Fprintf(os.Stderr, "%s: %v (offset 0x%X)\n", e.Kind, e.Err, e.Offset)
			return
		}
		if e.Kind == gpserr.Transport {
			fmt.Fprintf(os.Stderr, "%s: %v\n", e.Kind, e.Err)
			fmt.Fprintln(os.Stderr, "hint: the device can take a couple of seconds to enumerate right after plugging it in")
			return
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", e.Kind, e.Err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
