// Command imagestudio serves the image studio API and drives it from the
// terminal: one-shot generate and enhance, an interactive studio session,
// and the generation history.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
