package main

import (
	"fmt"
	"io"
	"os"

	"media-variants/internal/logging"
	"media-variants/internal/rawproto"
	"media-variants/internal/vipscodec"
)

const (
	exitOK     = 0
	exitDecode = 1
	exitUsage  = 2
)

type decodeFunc func(path string) (*rawproto.Buffer, error)

func main() {
	// stdout is unused by the protocol; everything goes to stderr so the
	// parent can attach it to its error.
	logging.SetOutput(os.Stderr)

	if err := vipscodec.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: libvips: %v\n", err)
		os.Exit(exitDecode)
	}
	code := run(os.Args[1:], vipscodec.DecodeRaw, os.Stderr)
	vipscodec.Shutdown()
	os.Exit(code)
}

// run decodes args[0] and writes the payload and its metadata sidecar to
// args[1]. Nothing is written when decoding fails.
func run(args []string, decode decodeFunc, stderr io.Writer) int {
	if len(args) != 2 {
		printUsage(stderr)
		return exitUsage
	}
	in, out := args[0], args[1]

	if _, err := os.Stat(in); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitDecode
	}

	buf, err := decode(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: decode %s: %v\n", in, err)
		return exitDecode
	}
	if err := rawproto.WriteSidecar(out, buf); err != nil {
		fmt.Fprintf(stderr, "Error: write %s: %v\n", out, err)
		return exitDecode
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Camera RAW decode worker")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: rawworker <input> <output>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Writes the decoded pixels to <output> and their layout to <output>"+rawproto.MetadataSuffix+".")
}
