// stacklog CLI - emits the logging probes a stacklog.toml configures and
// prints their instruction listings
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/stacklog/manifest"
	"github.com/chazu/stacklog/pkg/bytecode"
	"github.com/chazu/stacklog/pkg/instrument"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	debug := flag.Bool("debug", false, "Log every emitted probe")
	dir := flag.String("dir", ".", "Directory to search upward from for stacklog.toml")
	verify := flag.Bool("verify", false, "Check each probe's stack discipline with the simulator")
	output := flag.String("o", "", "Write listings as CBOR to this file (overrides [output] listing)")
	quiet := flag.Bool("q", false, "Do not print disassembly")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stacklog [options]\n\n")
		fmt.Fprintf(os.Stderr, "Loads stacklog.toml, resolves the logging sink and emits every configured probe.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stacklog                     # Print probe listings\n")
		fmt.Fprintf(os.Stderr, "  stacklog -verify -q          # Only check stack discipline\n")
		fmt.Fprintf(os.Stderr, "  stacklog -o probes.cbor      # Also write listings as CBOR\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fatal(err)
	}
	if m == nil {
		fatal(fmt.Errorf("no %s found in %s or its parents", manifest.FileName, *dir))
	}
	if err := m.Validate(); err != nil {
		fatal(err)
	}
	if *verbose {
		fmt.Printf("Loaded %s/%s (%d probes)\n", m.Dir, manifest.FileName, len(m.Probes))
	}

	if err := instrument.Init(m.RegistryConfig(), m.Surface()); err != nil {
		fatal(err)
	}
	reg, err := instrument.Default()
	if err != nil {
		fatal(err)
	}

	listings, err := emitProbes(instrument.NewEmitter(reg), m, *verify)
	if err != nil {
		fatal(err)
	}

	if !*quiet {
		for _, l := range listings {
			fmt.Print(l.Disassemble())
		}
	}

	path := *output
	if path == "" {
		path = m.ListingPath()
	}
	if path != "" {
		if err := writeListings(path, listings); err != nil {
			fatal(err)
		}
		if *verbose {
			fmt.Printf("Wrote %d listings to %s\n", len(listings), path)
		}
	}
}

func writeListings(path string, listings []*bytecode.Listing) error {
	data, err := bytecode.MarshalListings(listings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
