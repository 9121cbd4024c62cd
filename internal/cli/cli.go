package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments of the spectra server. Empty
// values mean "keep what the config file or environment says".
type CLIArgs struct {
	// ConfigPath points at a YAML config file; empty means defaults.
	ConfigPath string

	// ListenAddr overrides server.listen_addr.
	ListenAddr string

	// StoreDriver overrides store.driver (memory|sqlite|postgres).
	StoreDriver string

	// Verbose forces debug logging.
	Verbose bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

var storeDrivers = []string{"memory", "sqlite", "postgres"}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("spectra", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "Path to a YAML config file")
		addr       = fs.String("addr", "", "HTTP listen address, e.g. :8000")
		store      = fs.String("store", "", "Store driver: memory|sqlite|postgres")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	driver := strings.ToLower(strings.TrimSpace(*store))
	if driver != "" && !validDriver(driver) {
		return nil, fmt.Errorf("unknown -store %q (want one of %s)", *store, strings.Join(storeDrivers, ", "))
	}

	return &CLIArgs{
		ConfigPath:  *configPath,
		ListenAddr:  strings.TrimSpace(*addr),
		StoreDriver: driver,
		Verbose:     *verbose,
		RawArgs:     args,
	}, nil
}

func validDriver(d string) bool {
	for _, s := range storeDrivers {
		if s == d {
			return true
		}
	}
	return false
}
