package config

import (
	"flag"
	"os"
	"time"

	"github.com/passvault-app/passvault/internal/flagx"
	"github.com/passvault-app/passvault/internal/timex"
)

// LoadFromArgs builds the runtime config the usual way: defaults, then the
// JSON document (path from -c/-config or the default location), then
// command-line overrides.
func LoadFromArgs() (*Config, bool, error) {
	cfg, found, err := Load(flagx.JsonConfigFlags())
	if err != nil {
		return nil, false, err
	}
	parseFlags(cfg)
	return cfg, found, nil
}

// parseFlags overlays selected fields from command-line flags:
//
//	-f string   path to the local vault file
//	-i int      status check interval in seconds
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-f", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Local.Path, "f", cfg.Local.Path, "path to the local vault file")
	interval := fs.Int("i", int(cfg.StatusCheckInterval.Seconds()), "status check interval (in seconds)")

	_ = fs.Parse(args)

	cfg.StatusCheckInterval = timex.Duration{Duration: time.Duration(*interval) * time.Second}
}
