package aetherautil

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// version is set at build time via -ldflags, the same convention the
// teacher uses for inmap.Version.
var version = "dev"

// Cfg holds the root viper instance and the cobra command tree, the same
// shape InMAP's inmaputil.Cfg wraps around its own *viper.Viper.
type Cfg struct {
	*viper.Viper

	Root, versionCmd, runCmd, serveCmd *cobra.Command
}

// option is one configuration key registered as both a cobra flag (so it
// can be set on the command line) and a viper key (so it can also come
// from a config file or an AETHERA_-prefixed environment variable),
// mirroring InMAP's own options table in inmaputil/cmd.go.
type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig builds the AETHERA command tree: version, run (one
// orchestrator invocation), and serve (the long-running HTTP API).
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "aethera",
		Short: "AETHERA environmental impact assessment platform.",
		Long: `aethera runs environmental impact assessments for renewable energy
projects: land cover, biodiversity, receptor proximity, emissions, ML
ensemble scoring, and legal compliance, composed into a single run
manifest. Configuration can be set via a config file (--config), via
AETHERA_-prefixed environment variables, or via command-line flags, in
that order of increasing precedence.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("aethera v%s\n", version)
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one environmental impact assessment.",
		Long: `run executes a single orchestrator invocation against the project and
AOI named by its flags and prints the resulting run_id and status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, cfg)
		},
		DisableAutoGenTag: true,
	}

	cfg.serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the AETHERA HTTP API.",
		Long: `serve starts the HTTP API that accepts run submissions and serves
run status/manifest lookups, backed by the same AnalysisContext the run
command uses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, cfg)
		},
		DisableAutoGenTag: true,
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.runCmd, cfg.serveCmd)

	registerOptions(cfg)
	return cfg
}

// registerOptions declares every configuration key as a flag on the
// flagsets that accept it, binding each to viper so file/env/flag
// precedence is resolved uniformly, per InMAP's own options-table
// convention.
func registerOptions(cfg *Cfg) {
	allCmds := []*pflag.FlagSet{cfg.Root.PersistentFlags()}
	runCmds := []*pflag.FlagSet{cfg.runCmd.Flags(), cfg.serveCmd.Flags()}

	options := []option{
		{name: "config", usage: "path to a YAML/JSON configuration file", flagsets: allCmds, defaultVal: ""},
		{name: "data_root", usage: "root directory the dataset catalog scans", flagsets: runCmds, defaultVal: "./data"},
		{name: "output_root", usage: "root directory runs are written under (local storage backend)", flagsets: runCmds, defaultVal: "./runs"},
		{name: "object_store_url", usage: "go-cloud blob bucket URL; overrides output_root when set", flagsets: runCmds, defaultVal: ""},
		{name: "registry_backend", usage: `project/run registry backend: "file" or "postgres"`, flagsets: runCmds, defaultVal: "file"},
		{name: "registry_dsn", usage: "Postgres connection string when registry_backend=postgres", flagsets: runCmds, defaultVal: ""},
		{name: "tracker_backend", usage: `task tracker backend: "memory" or "redis"`, flagsets: runCmds, defaultVal: "memory"},
		{name: "redis_addr", usage: "Redis address when tracker_backend=redis", flagsets: runCmds, defaultVal: ""},
		{name: "emission_factors_path", usage: "YAML emission factor catalog path", flagsets: runCmds, defaultVal: ""},
		{name: "legal_rule_sets_path", usage: "directory of per-country legal rule set files", flagsets: runCmds, defaultVal: ""},
		{name: "models_dir", usage: "directory of pretrained ensemble weight files", flagsets: runCmds, defaultVal: ""},
		{name: "working_crs", usage: "metric CRS AOIs are reprojected into", flagsets: runCmds, defaultVal: "EPSG:3035"},
		{name: "max_receptor_km", usage: "receptor search radius, in kilometers", flagsets: runCmds, defaultVal: 50.0},

		{name: "project_id", usage: "project identifier the run belongs to", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: ""},
		{name: "task_id", usage: "caller-chosen id the task tracker externalizes this run's progress under; defaults to the run id", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: ""},
		{name: "aoi", usage: "path to the AOI input (GeoJSON, WKT, or shapefile)", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: ""},
		{name: "project_type", usage: "project type recorded on the run config", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: ""},
		{name: "capacity_mw", usage: "project capacity, in megawatts", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: 0.0},
		{name: "country", usage: "ISO 3166-1 alpha-3 project country; inferred from the AOI when unset", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: ""},
		{name: "horizon_years", usage: "project emissions horizon, in years", flagsets: []*pflag.FlagSet{cfg.runCmd.Flags()}, defaultVal: 25},
		{name: "listen_addr", usage: "HTTP listen address for the serve command", flagsets: []*pflag.FlagSet{cfg.serveCmd.Flags()}, defaultVal: "localhost:8080"},
	}

	for _, o := range options {
		for i, set := range o.flagsets {
			if i != 0 {
				set.AddFlag(o.flagsets[0].Lookup(o.name))
				continue
			}
			switch v := o.defaultVal.(type) {
			case string:
				set.String(o.name, v, o.usage)
			case float64:
				set.Float64(o.name, v, o.usage)
			case int:
				set.Int(o.name, v, o.usage)
			default:
				panic(fmt.Errorf("aetherautil: unsupported option default type %T for %q", v, o.name))
			}
			_ = cfg.BindPFlag(o.name, set.Lookup(o.name))
		}
	}
}

// setConfig reads the --config file into viper, if one was given, the
// same role InMAP's own setConfig plays ahead of every subcommand.
func setConfig(cfg *Cfg) error {
	if path := cfg.GetString("config"); path != "" {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("aethera: problem reading configuration file: %w", err)
		}
	}
	return nil
}

// Execute runs the root command, the entry point cmd/aethera/main.go
// calls.
func Execute() {
	cfg := InitializeConfig()
	if err := cfg.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
