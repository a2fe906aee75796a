package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"songwarehouse/internal/config"
	"songwarehouse/internal/logging"
)

var (
	// Version of this software, set with -ldflags at build time.
	Version string
	// BuildTime of this software, set with -ldflags at build time.
	BuildTime string
)

func setupVersionBuild() {
	if Version == "" {
		Version = "v0.0.0"
	}
	if BuildTime == "" {
		BuildTime = "not recorded"
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	logMode    string
	logLevel   string

	log *zap.Logger
}

// pipeline loads the pipeline file named by --config.
func (g *globals) pipeline() (config.Pipeline, error) {
	return config.Load(g.configPath)
}

var subcommandFns = map[string]func(g *globals, stdout, stderr io.Writer) *cobra.Command{}

// newRootCommand creates the top level command with every registered
// subcommand attached.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	setupVersionBuild()
	g := &globals{}
	rc := &cobra.Command{
		Use:   "etl",
		Short: "etl - songplays star-schema warehouse builder",
		Long: `Reads the song catalog and the user activity logs, derives the
songs, artists, users, time and songplays tables and publishes them as
Parquet, optionally mirroring them into a SQL database.

Version: ` + Version + `
Build Time: ` + BuildTime + "\n",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(g.envFile); err != nil {
				return err
			}
			if err := setAllConfig(viper.New(), cmd.Flags(), config.EnvPrefix); err != nil {
				return err
			}
			log, err := logging.New(g.logMode, g.logLevel)
			if err != nil {
				return err
			}
			g.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.log != nil {
				_ = g.log.Sync()
			}
		},
	}
	pf := rc.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "pipeline file (json, yaml or toml)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file exported to the environment before anything else is read")
	pf.StringVar(&g.logMode, "log-mode", "dev", "log encoder: dev or prod")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	names := make([]string, 0, len(subcommandFns))
	for name := range subcommandFns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc.AddCommand(subcommandFns[name](g, stdout, stderr))
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// loadEnvFile exports path into the environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// setAllConfig resolves every flag in flags from, in priority order, the
// command line, the environment and the flag default. Environment variables
// are the upper-cased flag names with dashes replaced by underscores,
// prefixed with envPrefix and an underscore (SONGPLAYS_LOG_LEVEL).
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return flagErr
}
