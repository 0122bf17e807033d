package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/mahoundo/internal/config"
)

var (
	rootCmd = &cobra.Command{
		Use:               "mahoundo",
		Short:             "An undo log scratch-file demo and microbenchmark",
		Long:              "mahoundo exercises a per-session undo log that spills to a scratch file under memory pressure.",
		PersistentPreRunE: mahoundoPreRun,
		PersistentPostRun: mahoundoPostRun,
	}

	logFile   = "mahoundo.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "mahoundo.hcl"
	noConfig   = false

	cfgVars = map[string]*pflag.Flag{}
	hclVars = map[string]interface{}{}

	cfg      = config.New()
	settings = config.RegisterUndoParams(cfg)
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := rootCmd.PersistentFlags()

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")
	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load a config file")

	fs.IntVar(&settings.MaxMemoryUndo, "max-memory-undo", settings.MaxMemoryUndo,
		"number of resident records allowed before the undo log spills to disk")
	cfgVars["max-memory-undo"] = fs.Lookup("max-memory-undo")

	fs.BoolVar(&settings.Persistent, "persistent", settings.Persistent,
		"whether the undo log may spill to a scratch file at all")
	cfgVars["persistent"] = fs.Lookup("persistent")

	fs.IntVar(&settings.DefaultPageSize, "default-page-size", settings.DefaultPageSize,
		"size of the codec's scratch page buffer")
	cfgVars["default-page-size"] = fs.Lookup("default-page-size")

	fs.StringVar(&settings.ScratchDir, "scratch-dir", settings.ScratchDir,
		"`directory` the scratch-file allocator creates temp files in")
	cfgVars["scratch-dir"] = fs.Lookup("scratch-dir")
}

// Execute runs the mahoundo command tree; see main.go.
func Execute() error {
	return rootCmd.Execute()
}

func mahoundoPreRun(cmd *cobra.Command, args []string) error {
	used := map[string]struct{}{}
	cmd.Flags().Visit(func(flg *pflag.Flag) {
		used[flg.Name] = struct{}{}
	})

	if configFile != "" && !noConfig {
		if err := loadHCLConfig(used); err != nil {
			return fmt.Errorf("mahoundo: %s", err)
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("mahoundo: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("mahoundo: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("mahoundo starting")
	return nil
}

func mahoundoPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("mahoundo done")
	if logWriter != nil {
		logWriter.Close()
	}
}

// loadHCLConfig decodes configFile as HCL and applies any setting whose
// name matches a registered flag, skipping flags already set on the
// command line so the command line always wins over the config file.
func loadHCLConfig(used map[string]struct{}) error {
	b, err := ioutil.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := hcl.Decode(&hclVars, string(b)); err != nil {
		return err
	}

	for name, val := range hclVars {
		flg, ok := cfgVars[name]
		if !ok || flg == nil {
			return fmt.Errorf("%s is not a config variable", name)
		}
		if _, ok := used[flg.Name]; ok {
			continue
		}
		if err := flg.Value.Set(fmt.Sprintf("%v", val)); err != nil {
			return fmt.Errorf("%s: %s", name, err)
		}
	}
	return nil
}
