package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/rite/loader"
	"github.com/chazu/rite/manifest"
)

var log = commonlog.GetLogger("rite")

// rootOptions holds global flags and the configuration they select.
type rootOptions struct {
	Verbose    bool
	ConfigPath string

	config *manifest.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "rite",
		Short:         "Inspect and load RITE0004 bytecode images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to rite.toml (default: search upward from the working directory)")

	cmd.AddCommand(newInspectCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newDumpCommand(opts))
	cmd.AddCommand(newBuildCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))

	return cmd
}

func (o *rootOptions) setup() error {
	var (
		cfg *manifest.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = manifest.LoadFile(o.ConfigPath)
	} else {
		cfg, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	o.config = cfg

	verbosity := cfg.Log.Verbosity
	if o.Verbose {
		verbosity = max(verbosity, 2)
	}
	commonlog.Configure(verbosity, cfg.LogFile())
	if cfg.Dir != "" {
		log.Debugf("using %s in %s", manifest.FileName, cfg.Dir)
	}
	return nil
}

// parseFile reads and parses one image with the configured options.
func (o *rootOptions) parseFile(path string) ([]byte, *loader.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	img, err := o.parse(data)
	if err != nil {
		return data, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, img, nil
}

func (o *rootOptions) parse(data []byte) (*loader.Image, error) {
	opts, budget := o.config.LoaderOptions()
	img, err := loader.ParseImage(data, opts...)
	if budget != nil {
		log.Debugf("budget: %d of %d bytes in use", budget.Used(), budget.Limit())
	}
	return img, err
}
