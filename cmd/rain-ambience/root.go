package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lixenwraith/rain-ambience/config"
)

// app carries state shared by the command tree
type app struct {
	cfgFile     string
	noAutostart bool
	headless    bool
	stats       bool

	v   *viper.Viper
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rain-ambience",
		Short: "Endless rain on a night city, with distant thunder",
		Long: `Plays a seamless rain bed by rotating a pool of rain clips with overlapping
crossfades, and layers a thunderstorm overlay at random intervals.

Keys: space/p play or pause, m mute, s stats, q quit.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
		RunE:              a.runRoot,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/rain-ambience/config.yaml)")
	flags.Bool("debug", false, "write logs to the log directory")
	flags.Bool("mute", false, "start with output muted")
	flags.String("http", "", "serve the status API on this address, e.g. 127.0.0.1:9000")

	root.Flags().BoolVar(&a.noAutostart, "no-autostart", false, "wait for space instead of starting after load")
	root.Flags().BoolVar(&a.headless, "headless", false, "run without the control panel until interrupted")
	root.Flags().BoolVar(&a.stats, "stats", false, "open with the metrics overlay visible")

	root.AddCommand(newAssetsCmd(a), newConfigCmd(a))
	return root
}

// loadConfig merges defaults, file, environment and flags
func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	a.v = config.NewViper()

	flags := cmd.Flags()
	for key, name := range map[string]string{
		"log.debug":   "debug",
		"mixer.muted": "mute",
		"http.listen": "http",
	} {
		if f := flags.Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if a.noAutostart {
		a.v.Set("mixer.auto_start", false)
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) runRoot(cmd *cobra.Command, args []string) error {
	return run(cmd.Context(), a.v, a.cfg, runOptions{
		headless: a.headless,
		stats:    a.stats,
	})
}
