package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/rain-ambience/audio"
)

func newAssetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "Load every clip and list the rotation with durations",
		Long: `Decodes the configured rain and thunder clips, or synthesizes them when none
are configured, and prints which clip each pool slot plays.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listAssets(cmd)
		},
	}
}

func (a *app) listAssets(cmd *cobra.Command) error {
	ac, err := a.cfg.AudioConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rate := beep.SampleRate(ac.SampleRate)
	loader := audio.NewLoader(rate)
	lib := audio.NewLibrary(ctx, loader, audio.NewNullSink(rate), ac.RainFiles, ac.ThunderFile)

	out := cmd.OutOrStdout()
	source := "synthesized"
	if len(ac.RainFiles) > 0 {
		source = fmt.Sprintf("%d file(s)", len(ac.RainFiles))
	}
	fmt.Fprintf(out, "Rain pool (%d instances, %s):\n", ac.Mixer.RainInstances, source)

	var total time.Duration
	for i := 0; i < ac.Mixer.RainInstances; i++ {
		clip, err := lib.RainClip(i)
		if err != nil {
			return fmt.Errorf("rain slot %d: %w", i, err)
		}
		d := clip.Duration()
		total += d
		fmt.Fprintf(out, "  %-40s  %8s  next starts at %s\n", clip.Name(), fmtDuration(d), fmtDuration(max(d-ac.Mixer.Overlap, ac.Mixer.Fade)))
		clip.Close()
	}

	thunder, err := lib.ThunderClip()
	if err != nil {
		return fmt.Errorf("thunder: %w", err)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Thunderstorm overlay:")
	fmt.Fprintf(out, "  %-40s  %8s  every %s-%s\n", thunder.Name(), fmtDuration(thunder.Duration()),
		fmtDuration(ac.Mixer.ThunderIntervalMin), fmtDuration(ac.Mixer.ThunderIntervalMin+ac.Mixer.ThunderIntervalSpread))
	thunder.Close()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%d buffer(s) decoded, one rotation lasts about %s\n", loader.Cached(), fmtDuration(total-time.Duration(ac.Mixer.RainInstances)*ac.Mixer.Overlap))
	return nil
}

func fmtDuration(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}
