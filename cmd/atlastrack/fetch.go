package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlastrack/atlastrack/internal/compute"
	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/scraper"
	"github.com/atlastrack/atlastrack/pkg/types"
)

var fetchPrevious float64

var fetchCmd = &cobra.Command{
	Use:       "fetch [primary|secondary|all]",
	Short:     "Fetch the sources once and print the readings as JSON",
	Long:      "Fetch one or both sources once, print the raw readings and, for \"all\", the merged result with its anomaly classification. The cache is not involved.",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"primary", "secondary", "all"},
	RunE:      runFetch,
}

func init() {
	fetchCmd.Flags().Float64Var(&fetchPrevious, "previous", -1, "previous magnitude to classify the merged value against (negative: none)")
	rootCmd.AddCommand(fetchCmd)
}

// fetchOutput is the JSON printed by the fetch command.
type fetchOutput struct {
	Primary   *types.SourceReading `json:"primary,omitempty"`
	Secondary *types.SourceReading `json:"secondary,omitempty"`
	Merged    *mergedOutput        `json:"merged,omitempty"`
}

type mergedOutput struct {
	LatestMag    *float64        `json:"latestMag"`
	Source       types.Source    `json:"source"`
	ObservedMag  *float64        `json:"observedMag"`
	PredictedMag *float64        `json:"predictedMag"`
	DistanceKm   *float64        `json:"distanceKm"`
	PreviousMag  *float64        `json:"previousMag"`
	MagStatus    types.MagStatus `json:"magStatus"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	which := "all"
	if len(args) == 1 {
		which = args[0]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(os.Stderr, cfg.Logging)

	ctx := cmd.Context()
	var out fetchOutput

	if which == "primary" || which == "all" {
		out.Primary = scraper.NewPrimary(cfg.Tracker.Primary).Fetch(ctx)
	}
	if which == "secondary" || which == "all" {
		sec, err := scraper.NewSecondary(cfg.Tracker.Secondary)
		if err != nil {
			return err
		}
		out.Secondary = sec.Fetch(ctx)
	}

	if which == "all" {
		m := compute.Merge(out.Primary, out.Secondary)
		var d compute.Detector
		if fetchPrevious >= 0 {
			d.Observe(types.F(fetchPrevious))
		}
		status, prev := d.Observe(m.LatestMag)
		out.Merged = &mergedOutput{
			LatestMag:    m.LatestMag,
			Source:       m.Source,
			ObservedMag:  m.ObservedMag,
			PredictedMag: m.PredictedMag,
			DistanceKm:   m.DistanceKm,
			PreviousMag:  prev,
			MagStatus:    status,
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
