package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// loopFlags are shared by generate and workflow.
type loopFlags struct {
	lat, lon, miles float64
	name            string
	smooth          bool
}

func (f *loopFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "start latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "start longitude")
	cmd.Flags().Float64VarP(&f.miles, "miles", "m", 3, "target loop length in miles")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "track name (default CircleRoute_<miles>mi)")
	cmd.Flags().BoolVar(&f.smooth, "smooth", false, "use the smoothed path")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (f *loopFlags) start() domain.Coordinate {
	return domain.Coordinate{Lat: f.lat, Lon: f.lon}
}
