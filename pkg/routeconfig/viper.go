package routeconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment-variable prefix routerctl binds flags
// under, mirroring flowlogs-pipeline's cmd/flowlogs-pipeline envPrefix.
const EnvPrefix = "FPGAROUTE"

// BindFlags registers Default()'s fields as persistent flags on cmd and
// layers a viper instance (config file, then FPGAROUTE_* environment,
// then flag) on top, the same three-tier resolution
// flowlogs-pipeline's bindFlags/initConfig pair implements.
func BindFlags(cmd *cobra.Command, v *viper.Viper) *Config {
	cfg := Default()

	flags := cmd.PersistentFlags()
	flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "loop cap")
	flags.Float64Var(&cfg.InitialPresentFactor, "initial-present-factor", cfg.InitialPresentFactor, "starting present-congestion factor")
	flags.Float64Var(&cfg.PresentMultiplier, "present-multiplier", cfg.PresentMultiplier, "geometric growth per iteration")
	flags.Float64Var(&cfg.HistoricalFactor, "historical-factor", cfg.HistoricalFactor, "per-iteration bump on overuse")
	flags.Float64Var(&cfg.WLWeight, "wl-weight", cfg.WLWeight, "wirelength weight in total cost")
	flags.Float64Var(&cfg.TimingWeight, "timing-weight", cfg.TimingWeight, "timing weight in total cost")
	flags.Float64Var(&cfg.CriticalityExponent, "criticality-exponent", cfg.CriticalityExponent, "exponent applied to normalised slack")
	flags.Float64Var(&cfg.MinRerouteCriticality, "min-reroute-criticality", cfg.MinRerouteCriticality, "floor for re-routing critical connections")
	flags.Float64Var(&cfg.ReroutePercentage, "reroute-percentage", cfg.ReroutePercentage, "max fraction of critical connections to rip up")
	flags.Float64Var(&cfg.ShareExponent, "share-exponent", cfg.ShareExponent, "exponent controlling fan-out sharing")
	flags.Float64Var(&cfg.BoundingBoxExtension, "bounding-box-extension", cfg.BoundingBoxExtension, "INT-tile margin around initial bbox")
	flags.Float64Var(&cfg.EnlargeBBoxH, "enlarge-bbox-h", cfg.EnlargeBBoxH, "per-iteration horizontal growth on congestion")
	flags.Float64Var(&cfg.EnlargeBBoxV, "enlarge-bbox-v", cfg.EnlargeBBoxV, "per-iteration vertical growth on congestion")
	flags.BoolVar(&cfg.UseBoundingBox, "use-bounding-box", cfg.UseBoundingBox, "gate path search by bbox")
	flags.BoolVar(&cfg.MaskCrossRCLK, "mask-cross-rclk", cfg.MaskCrossRCLK, "filter U-turn / RCLK nodes via 10000ps sentinel")
	flags.BoolVar(&cfg.UseUTurnNodes, "use-u-turn-nodes", cfg.UseUTurnNodes, "enable boundary U-turn rescue in delay array")
	flags.BoolVar(&cfg.TimingDriven, "timing-driven", cfg.TimingDriven, "enable timing-aware cost")
	flags.BoolVar(&cfg.SymmetricClkRouting, "symmetric-clk-routing", cfg.SymmetricClkRouting, "alternate clock router")
	flags.BoolVar(&cfg.SoftPreserve, "soft-preserve", cfg.SoftPreserve, "allow rip-up of preserved nets on failure")
	flags.StringVar(&cfg.WarnIfCellInstPrefix, "warn-if-cell-inst-starts-with", cfg.WarnIfCellInstPrefix, "ECO allow-prefix for shared-SPI conflicts")

	cobra.OnInitialize(func() {
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
		_ = v.ReadInConfig()
		bindFlagsToViper(flags, v)
	})

	return &cfg
}

// bindFlagsToViper applies a viper value to any flag the user did not set
// explicitly, mirroring flowlogs-pipeline's bindFlags helper.
func bindFlagsToViper(flags *pflag.FlagSet, v *viper.Viper) {
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := fmt.Sprintf("%s_%s", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
		_ = v.BindEnv(f.Name, envVar)
		if !f.Changed && v.IsSet(f.Name) {
			_ = flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
