// Package routeconfig defines the router's configuration surface (§6):
// every recognized option, defaults the way the teacher's
// api.ServerConfig/DefaultConfig pair provides them, and viper/cobra
// binding in the style of flowlogs-pipeline's cmd/flowlogs-pipeline
// (file + environment + flag layering).
package routeconfig

// Config holds every option RouterLoop, PathSearch, and the ECO core
// recognize (§6 "Configuration (recognized options)").
type Config struct {
	MaxIterations          int     `mapstructure:"max_iterations"`
	InitialPresentFactor   float64 `mapstructure:"initial_present_factor"`
	PresentMultiplier      float64 `mapstructure:"present_multiplier"`
	HistoricalFactor       float64 `mapstructure:"historical_factor"`
	WLWeight               float64 `mapstructure:"wl_weight"`
	TimingWeight           float64 `mapstructure:"timing_weight"`
	CriticalityExponent    float64 `mapstructure:"criticality_exponent"`
	MinRerouteCriticality  float64 `mapstructure:"min_reroute_criticality"`
	ReroutePercentage      float64 `mapstructure:"reroute_percentage"`
	ShareExponent          float64 `mapstructure:"share_exponent"`
	BoundingBoxExtension   float64 `mapstructure:"bounding_box_extension"`
	EnlargeBBoxH           float64 `mapstructure:"enlarge_bbox_h"`
	EnlargeBBoxV           float64 `mapstructure:"enlarge_bbox_v"`
	UseBoundingBox         bool    `mapstructure:"use_bounding_box"`
	MaskCrossRCLK          bool    `mapstructure:"mask_cross_rclk"`
	UseUTurnNodes          bool    `mapstructure:"use_u_turn_nodes"`
	TimingDriven           bool    `mapstructure:"timing_driven"`
	SymmetricClkRouting    bool    `mapstructure:"symmetric_clk_routing"`
	SoftPreserve           bool    `mapstructure:"soft_preserve"`
	WarnIfCellInstPrefix   string  `mapstructure:"warn_if_cell_inst_starts_with"`
}

// Default returns the option values called out as defaults in §6
// (max_iterations=100, initial_present_factor=0.5, present_multiplier=2.0,
// historical_factor=1.0), with the remaining options set to the
// conservative choice a first run should make.
func Default() Config {
	return Config{
		MaxIterations:         100,
		InitialPresentFactor:  0.5,
		PresentMultiplier:     2.0,
		HistoricalFactor:      1.0,
		WLWeight:              0.5,
		TimingWeight:          0.5,
		CriticalityExponent:   1.0,
		MinRerouteCriticality: 0.85,
		ReroutePercentage:     1.0,
		ShareExponent:         1.0,
		BoundingBoxExtension:  3,
		EnlargeBBoxH:          1,
		EnlargeBBoxV:          1,
		UseBoundingBox:        true,
		MaskCrossRCLK:         true,
		UseUTurnNodes:         false,
		TimingDriven:          false,
		SymmetricClkRouting:   false,
		SoftPreserve:          true,
		WarnIfCellInstPrefix:  "",
	}
}
