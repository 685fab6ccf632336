package network

import "errors"

var (
	ErrUnknownStdType      = errors.New("unknown std type")
	ErrNoSuchElement       = errors.New("no such element")
	ErrTapOutOfRange       = errors.New("tap position out of range")
	ErrUnknownNetworkClass = errors.New("unknown network class")
)

// LineType holds per-km cable parameters.
type LineType struct {
	ROhmPerKM float64
	XOhmPerKM float64
	CNFPerKM  float64
	MaxIKA    float64
}

// TrafoType holds transformer nameplate data.
type TrafoType struct {
	SnMVA          float64
	VnHVKV         float64
	VnLVKV         float64
	VkPercent      float64
	VkrPercent     float64
	PfeKW          float64
	I0Percent      float64
	TapSide        string
	TapNeutral     int
	TapMin         int
	TapMax         int
	TapStepPercent float64
}

func (tt TrafoType) apply(t *Transformer, name string) {
	t.StdType = name
	t.SnMVA = tt.SnMVA
	t.VnHVKV = tt.VnHVKV
	t.VnLVKV = tt.VnLVKV
	t.VkPercent = tt.VkPercent
	t.VkrPercent = tt.VkrPercent
	t.PfeKW = tt.PfeKW
	t.I0Percent = tt.I0Percent
	t.TapSide = tt.TapSide
	t.TapNeutral = tt.TapNeutral
	t.TapMin = tt.TapMin
	t.TapMax = tt.TapMax
	t.TapStepPercent = tt.TapStepPercent
}

// LineStdTypes is the cable catalogue.
var LineStdTypes = map[string]LineType{
	"NAYY 4x150 SE":               {ROhmPerKM: 0.208, XOhmPerKM: 0.080, CNFPerKM: 261, MaxIKA: 0.270},
	"NAYY 4x120 SE":               {ROhmPerKM: 0.225, XOhmPerKM: 0.080, CNFPerKM: 264, MaxIKA: 0.242},
	"NAYY 4x50 SE":                {ROhmPerKM: 0.642, XOhmPerKM: 0.083, CNFPerKM: 210, MaxIKA: 0.142},
	"NA2XS2Y 1x95 RM/25 12/20 kV": {ROhmPerKM: 0.313, XOhmPerKM: 0.132, CNFPerKM: 216, MaxIKA: 0.252},
}

// TrafoStdTypes is the distribution transformer catalogue.
var TrafoStdTypes = map[string]TrafoType{
	"0.16 MVA 20/0.4 kV": {
		SnMVA: 0.16, VnHVKV: 20, VnLVKV: 0.4, VkPercent: 4, VkrPercent: 1.2, PfeKW: 0.45, I0Percent: 0.46875,
		TapSide: "hv", TapNeutral: 0, TapMin: -2, TapMax: 2, TapStepPercent: 2.5,
	},
	"0.25 MVA 20/0.4 kV": {
		SnMVA: 0.25, VnHVKV: 20, VnLVKV: 0.4, VkPercent: 6, VkrPercent: 1.44, PfeKW: 0.8, I0Percent: 0.32,
		TapSide: "hv", TapNeutral: 0, TapMin: -2, TapMax: 2, TapStepPercent: 2.5,
	},
	"0.4 MVA 20/0.4 kV": {
		SnMVA: 0.4, VnHVKV: 20, VnLVKV: 0.4, VkPercent: 6, VkrPercent: 1.425, PfeKW: 1.35, I0Percent: 0.3375,
		TapSide: "hv", TapNeutral: 0, TapMin: -2, TapMax: 2, TapStepPercent: 2.5,
	},
	"0.63 MVA 20/0.4 kV": {
		SnMVA: 0.63, VnHVKV: 20, VnLVKV: 0.4, VkPercent: 6, VkrPercent: 1.206, PfeKW: 1.65, I0Percent: 0.2619,
		TapSide: "hv", TapNeutral: 0, TapMin: -2, TapMax: 2, TapStepPercent: 2.5,
	},
}
