package constant

import "time"

// Control panel timing
const (
	PanelSpinnerInterval = 120 * time.Millisecond
	PanelPulseInterval   = 150 * time.Millisecond

	// PanelPulsePeriod is one full dim-bright-dim cycle of the activity dot
	PanelPulsePeriod = 1500 * time.Millisecond
)

// Log file placement
const (
	LogDir      = "logs"
	LogFileName = "rain-ambience.log"
)
