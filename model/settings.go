package model

// RepeatMode is the playlist-advance policy.
type RepeatMode string

const (
	RepeatAll     RepeatMode = "all"
	RepeatShuffle RepeatMode = "shuffle"
	RepeatOne     RepeatMode = "one"
)

var repeatCycle = []RepeatMode{RepeatAll, RepeatShuffle, RepeatOne}

// Next returns the mode that follows m in the all → shuffle → one cycle.
// Unknown modes restart the cycle.
func (m RepeatMode) Next() RepeatMode {
	for i, mode := range repeatCycle {
		if mode == m {
			return repeatCycle[(i+1)%len(repeatCycle)]
		}
	}
	return repeatCycle[0]
}

// Language is the UI language stored with the settings.
type Language string

const (
	LanguageZh Language = "zh"
	LanguageEn Language = "en"
)

// SettingsID is the fixed key of the singleton settings record.
const SettingsID = 1

// Settings is the durable user settings record.
type Settings struct {
	ID             int       `json:"id"`
	Language       Language  `json:"language"`
	Volume         float64   `json:"volume"`
	PlaybackRate   float64   `json:"playbackRate"`
	PreservesPitch bool      `json:"preservesPitch"`
	EQGains        []float64 `json:"eqGains"`

	DefaultBackgroundImage string `json:"defaultBackgroundImage,omitempty"`
	DefaultVisualizerMode  string `json:"defaultVisualizerMode,omitempty"`
}
