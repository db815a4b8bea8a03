package engine

import "fmt"

// ProsodyParams are the user-controllable prosody scalars for one synthesis
// request. Zero pause values add no edge silence.
type ProsodyParams struct {
	SpeedScale           float32 `json:"speed_scale"`
	PitchScale           float32 `json:"pitch_scale"`
	IntonationScale      float32 `json:"intonation_scale"`
	VolumeScale          float32 `json:"volume_scale"`
	PrePauseSeconds      float32 `json:"pre_pause_seconds"`
	PostPauseSeconds     float32 `json:"post_pause_seconds"`
	InterrogativeUpspeak bool    `json:"interrogative_upspeak"`
}

// DefaultParams returns neutral prosody: unitary speed/volume, no pitch
// shift, unscaled intonation, no edge silence.
func DefaultParams() ProsodyParams {
	return ProsodyParams{
		SpeedScale:           1,
		PitchScale:           0,
		IntonationScale:      1,
		VolumeScale:          1,
		PrePauseSeconds:      0,
		PostPauseSeconds:     0,
		InterrogativeUpspeak: true,
	}
}

func (p ProsodyParams) Validate() error {
	if !(p.SpeedScale > 0) {
		return fmt.Errorf("speed scale %v must be > 0", p.SpeedScale)
	}
	if !(p.IntonationScale >= 0) {
		return fmt.Errorf("intonation scale %v must be >= 0", p.IntonationScale)
	}
	if !(p.VolumeScale >= 0) {
		return fmt.Errorf("volume scale %v must be >= 0", p.VolumeScale)
	}
	if !(p.PrePauseSeconds >= 0) {
		return fmt.Errorf("pre pause %v must be >= 0", p.PrePauseSeconds)
	}
	if !(p.PostPauseSeconds >= 0) {
		return fmt.Errorf("post pause %v must be >= 0", p.PostPauseSeconds)
	}
	return nil
}
