package model

// TimedSegment is one subtitle cue of a video. Its index is its position in the video's segment list.
type TimedSegment struct {
	Start    float64 `json:"start"`    // Start time in seconds
	Duration float64 `json:"duration"` // Duration in seconds
	Text     string  `json:"text"`
}

// End returns the end time in seconds
func (s TimedSegment) End() float64 {
	return s.Start + s.Duration
}

// Contains reports whether t falls inside the segment, both bounds inclusive
func (s TimedSegment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End()
}
