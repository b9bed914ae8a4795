package recognizer

// Cue identifies an audible feedback tone. The start cue is pitched
// higher than the stop cue so users can tell the microphone state apart
// without looking.
type Cue string

const (
	CueStart Cue = "start"
	CueStop  Cue = "stop"
)

// CuePlayer plays short advisory tones. Implementations must not
// block; a failed cue is never an error.
type CuePlayer interface {
	Play(c Cue)
}

// NopCue discards cues.
type NopCue struct{}

func (NopCue) Play(Cue) {}
