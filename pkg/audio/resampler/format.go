package resampler

// Format describes a PCM layout as reported by a decoder.
type Format struct {
	// SampleRate is the sample rate in Hz (e.g., 44100, 48000).
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Mono reports whether the format has a single channel.
func (f Format) Mono() bool {
	return f.Channels <= 1
}

// Frames returns the number of frames held by n interleaved samples.
func (f Format) Frames(n int) int {
	if f.Channels <= 1 {
		return n
	}
	return n / f.Channels
}
