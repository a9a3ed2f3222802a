//go:build !portaudio

package audio

// OpenSpeaker needs the portaudio build tag
func OpenSpeaker() (Output, error) {
	return nil, ErrSpeakerUnavailable
}
