// Package audio is the umbrella for the audio processing sub-packages:
//
//   - decode: WAV, MP3 and Ogg Vorbis decoding to mono float samples
//   - resampler: sample rate conversion and channel downmix
//   - melspec: mel power spectrograms in decibels
//   - signal: synthetic test signals and WAV encoding
//
// The features package chains them into the classifier input pipeline.
package audio
