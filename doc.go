// SPDX-License-Identifier: EPL-2.0

// Package mixrec mixes many audio tracks in real time and records the mix.
//
// The work is split across subpackages:
//
//   - mix: the engine. Tracks are summed into the output inside a render
//     callback that never locks or allocates, while other goroutines add,
//     remove and control tracks.
//   - record: taps the mixed output and writes it to WAV or AIFF from its
//     own goroutine.
//   - loader: decodes WAV, AIFF, MP3 and Ogg Vorbis files into the
//     engine's working format.
//   - host: drivers that invoke the render callback. Manual is pulled by
//     the caller, Clock paces itself in real time and host/device plays
//     through the sound card.
//   - config: YAML and environment configuration.
//
// # Quick Start
//
// Mixdown bounces a set of files into one recording offline:
//
//	res, err := mixrec.Mixdown(ctx, []string{"drums.wav", "bass.mp3"}, "mix.wav", mixrec.MixdownOptions{})
//
// For live use, start an engine on a driver and attach a recorder:
//
//	eng, _ := mix.Start(audio.DefaultFormat(), false, mix.WithDriver(device.New(device.Config{}, nil)))
//	defer eng.Stop()
//
//	rec, _ := record.New(eng.Format())
//	_ = eng.SetRecorder(rec)
//	_ = rec.BeginRecording("take.wav", record.FileTypeWAV)
//
//	tr, _ := loader.New().LoadTrack(ctx, "drums.wav", eng.Format())
//	tr.Play()
//	bus, _ := eng.AddTrack(tr)
//
// # Mixing
//
// The output is the plain sum of every audible track scaled by its gain.
// The sum is not clamped; sinks and the device driver clamp when they
// convert to integer PCM.
package mixrec
