// SPDX-License-Identifier: EPL-2.0

// Package record writes the mixer's output to a file while it plays.
//
// The render callback hands each mixed buffer to Recorder.Ingest, which
// copies it into a bounded single-producer single-consumer ring without
// blocking. A goroutine per session drains the ring into a Sink. When the
// ring is full the whole buffer is dropped and counted as an overrun;
// rendering is never held up by disk I/O.
//
//	rec, _ := record.New(format)
//	_ = engine.SetRecorder(rec)
//	_ = rec.BeginRecording("take.wav", record.FileTypeWAV)
//	// ...
//	err := rec.FinishRecording()
//
// A Recorder feeds one engine at a time. SetRecorder claims it through
// Attach, and a second engine is refused with ErrRecorderInUse until the
// first one detaches it.
//
// FinishRecording returns only after every frame accepted before it was
// called has been written and the sink closed.
package record
