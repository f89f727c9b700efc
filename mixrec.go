// SPDX-License-Identifier: EPL-2.0

package mixrec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
	"github.com/ik5/mixrec/loader"
	"github.com/ik5/mixrec/mix"
	"github.com/ik5/mixrec/record"
)

const (
	DefaultChunkFrames = 1024

	mixdownQueue = time.Second
	mixdownFlush = 5 * time.Millisecond
)

var ErrNoTracks = errors.New("no tracks to mix")

// MixdownOptions tunes Mixdown. The zero value is usable.
type MixdownOptions struct {
	// Format is the working and output format. Zero means
	// audio.DefaultFormat.
	Format audio.Format
	// FileType forces the container. Empty picks it from dest.
	FileType record.FileType
	// Volumes sets the gain of individual tracks by locator.
	Volumes map[string]float32
	// MaxDuration stops the bounce early. Zero renders until the longest
	// track ends.
	MaxDuration time.Duration
	// ChunkFrames is the size of each render pass.
	ChunkFrames int

	Loader *loader.Loader
	Opener record.Opener
	Logger *slog.Logger

	// Progress is called after every render pass with the frames rendered
	// so far and the total.
	Progress func(done, total int64)
}

// MixdownResult describes the finished recording.
type MixdownResult struct {
	SessionID     uuid.UUID
	Tracks        int
	Frames        int64
	Duration      time.Duration
	Overruns      uint64
	DroppedFrames uint64
}

// Mixdown loads every locator, plays them together from the start and
// records the mix to dest. It renders as fast as the sink accepts data.
func Mixdown(ctx context.Context, locators []string, dest string, opts MixdownOptions) (MixdownResult, error) {
	if len(locators) == 0 {
		return MixdownResult{}, ErrNoTracks
	}

	format := opts.Format
	if format == (audio.Format{}) {
		format = audio.DefaultFormat()
	}
	if err := format.Validate(); err != nil {
		return MixdownResult{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fileType := opts.FileType
	if fileType == "" {
		ft, err := record.FileTypeFromPath(dest)
		if err != nil {
			return MixdownResult{}, err
		}
		fileType = ft
	}

	queue := int(format.DurationToFrames(mixdownQueue))
	chunk := opts.ChunkFrames
	if chunk <= 0 {
		chunk = DefaultChunkFrames
	}
	chunk = min(chunk, queue)

	ld := opts.Loader
	if ld == nil {
		ld = loader.New(loader.WithLogger(logger))
	}

	tracks, err := ld.LoadAll(ctx, locators, format)
	if err != nil {
		return MixdownResult{}, err
	}

	var total int64
	for _, tr := range tracks {
		if v, ok := opts.Volumes[tr.URL()]; ok {
			tr.SetVolume(v)
		}
		total = max(total, int64(tr.Frames()))
	}
	if opts.MaxDuration > 0 {
		total = min(total, format.DurationToFrames(opts.MaxDuration))
	}

	drv := host.NewManual()
	eng, err := mix.Start(format, false,
		mix.WithDriver(drv),
		mix.WithLogger(logger),
		mix.WithMaxFrames(chunk),
		mix.WithReclaimInterval(0),
	)
	if err != nil {
		return MixdownResult{}, err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Warn("engine stop failed", "error", err)
		}
	}()

	recOpts := []record.Option{
		record.WithLogger(logger),
		record.WithQueueFrames(queue),
		record.WithFlushInterval(mixdownFlush),
	}
	if opts.Opener != nil {
		recOpts = append(recOpts, record.WithOpener(opts.Opener))
	}

	rec, err := record.New(format, recOpts...)
	if err != nil {
		return MixdownResult{}, err
	}
	if err := eng.SetRecorder(rec); err != nil {
		return MixdownResult{}, err
	}
	if err := rec.BeginRecording(dest, fileType); err != nil {
		return MixdownResult{}, err
	}

	for _, tr := range tracks {
		tr.Play()
		if _, err := eng.AddTrack(tr); err != nil {
			_ = rec.FinishRecording()
			return MixdownResult{}, err
		}
	}

	rendered, err := bounce(ctx, drv, rec, tracks, total, chunk, queue, opts.Progress)
	if err != nil {
		_ = rec.FinishRecording()
		return MixdownResult{}, err
	}

	stats := rec.Stats()
	if err := rec.FinishRecording(); err != nil {
		return MixdownResult{}, err
	}

	res := MixdownResult{
		SessionID:     stats.SessionID,
		Tracks:        len(tracks),
		Frames:        rendered,
		Duration:      format.FramesToDuration(rendered),
		Overruns:      stats.Overruns,
		DroppedFrames: stats.DroppedFrames,
	}

	logger.Info("mixdown finished",
		"dest", dest,
		"tracks", res.Tracks,
		"frames", res.Frames,
		"duration", res.Duration,
	)

	return res, nil
}

// bounce pulls the engine until every track has stopped or total frames
// are rendered, waiting for the recorder whenever its queue cannot take
// another chunk.
func bounce(
	ctx context.Context,
	drv *host.Manual,
	rec *record.Recorder,
	tracks []*mix.Track,
	total int64,
	chunk, queue int,
	progress func(done, total int64),
) (int64, error) {
	out := make([]float32, chunk*rec.Format().Channels)

	var done int64
	for done < total && AnyPlaying(tracks) {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		for rec.Queued()+chunk > queue {
			if !rec.Recording() {
				return done, fmt.Errorf("recorder stopped: %w", rec.Err())
			}
			select {
			case <-ctx.Done():
				return done, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}

		n := int(min(int64(chunk), total-done))
		drv.PullInto(out[:n*rec.Format().Channels])
		done += int64(n)

		if !rec.Recording() {
			return done, fmt.Errorf("recorder stopped: %w", rec.Err())
		}
		if progress != nil {
			progress(done, total)
		}
	}

	return done, nil
}

// AnyPlaying reports whether at least one of tracks is still playing.
func AnyPlaying(tracks []*mix.Track) bool {
	for _, tr := range tracks {
		if tr.Playing() {
			return true
		}
	}

	return false
}
