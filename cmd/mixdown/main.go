// SPDX-License-Identifier: EPL-2.0

// mixdown plays several audio files together and records the mix.
//
// Usage:
//
//	mixdown [-config mixrec.yaml] [-o mix.wav] [-volume drums.wav=0.5] [-live] files...
//
// Without -live the files are bounced offline as fast as the disk allows.
// With -live they play through the default sound card while the mix is
// recorded.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ik5/mixrec"
	"github.com/ik5/mixrec/config"
	"github.com/ik5/mixrec/host/device"
	"github.com/ik5/mixrec/loader"
	"github.com/ik5/mixrec/mix"
	"github.com/ik5/mixrec/record"
)

// volumes collects repeated -volume file=gain flags.
type volumes map[string]float32

func (v volumes) String() string {
	parts := make([]string, 0, len(v))
	for k, g := range v {
		parts = append(parts, fmt.Sprintf("%s=%g", k, g))
	}
	return strings.Join(parts, ",")
}

func (v volumes) Set(s string) error {
	name, gain, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want file=gain, got %q", s)
	}
	g, err := strconv.ParseFloat(gain, 32)
	if err != nil {
		return fmt.Errorf("gain for %s: %w", name, err)
	}
	v[name] = float32(g)
	return nil
}

func main() {
	cfgPath := flag.String("config", "", "YAML configuration file")
	out := flag.String("o", "mix.wav", "Output file (.wav or .aiff)")
	live := flag.Bool("live", false, "Play through the sound card while recording")
	maxDur := flag.Duration("duration", 0, "Stop after this long (0 = until the longest file ends)")
	vols := volumes{}
	flag.Var(vols, "volume", "Per-file gain as file=gain, repeatable")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *live {
		err = runLive(ctx, cfg, flag.Args(), *out, vols, *maxDur, logger)
	} else {
		err = runOffline(ctx, cfg, flag.Args(), *out, vols, *maxDur, logger)
	}
	if err != nil {
		logger.Error("mixdown failed", "error", err)
		os.Exit(1)
	}
}

func newBar(total int64, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func runOffline(ctx context.Context, cfg config.Config, files []string, dest string, vols volumes, maxDur time.Duration, logger *slog.Logger) error {
	var bar *progressbar.ProgressBar

	res, err := mixrec.Mixdown(ctx, files, dest, mixrec.MixdownOptions{
		Format:      cfg.Format,
		FileType:    record.FileType(cfg.Recorder.FileType),
		Volumes:     vols,
		MaxDuration: maxDur,
		ChunkFrames: cfg.Engine.MaxFrames,
		Loader:      loader.New(loader.WithLogger(logger), loader.WithConcurrency(cfg.Loader.Concurrency)),
		Logger:      logger,
		Progress: func(done, total int64) {
			if bar == nil {
				bar = newBar(total, "mixing")
			}
			_ = bar.Set64(done)
		},
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d tracks, %v (session %s)\n", dest, res.Tracks, res.Duration, res.SessionID)
	if res.Overruns > 0 {
		fmt.Printf("warning: %d frames dropped in %d overruns\n", res.DroppedFrames, res.Overruns)
	}

	return nil
}

func runLive(ctx context.Context, cfg config.Config, files []string, dest string, vols volumes, maxDur time.Duration, logger *slog.Logger) error {
	fileType := record.FileType(cfg.Recorder.FileType)
	if fileType == "" {
		ft, err := record.FileTypeFromPath(dest)
		if err != nil {
			return err
		}
		fileType = ft
	}

	ld := loader.New(loader.WithLogger(logger), loader.WithConcurrency(cfg.Loader.Concurrency))
	tracks, err := ld.LoadAll(ctx, files, cfg.Format)
	if err != nil {
		return err
	}

	drv := device.New(device.Config{
		PeriodFrames: cfg.Device.PeriodFrames,
		MaxFrames:    cfg.Engine.MaxFrames,
	}, logger)

	opts := append(cfg.EngineOptions(), mix.WithDriver(drv), mix.WithLogger(logger))
	eng, err := mix.Start(cfg.Format, false, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Warn("engine stop failed", "error", err)
		}
	}()

	recOpts := append(cfg.RecorderOptions(), record.WithLogger(logger))
	rec, err := record.New(cfg.Format, recOpts...)
	if err != nil {
		return err
	}
	if err := eng.SetRecorder(rec); err != nil {
		return err
	}
	if err := rec.BeginRecording(dest, fileType); err != nil {
		return err
	}

	var longest int
	for _, tr := range tracks {
		if g, ok := vols[tr.URL()]; ok {
			tr.SetVolume(g)
		}
		longest = max(longest, tr.Frames())

		tr.Play()
		if _, err := eng.AddTrack(tr); err != nil {
			_ = rec.FinishRecording()
			return err
		}
	}

	total := longest
	if maxDur > 0 {
		total = min(total, int(cfg.Format.DurationToFrames(maxDur)))
	}
	bar := newBar(int64(total), "playing")
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
		}

		pos := cfg.Format.DurationToFrames(rec.CurrentTime())
		_ = bar.Set64(min(pos, int64(total)))
		if pos >= int64(total) || !rec.Recording() || !mixrec.AnyPlaying(tracks) {
			break wait
		}
	}
	_ = bar.Finish()

	if err := rec.FinishRecording(); err != nil {
		return err
	}

	stats := rec.Stats()
	fmt.Printf("%s: %d tracks, %v recorded\n", dest, len(tracks), stats.Elapsed)

	return nil
}
