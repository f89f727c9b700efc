// SPDX-License-Identifier: EPL-2.0

// Package loader decodes audio files into buffers ready for the mixer.
//
// Loading runs on its own goroutine and reports through a completion
// handler, so it never touches the render callback. Every buffer is
// converted to the engine's working format here; the mixer itself never
// resamples.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/formats/aiff"
	"github.com/ik5/mixrec/formats/mp3"
	"github.com/ik5/mixrec/formats/vorbis"
	"github.com/ik5/mixrec/formats/wav"
	"github.com/ik5/mixrec/mix"
)

// ErrDecode is wrapped by every load failure.
var ErrDecode = errors.New("decode failed")

const DefaultConcurrency = 4

// Metadata is what the file's tags say about it. Missing fields are empty;
// Title falls back to the file name.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Result is delivered to the completion handler of Load.
type Result struct {
	Locator  string
	Buffer   *audio.Buffer
	Frames   int
	Metadata Metadata
	Err      error
}

type Loader struct {
	registry    *audio.Registry
	logger      *slog.Logger
	concurrency int
}

type Option func(*Loader)

// WithRegistry replaces the default decoder set.
func WithRegistry(r *audio.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithConcurrency bounds how many files LoadAll decodes at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// DefaultRegistry knows WAV, AIFF, MP3 and Ogg Vorbis by extension.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("aifc", aiff.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})

	return r
}

func New(opts ...Option) *Loader {
	l := &Loader{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = DefaultRegistry()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Load decodes locator into target on a new goroutine and calls done with
// the result. locator is a file path or a file:// URL.
func (l *Loader) Load(ctx context.Context, locator string, target audio.Format, done func(Result)) {
	go func() {
		done(l.Decode(ctx, locator, target))
	}()
}

// Decode is the synchronous form of Load.
func (l *Loader) Decode(ctx context.Context, locator string, target audio.Format) Result {
	res := Result{Locator: locator}

	buf, meta, err := l.decode(ctx, locator, target)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %w", ErrDecode, locator, err)
		l.logger.Warn("load failed", "locator", locator, "error", err)
		return res
	}

	res.Buffer = buf
	res.Frames = buf.Frames()
	res.Metadata = meta

	l.logger.Info("track loaded",
		"locator", locator,
		"title", meta.Title,
		"frames", res.Frames,
		"duration", buf.Duration(),
	)

	return res
}

// LoadTrack decodes locator and wraps it in a paused mix.Track.
func (l *Loader) LoadTrack(ctx context.Context, locator string, target audio.Format, opts ...mix.TrackOption) (*mix.Track, error) {
	res := l.Decode(ctx, locator, target)
	if res.Err != nil {
		return nil, res.Err
	}

	base := []mix.TrackOption{mix.WithURL(locator), mix.WithTitle(res.Metadata.Title)}

	return mix.NewTrack(res.Buffer, append(base, opts...)...)
}

// LoadAll loads every locator concurrently. Tracks are returned in the
// order of locators. The first failure cancels the rest.
func (l *Loader) LoadAll(ctx context.Context, locators []string, target audio.Format, opts ...mix.TrackOption) ([]*mix.Track, error) {
	tracks := make([]*mix.Track, len(locators))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, locator := range locators {
		g.Go(func() error {
			tr, err := l.LoadTrack(ctx, locator, target, opts...)
			if err != nil {
				return err
			}
			tracks[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return tracks, nil
}

func (l *Loader) decode(ctx context.Context, locator string, target audio.Format) (*audio.Buffer, Metadata, error) {
	if err := target.Validate(); err != nil {
		return nil, Metadata{}, err
	}

	path, err := resolve(locator)
	if err != nil {
		return nil, Metadata{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer f.Close()

	meta := readMetadata(f, path)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, Metadata{}, err
	}

	src, err := l.open(f, path)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer src.Close()

	if err := ctx.Err(); err != nil {
		return nil, Metadata{}, err
	}

	conv, err := audio.Convert(src, target)
	if err != nil {
		return nil, Metadata{}, err
	}

	buf, err := audio.ReadAll(conv, target, 0)
	if err != nil {
		return nil, Metadata{}, err
	}
	if buf.Frames() == 0 {
		return nil, Metadata{}, errors.New("no audio data")
	}

	return buf, meta, ctx.Err()
}

// open picks a decoder by extension, or by the container's magic bytes when
// the extension is unknown.
func (l *Loader) open(f *os.File, path string) (audio.Source, error) {
	if dec, ok := l.registry.ForPath(path); ok {
		return dec.Decode(f)
	}

	format, err := sniff(f)
	if err != nil {
		return nil, err
	}
	dec, ok := l.registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("unrecognized audio format %q", filepath.Ext(path))
	}
	l.logger.Debug("format detected", "path", path, "format", format)

	return dec.Decode(f)
}

// sniff names the format from the first bytes of rs and rewinds it.
func sniff(rs io.ReadSeeker) (string, error) {
	var head [12]byte
	n, err := io.ReadFull(rs, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	b := head[:n]
	switch {
	case bytes.HasPrefix(b, []byte("RIFF")) && n >= 12 && string(b[8:12]) == "WAVE":
		return "wav", nil
	case bytes.HasPrefix(b, []byte("FORM")) && n >= 12 && (string(b[8:12]) == "AIFF" || string(b[8:12]) == "AIFC"):
		return "aiff", nil
	case bytes.HasPrefix(b, []byte("OggS")):
		return "ogg", nil
	case bytes.HasPrefix(b, []byte("ID3")), n >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return "mp3", nil
	}

	return "", errors.New("unrecognized audio data")
}

func resolve(locator string) (string, error) {
	if !strings.Contains(locator, "://") {
		return locator, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return u.Path, nil
}

func readMetadata(r io.ReadSeeker, path string) Metadata {
	var meta Metadata
	if m, err := tag.ReadFrom(r); err == nil {
		meta = Metadata{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return meta
}
