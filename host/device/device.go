// SPDX-License-Identifier: EPL-2.0

// Package device drives the mixer from a sound card through miniaudio.
//
// The driver converts the mixer's float32 output to the device sample
// format, clamping to full scale; this is the only place where mixed sums
// outside [-1, 1] are limited.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
	"github.com/ik5/mixrec/utils"
)

var ErrUnsupportedBitDepth = errors.New("unsupported device bit depth")

// Config selects device parameters not covered by audio.Format.
type Config struct {
	// PeriodFrames is the requested callback size. Zero lets the backend
	// choose.
	PeriodFrames uint32 `yaml:"period_frames" json:"period_frames"`
	// MaxFrames bounds the scratch buffers. Larger callbacks are rendered
	// in several passes.
	MaxFrames int `yaml:"max_frames" json:"max_frames"`
}

// Driver implements host.Driver on the default playback device, or a
// duplex device when input is enabled.
type Driver struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	format audio.Format
	cb     host.Callback
	input  bool
	closed bool

	// Touched only from the device callback.
	out        []float32
	in         []float32
	sampleTime int64

	active   atomic.Bool
	inFlight atomic.Int32
	xruns    atomic.Uint64
}

func New(cfg Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = 4096
	}

	return &Driver{cfg: cfg, logger: logger}
}

func (d *Driver) Open(format audio.Format, inputEnabled bool, cb host.Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return host.ErrClosed
	case d.dev != nil:
		return host.ErrAlreadyOpen
	case cb == nil:
		return host.ErrNilCallback
	}

	sampleFormat, err := malgoFormat(format.BitsPerSample)
	if err != nil {
		return err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		d.logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init context: %w", err)
	}

	deviceType := malgo.Playback
	if inputEnabled {
		deviceType = malgo.Duplex
	}

	devCfg := malgo.DefaultDeviceConfig(deviceType)
	devCfg.SampleRate = uint32(format.SampleRate)
	devCfg.PeriodSizeInFrames = d.cfg.PeriodFrames
	devCfg.Playback.Format = sampleFormat
	devCfg.Playback.Channels = uint32(format.Channels)
	if inputEnabled {
		devCfg.Capture.Format = sampleFormat
		devCfg.Capture.Channels = uint32(format.Channels)
	}

	d.format = format
	d.cb = cb
	d.input = inputEnabled
	d.out = make([]float32, d.cfg.MaxFrames*format.Channels)
	if inputEnabled {
		d.in = make([]float32, d.cfg.MaxFrames*format.Channels)
	}

	dev, err := malgo.InitDevice(ctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init device: %w", err)
	}

	d.ctx = ctx
	d.dev = dev

	d.logger.Info("audio device opened",
		"format", format.String(),
		"duplex", inputEnabled,
		"period_frames", d.cfg.PeriodFrames,
	)

	return nil
}

func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return host.ErrNotOpen
	}

	d.active.Store(true)
	if err := d.dev.Start(); err != nil {
		d.active.Store(false)
		return fmt.Errorf("start device: %w", err)
	}

	return nil
}

// Stop stops the device. miniaudio's stop is synchronous; the active flag
// and in-flight counter additionally cover a callback racing the stop.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return nil
	}

	d.active.Store(false)
	err := d.dev.Stop()
	for d.inFlight.Load() != 0 {
		runtime.Gosched()
	}

	if err != nil {
		return fmt.Errorf("stop device: %w", err)
	}

	return nil
}

func (d *Driver) Close() error {
	if err := d.Stop(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev != nil {
		d.dev.Uninit()
		d.dev = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	d.closed = true

	if n := d.xruns.Load(); n > 0 {
		d.logger.Warn("device callbacks exceeded scratch size", "count", n)
	}

	return nil
}

func (d *Driver) onData(output, input []byte, frameCount uint32) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	ch := d.format.Channels
	bytesPerSample := d.format.BitsPerSample / 8
	frameBytes := ch * bytesPerSample

	if !d.active.Load() {
		clear(output)
		return
	}

	maxFrames := len(d.out) / ch
	remaining := int(frameCount)
	if remaining > maxFrames {
		d.xruns.Add(1)
	}

	offset := 0
	for remaining > 0 {
		frames := min(remaining, maxFrames)
		out := d.out[:frames*ch]

		info := host.RenderInfo{SampleTime: d.sampleTime, Frames: frames}
		if d.input && len(input) >= (offset+frames)*frameBytes {
			in := d.in[:frames*ch]
			decode(in, input[offset*frameBytes:], d.format.BitsPerSample)
			info.Input = in
		}

		d.cb(info, out)
		encode(output[offset*frameBytes:], out, d.format.BitsPerSample)

		d.sampleTime += int64(frames)
		offset += frames
		remaining -= frames
	}
}

func malgoFormat(bits int) (malgo.FormatType, error) {
	switch bits {
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bits)
	}
}

// encode writes samples as little-endian signed PCM of the given depth.
func encode(dst []byte, samples []float32, bits int) {
	switch bits {
	case 16:
		for i, v := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(utils.Float32ToPCM(v, 16))))
		}
	case 24:
		for i, v := range samples {
			s := utils.Float32ToPCM(v, 24)
			dst[i*3] = byte(s)
			dst[i*3+1] = byte(s >> 8)
			dst[i*3+2] = byte(s >> 16)
		}
	case 32:
		for i, v := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(int32(utils.Float32ToPCM(v, 32))))
		}
	}
}

// decode is the inverse of encode.
func decode(dst []float32, src []byte, bits int) {
	switch bits {
	case 16:
		for i := range dst {
			dst[i] = utils.PCMToFloat32(int(int16(binary.LittleEndian.Uint16(src[i*2:]))), 16)
		}
	case 24:
		for i := range dst {
			v := int32(src[i*3]) | int32(src[i*3+1])<<8 | int32(src[i*3+2])<<16
			v = (v << 8) >> 8
			dst[i] = utils.PCMToFloat32(int(v), 24)
		}
	case 32:
		for i := range dst {
			dst[i] = utils.PCMToFloat32(int(int32(binary.LittleEndian.Uint32(src[i*4:]))), 32)
		}
	}
}
