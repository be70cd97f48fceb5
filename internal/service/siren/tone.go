package siren

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/oshokin/sos-button/internal/config"
)

// Siren tone parameters.
const (
	sampleRate = beep.SampleRate(44100)
	highTone   = 960.0
	lowTone    = 770.0
	// toneSwitch is how long each of the two tones lasts.
	toneSwitch = 500 * time.Millisecond
	// volume keeps the signal away from clipping.
	volume = 0.8

	// DefaultDuration is the length of the rendered siren loop.
	DefaultDuration = 10 * time.Second
)

// Format is the audio format of the rendered siren.
var Format = beep.Format{
	SampleRate:  sampleRate,
	NumChannels: 2,
	Precision:   2,
}

// Tone returns an endless two-tone siren streamer.
func Tone() beep.Streamer {
	var (
		position  int
		phase     float64
		switchLen = sampleRate.N(toneSwitch)
	)

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			freq := highTone
			if (position/switchLen)%2 == 1 {
				freq = lowTone
			}

			value := volume * math.Sin(phase)
			samples[i][0] = value
			samples[i][1] = value

			phase += 2 * math.Pi * freq / float64(sampleRate)
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}

			position++
		}

		return len(samples), true
	})
}

// Render writes duration of siren as a WAV stream.
func Render(w io.WriteSeeker, duration time.Duration) error {
	if err := wav.Encode(w, beep.Take(sampleRate.N(duration), Tone()), Format); err != nil {
		return fmt.Errorf("encode siren: %w", err)
	}

	return nil
}

// RenderFile writes the siren into path unless the file already exists.
func RenderFile(path string, duration time.Duration) error {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create siren directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create siren file: %w", err)
	}

	if err = Render(file, duration); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return err
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close siren file: %w", err)
	}

	return nil
}
