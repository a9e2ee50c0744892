// Package audio implements the audio modality: time spans, audio buffers,
// audio segments and the audio document.
package audio

import (
	"math"

	"github.com/teranos/medkit/errors"
)

// Buffer gives access to an audio signal
type Buffer interface {
	SampleRate() int
	NbSamples() int
	NbChannels() int
	// Read returns the signal as one slice of samples per channel
	Read() ([][]float32, error)
	// Trim returns the buffer restricted to samples [start, end)
	Trim(start, end int) (Buffer, error)
}

// Duration returns the duration of buf in seconds
func Duration(buf Buffer) float64 {
	if buf.SampleRate() == 0 {
		return 0
	}
	return float64(buf.NbSamples()) / float64(buf.SampleRate())
}

// TrimDuration trims buf with boundaries in seconds, rounded to the nearest
// sample.
func TrimDuration(buf Buffer, startTime, endTime float64) (Buffer, error) {
	if endTime > Duration(buf) {
		return nil, errors.NewInvalidRequestError("end time %.3fs is past buffer duration %.3fs", endTime, Duration(buf))
	}
	start := int(math.Round(startTime * float64(buf.SampleRate())))
	end := min(int(math.Round(endTime*float64(buf.SampleRate()))), buf.NbSamples())
	return buf.Trim(start, end)
}

func checkTrim(start, end, nbSamples int) error {
	if start < 0 || end < start || end > nbSamples {
		return errors.NewInvalidRequestError("trim [%d, %d) out of buffer of %d samples", start, end, nbSamples)
	}
	return nil
}

// MemoryBuffer holds its signal in memory
type MemoryBuffer struct {
	signal     [][]float32
	sampleRate int
}

// NewMemoryBuffer wraps signal, one slice per channel. All channels must
// have the same number of samples.
func NewMemoryBuffer(signal [][]float32, sampleRate int) (*MemoryBuffer, error) {
	if sampleRate <= 0 {
		return nil, errors.NewInvalidRequestError("sample rate must be positive, got %d", sampleRate)
	}
	for i := 1; i < len(signal); i++ {
		if len(signal[i]) != len(signal[0]) {
			return nil, errors.NewInvalidRequestError("channel %d has %d samples, channel 0 has %d", i, len(signal[i]), len(signal[0]))
		}
	}
	return &MemoryBuffer{signal: signal, sampleRate: sampleRate}, nil
}

func (b *MemoryBuffer) SampleRate() int { return b.sampleRate }
func (b *MemoryBuffer) NbChannels() int { return len(b.signal) }

func (b *MemoryBuffer) NbSamples() int {
	if len(b.signal) == 0 {
		return 0
	}
	return len(b.signal[0])
}

// Read returns a copy of the signal
func (b *MemoryBuffer) Read() ([][]float32, error) {
	out := make([][]float32, len(b.signal))
	for i, ch := range b.signal {
		out[i] = append([]float32(nil), ch...)
	}
	return out, nil
}

func (b *MemoryBuffer) Trim(start, end int) (Buffer, error) {
	if err := checkTrim(start, end, b.NbSamples()); err != nil {
		return nil, err
	}
	trimmed := make([][]float32, len(b.signal))
	for i, ch := range b.signal {
		trimmed[i] = ch[start:end]
	}
	return &MemoryBuffer{signal: trimmed, sampleRate: b.sampleRate}, nil
}

// PlaceholderBuffer describes a signal that is not available, such as the
// audio of a document loaded without its samples.
type PlaceholderBuffer struct {
	sampleRate int
	nbSamples  int
	nbChannels int
}

// NewPlaceholderBuffer describes a signal without holding it
func NewPlaceholderBuffer(sampleRate, nbSamples, nbChannels int) *PlaceholderBuffer {
	return &PlaceholderBuffer{sampleRate: sampleRate, nbSamples: nbSamples, nbChannels: nbChannels}
}

func (b *PlaceholderBuffer) SampleRate() int { return b.sampleRate }
func (b *PlaceholderBuffer) NbSamples() int  { return b.nbSamples }
func (b *PlaceholderBuffer) NbChannels() int { return b.nbChannels }

func (b *PlaceholderBuffer) Read() ([][]float32, error) {
	return nil, errors.NewNotFoundError("placeholder buffer has no signal")
}

func (b *PlaceholderBuffer) Trim(start, end int) (Buffer, error) {
	if err := checkTrim(start, end, b.nbSamples); err != nil {
		return nil, err
	}
	return NewPlaceholderBuffer(b.sampleRate, end-start, b.nbChannels), nil
}
