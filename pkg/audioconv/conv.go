// Package audioconv converts between the audio formats at the system's edges.
//
// Inbound, it decodes uploaded audio (WAV, MP3, Ogg/Vorbis) into 16 kHz mono
// float32 samples for the speech recognizer, sniffing the container from the
// leading bytes since uploads carry no reliable filename. Outbound, it frames
// raw PCM16 from a synthesizer into a playable WAV file.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// TargetSampleRate is the sample rate the recognizer expects.
const TargetSampleRate = 16000

// ErrUnsupportedFormat is returned when the payload matches no known container.
var ErrUnsupportedFormat = errors.New("audioconv: unsupported format (supported: wav/mp3/ogg-vorbis)")

// ErrEmptyAudio is returned when the payload is empty or decodes to no samples.
var ErrEmptyAudio = errors.New("audioconv: no audio samples")

// Options bounds decoding work.
type Options struct {
	// MaxSamples caps the decoded sample count; 0 means no cap.
	MaxSamples int
}

// DecodePCM16k decodes an uploaded audio payload to 16 kHz mono float32.
func DecodePCM16k(data []byte, opt Options) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	switch sniff(data) {
	case "wav":
		return decodeWAVTo16k(data, opt)
	case "ogg":
		return decodeOggVorbisTo16k(data, opt)
	case "mp3":
		return decodeMP3To16k(data, opt)
	default:
		// No recognizable magic; MP3 frames may start anywhere, so try that last.
		if s, err := decodeMP3To16k(data, opt); err == nil {
			return s, nil
		}
		return nil, ErrUnsupportedFormat
	}
}

// EncodeWAV frames raw little-endian PCM16 mono samples as a WAV file.
func EncodeWAV(raw []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audioconv: invalid sample rate %d", sampleRate)
	}
	if len(raw)%2 != 0 {
		return nil, errors.New("audioconv: odd PCM16 byte count")
	}

	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}

	var ws memWriteSeeker
	enc := wav.NewEncoder(&ws, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("audioconv: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audioconv: close wav: %w", err)
	}
	return ws.buf, nil
}

func sniff(data []byte) string {
	if len(data) >= 4 {
		switch string(data[:4]) {
		case "RIFF":
			return "wav"
		case "OggS":
			return "ogg"
		}
	}
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return "mp3"
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return "mp3"
	}
	return ""
}

func decodeWAVTo16k(data []byte, opt Options) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("audioconv: invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = ErrEmptyAudio
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch := 1
	sr := 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	if ch > 1 {
		x = downmixInterleaved(x, ch)
	}
	if sr != TargetSampleRate {
		x = resampleLinear(x, sr, TargetSampleRate)
	}
	return capSamples(x, opt), nil
}

func decodeMP3To16k(data []byte, opt Options) ([]float32, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}
	x := int16SliceToFloat32(ints)
	x = downmixInterleaved(x, 2) // mp3 decoder outputs stereo

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	if sr != TargetSampleRate {
		x = resampleLinear(x, sr, TargetSampleRate)
	}
	return capSamples(x, opt), nil
}

func decodeOggVorbisTo16k(data []byte, opt Options) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("audioconv: invalid ogg/vorbis stream")
	}
	x := pcm
	if format.Channels > 1 {
		x = downmixInterleaved(pcm, format.Channels)
	}
	if format.SampleRate != TargetSampleRate {
		x = resampleLinear(x, format.SampleRate, TargetSampleRate)
	}
	return capSamples(x, opt), nil
}

func capSamples(x []float32, opt Options) []float32 {
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		return x[:opt.MaxSamples]
	}
	return x
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
