// Package audio wraps raw PCM returned by speech models in a playable WAV container.
package audio

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"strings"
)

// HeaderSize is the length of the canonical PCM WAV header written by Normalize.
const HeaderSize = 44

var riffMagic = []byte("RIFF")

// Format describes headerless PCM samples.
type Format struct {
	Channels    int
	SampleWidth int // bytes per sample
	SampleRate  int
}

// DefaultFormat is what the hosted TTS models emit: mono, 16-bit, 24 kHz.
var DefaultFormat = Format{Channels: 1, SampleWidth: 2, SampleRate: 24000}

// IsContainer reports whether buf already starts with a RIFF header.
func IsContainer(buf []byte) bool {
	return bytes.HasPrefix(buf, riffMagic)
}

// Normalize returns buf unchanged when it is already a RIFF container, otherwise buf
// prefixed with a 44-byte PCM WAV header describing f. The declared data size is len(buf)
// and no pad byte is appended, so the output is always len(buf)+HeaderSize bytes.
func Normalize(buf []byte, f Format) []byte {
	if IsContainer(buf) {
		return buf
	}
	f = f.withDefaults()
	out := make([]byte, HeaderSize+len(buf))
	writeHeader(out[:HeaderSize], uint32(len(buf)), f)
	copy(out[HeaderSize:], buf)
	return out
}

func writeHeader(h []byte, dataLen uint32, f Format) {
	le := binary.LittleEndian
	blockAlign := f.Channels * f.SampleWidth

	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], 36+dataLen)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], 16) // fmt chunk size
	le.PutUint16(h[20:22], 1)  // PCM
	le.PutUint16(h[22:24], uint16(f.Channels))
	le.PutUint32(h[24:28], uint32(f.SampleRate))
	le.PutUint32(h[28:32], uint32(f.SampleRate*blockAlign))
	le.PutUint16(h[32:34], uint16(blockAlign))
	le.PutUint16(h[34:36], uint16(f.SampleWidth*8))

	copy(h[36:40], "data")
	le.PutUint32(h[40:44], dataLen)
}

func (f Format) withDefaults() Format {
	if f.Channels <= 0 {
		f.Channels = DefaultFormat.Channels
	}
	if f.SampleWidth <= 0 {
		f.SampleWidth = DefaultFormat.SampleWidth
	}
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultFormat.SampleRate
	}
	return f
}

// FormatFromMIME reads sample format hints such as "audio/L16;codec=pcm;rate=24000".
// Missing or unparsable hints keep the fallback's values.
func FormatFromMIME(mimeType string, fallback Format) Format {
	f := fallback
	if mimeType == "" {
		return f
	}
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return f
	}
	switch strings.ToLower(mediaType) {
	case "audio/l16":
		f.SampleWidth = 2
	case "audio/l8":
		f.SampleWidth = 1
	case "audio/l24":
		f.SampleWidth = 3
	}
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		f.SampleRate = v
	}
	if v, err := strconv.Atoi(params["channels"]); err == nil && v > 0 {
		f.Channels = v
	}
	return f
}
