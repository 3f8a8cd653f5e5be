package assist

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCMFormat describes raw little-endian PCM audio.
type PCMFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultPCMFormat is what the speech model returns: 24 kHz mono 16-bit.
var DefaultPCMFormat = PCMFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

// ParsePCMFormat reads the sample rate and channel count from a MIME type
// such as "audio/L16;codec=pcm;rate=24000". Missing parameters keep the
// defaults.
func ParsePCMFormat(mimeType string) PCMFormat {
	format := DefaultPCMFormat
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return format
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		format.SampleRate = rate
	}
	if channels, err := strconv.Atoi(params["channels"]); err == nil && channels > 0 {
		format.Channels = channels
	}
	return format
}

// EncodeWAV wraps little-endian PCM samples in a RIFF/WAVE container. A
// trailing partial frame is dropped.
func EncodeWAV(pcm []byte, format PCMFormat) ([]byte, error) {
	samples, err := decodePCM(pcm, format)
	if err != nil {
		return nil, err
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, format.SampleRate, format.BitsPerSample, format.Channels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           samples,
		SourceBitDepth: format.BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return out.Bytes(), nil
}

const wavFormatPCM = 1

func decodePCM(pcm []byte, format PCMFormat) ([]int, error) {
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: invalid format %+v", format)
	}
	width := format.BitsPerSample / 8
	switch format.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("encode wav: unsupported bit depth %d", format.BitsPerSample)
	}

	frame := width * format.Channels
	n := len(pcm) / frame * format.Channels
	samples := make([]int, n)
	for i := range samples {
		b := pcm[i*width : (i+1)*width]
		switch width {
		case 1:
			samples[i] = int(b[0])
		case 2:
			samples[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case 3:
			samples[i] = int(int32((uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16)<<8) >> 8)
		case 4:
			samples[i] = int(int32(binary.LittleEndian.Uint32(b)))
		}
	}
	return samples, nil
}

// SilentWAV returns d of silence in the default format.
func SilentWAV(d time.Duration) ([]byte, error) {
	format := DefaultPCMFormat
	samples := int(d.Seconds() * float64(format.SampleRate))
	return EncodeWAV(make([]byte, samples*format.Channels*format.BitsPerSample/8), format)
}

// seekBuffer is an in-memory io.WriteSeeker. The wav encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	b.pos = int(next)
	return next, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.data
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI is the inverse of DataURI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mimeType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// audioWAV turns a speech response part into WAV bytes. Raw PCM is wrapped,
// WAV passes through.
func audioWAV(media Media) ([]byte, error) {
	if hasMIMEPrefix(media.MIMEType, "audio/wav") || hasMIMEPrefix(media.MIMEType, "audio/x-wav") {
		return media.Data, nil
	}
	return EncodeWAV(media.Data, ParsePCMFormat(media.MIMEType))
}

func hasMIMEPrefix(mimeType, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), prefix)
}
