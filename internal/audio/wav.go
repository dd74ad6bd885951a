package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	riffHeaderSize = 44
	pcmFormat      = 1
	bitsPerSample  = 16
)

// EncodeWAV serializes a buffer as a 16-bit PCM WAV payload. Samples are
// clamped to [-1, 1] before conversion.
func EncodeWAV(buf *Buffer) []byte {
	dataSize := len(buf.Samples) * 2
	byteRate := buf.SampleRate * buf.Channels * bitsPerSample / 8
	blockAlign := buf.Channels * bitsPerSample / 8

	out := bytes.NewBuffer(make([]byte, 0, riffHeaderSize+dataSize))

	out.WriteString("RIFF")
	binary.Write(out, binary.LittleEndian, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	binary.Write(out, binary.LittleEndian, uint32(16))
	binary.Write(out, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(out, binary.LittleEndian, uint16(buf.Channels))
	binary.Write(out, binary.LittleEndian, uint32(buf.SampleRate))
	binary.Write(out, binary.LittleEndian, uint32(byteRate))
	binary.Write(out, binary.LittleEndian, uint16(blockAlign))
	binary.Write(out, binary.LittleEndian, uint16(bitsPerSample))

	out.WriteString("data")
	binary.Write(out, binary.LittleEndian, uint32(dataSize))

	for _, s := range buf.Samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.Write(out, binary.LittleEndian, int16(s*32767))
	}

	return out.Bytes()
}

// DecodeWAV parses a 16-bit PCM WAV payload into a buffer.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < riffHeaderSize {
		return nil, fmt.Errorf("wav: payload too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE payload")
	}

	// Walk chunks; fmt and data may be preceded by others (e.g. LIST).
	var (
		channels   int
		sampleRate int
		bits       int
		pcm        []byte
	)
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("wav: malformed fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(data[body:]))
			if format != pcmFormat {
				return nil, fmt.Errorf("wav: unsupported format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if channels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("wav: missing fmt chunk")
	}
	if bits != bitsPerSample {
		return nil, fmt.Errorf("wav: unsupported bit depth %d (want %d)", bits, bitsPerSample)
	}
	if pcm == nil {
		return nil, fmt.Errorf("wav: missing data chunk")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
