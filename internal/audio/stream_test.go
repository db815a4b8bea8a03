package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/example/go-voxcore/internal/testutil"
)

// ---------------------------------------------------------------------------
// streaming header
// ---------------------------------------------------------------------------

func TestWriteWAVHeaderStreaming(t *testing.T) {
	var buf bytes.Buffer

	n, err := WriteWAVHeaderStreaming(&buf)
	if err != nil {
		t.Fatalf("WriteWAVHeaderStreaming error: %v", err)
	}
	if n != 44 {
		t.Fatalf("wrote %d bytes; want 44", n)
	}

	hdr := buf.Bytes()
	for _, m := range []struct {
		off  int
		want string
	}{
		{0, "RIFF"},
		{8, "WAVE"},
		{12, "fmt "},
		{36, "data"},
	} {
		if got := string(hdr[m.off : m.off+4]); got != m.want {
			t.Errorf("marker at %d = %q; want %q", m.off, got, m.want)
		}
	}

	if riffSize := binary.LittleEndian.Uint32(hdr[4:8]); riffSize != 0xFFFFFFFF {
		t.Errorf("RIFF size = 0x%08X; want 0xFFFFFFFF", riffSize)
	}
	if dataSize := binary.LittleEndian.Uint32(hdr[40:44]); dataSize != 0xFFFFFFFF {
		t.Errorf("data size = 0x%08X; want 0xFFFFFFFF", dataSize)
	}

	if channels := binary.LittleEndian.Uint16(hdr[22:24]); channels != 1 {
		t.Errorf("channels = %d; want 1", channels)
	}
	if rate := binary.LittleEndian.Uint32(hdr[24:28]); rate != SampleRate {
		t.Errorf("sample rate = %d; want %d", rate, SampleRate)
	}
	if bits := binary.LittleEndian.Uint16(hdr[34:36]); bits != BitDepth {
		t.Errorf("bits per sample = %d; want %d", bits, BitDepth)
	}
}

// ---------------------------------------------------------------------------
// PCM16 sample writer
// ---------------------------------------------------------------------------

func TestWritePCM16Samples(t *testing.T) {
	samples := []float32{0.0, 1.0, -1.0, 0.5, -0.5}
	var buf bytes.Buffer

	n, err := WritePCM16Samples(&buf, samples)
	if err != nil {
		t.Fatalf("WritePCM16Samples error: %v", err)
	}
	if n != len(samples)*2 {
		t.Fatalf("wrote %d bytes; want %d", n, len(samples)*2)
	}

	data := buf.Bytes()
	for i, want := range []int16{0, 32767, -32767, 16383, -16383} {
		got := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		if diff := got - want; diff > 1 || diff < -1 {
			t.Errorf("sample[%d] = %d; want ~%d", i, got, want)
		}
	}
}

func TestWritePCM16Samples_Clamping(t *testing.T) {
	var buf bytes.Buffer

	if _, err := WritePCM16Samples(&buf, []float32{2.0, -3.0}); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	if got := int16(binary.LittleEndian.Uint16(data[0:2])); got != 32767 {
		t.Errorf("over-range sample = %d; want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[2:4])); got != -32767 {
		t.Errorf("under-range sample = %d; want -32767", got)
	}
}

// ---------------------------------------------------------------------------
// StreamWAV
// ---------------------------------------------------------------------------

func TestStreamWAV(t *testing.T) {
	b := sineBuffer(480)
	var buf bytes.Buffer

	n, err := StreamWAV(&buf, b)
	if err != nil {
		t.Fatalf("StreamWAV error: %v", err)
	}
	if want := 44 + len(b.Samples)*2; n != want {
		t.Errorf("wrote %d bytes; want %d", n, want)
	}

	testutil.AssertValidWAV(t, buf.Bytes())
}

func TestStreamWAV_InvalidFormat(t *testing.T) {
	tests := []struct {
		name string
		b    Buffer
	}{
		{"wrong sample rate", Buffer{Samples: []float32{0}, SampleRate: 16000, Channels: 1}},
		{"stereo", Buffer{Samples: []float32{0}, SampleRate: SampleRate, Channels: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := StreamWAV(&buf, tc.b); err == nil {
				t.Error("StreamWAV should reject buffer")
			}
		})
	}
}
