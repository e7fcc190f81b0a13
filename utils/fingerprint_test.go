package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

// gradientPNG renders a horizontal gradient at the given size. The
// same scene at different resolutions should fingerprint as the same
// proof.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / w)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func invertedGradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(255 - x*255/w)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFingerprintBytesDeterministic(t *testing.T) {
	data := gradientPNG(t, 64, 64)
	if got, want := FingerprintBytes(data), FingerprintBytes(data); got != want {
		t.Errorf("fingerprint not deterministic: %q vs %q", got, want)
	}
}

func TestFingerprintBytesImageVsFallback(t *testing.T) {
	imgFP := FingerprintBytes(gradientPNG(t, 64, 64))
	if !strings.HasPrefix(imgFP, "ph:") {
		t.Errorf("image fingerprint = %q, want ph: prefix", imgFP)
	}

	rawFP := FingerprintBytes([]byte("not an image at all"))
	if !strings.HasPrefix(rawFP, "sha256:") {
		t.Errorf("non-image fingerprint = %q, want sha256: prefix", rawFP)
	}
}

func TestSameProof(t *testing.T) {
	original := FingerprintBytes(gradientPNG(t, 100, 100))
	rescaled := FingerprintBytes(gradientPNG(t, 80, 80))
	inverted := FingerprintBytes(invertedGradientPNG(t, 100, 100))
	exactA := FingerprintBytes([]byte("payload A"))
	exactB := FingerprintBytes([]byte("payload B"))

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "identical perceptual", a: original, b: original, want: true},
		{name: "rescaled same scene", a: original, b: rescaled, want: true},
		{name: "different scene", a: original, b: inverted, want: false},
		{name: "identical exact", a: exactA, b: exactA, want: true},
		{name: "different exact", a: exactA, b: exactB, want: false},
		{name: "exact vs perceptual", a: exactA, b: original, want: false},
		{name: "malformed perceptual", a: "ph:xyz", b: "ph:abc", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameProof(tt.a, tt.b); got != tt.want {
				t.Errorf("SameProof(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
