package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"strconv"
	"strings"
)

// Proof fingerprinting: perceptual aHash + dHash over a decoded image,
// compared by Hamming distance. Two proofs within DuplicateThreshold
// bits of each other count as the same image even after re-encoding or
// mild edits. Non-image bytes fall back to an exact SHA-256 signature.

const (
	hashSize = 8 // 8x8 grid, 64 bits per hash

	// DuplicateThreshold is the max combined Hamming distance at which
	// two fingerprints are treated as the same proof.
	DuplicateThreshold = 5

	perceptualPrefix = "ph:"
	exactPrefix      = "sha256:"
)

// FingerprintBytes computes a stable content signature for uploaded
// proof bytes. Deterministic, no side effects.
func FingerprintBytes(data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		sum := sha256.Sum256(data)
		return exactPrefix + hex.EncodeToString(sum[:])
	}
	ah := averageHash(img)
	dh := differenceHash(img)
	return fmt.Sprintf("%s%016x%016x", perceptualPrefix, ah, dh)
}

// SameProof reports whether two fingerprints denote the same proof.
// Exact fingerprints compare byte-for-byte; perceptual ones within
// DuplicateThreshold bits collide.
func SameProof(a, b string) bool {
	if a == b {
		return true
	}
	if !strings.HasPrefix(a, perceptualPrefix) || !strings.HasPrefix(b, perceptualPrefix) {
		return false
	}
	ha, err1 := parsePerceptual(a)
	hb, err2 := parsePerceptual(b)
	if err1 != nil || err2 != nil {
		return false
	}
	dist := bits.OnesCount64(ha[0]^hb[0]) + bits.OnesCount64(ha[1]^hb[1])
	return dist <= DuplicateThreshold
}

func parsePerceptual(fp string) ([2]uint64, error) {
	var out [2]uint64
	body := strings.TrimPrefix(fp, perceptualPrefix)
	if len(body) != 32 {
		return out, fmt.Errorf("malformed fingerprint %q", fp)
	}
	a, err := strconv.ParseUint(body[:16], 16, 64)
	if err != nil {
		return out, err
	}
	d, err := strconv.ParseUint(body[16:], 16, 64)
	if err != nil {
		return out, err
	}
	out[0], out[1] = a, d
	return out, nil
}

// averageHash: grayscale, shrink to 8x8, 1 bit per pixel above the mean.
func averageHash(img image.Image) uint64 {
	px := shrinkGray(img, hashSize, hashSize)
	var sum uint64
	for _, p := range px {
		sum += uint64(p)
	}
	avg := sum / uint64(len(px))
	var h uint64
	for _, p := range px {
		h <<= 1
		if uint64(p) > avg {
			h |= 1
		}
	}
	return h
}

// differenceHash: grayscale, shrink to 9x8, 1 bit per left<right pair.
func differenceHash(img image.Image) uint64 {
	px := shrinkGray(img, hashSize+1, hashSize)
	var h uint64
	for row := 0; row < hashSize; row++ {
		base := row * (hashSize + 1)
		for col := 0; col < hashSize; col++ {
			h <<= 1
			if px[base+col] < px[base+col+1] {
				h |= 1
			}
		}
	}
	return h
}

// shrinkGray downsamples to w x h by box-averaging the source pixels
// covered by each cell. Cheap enough to run synchronously on upload.
func shrinkGray(img image.Image, w, h int) []uint8 {
	b := img.Bounds()
	out := make([]uint8, 0, w*h)
	for y := 0; y < h; y++ {
		sy0 := b.Min.Y + y*b.Dy()/h
		sy1 := b.Min.Y + (y+1)*b.Dy()/h
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for x := 0; x < w; x++ {
			sx0 := b.Min.X + x*b.Dx()/w
			sx1 := b.Min.X + (x+1)*b.Dx()/w
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			var acc, n uint64
			for sy := sy0; sy < sy1 && sy < b.Max.Y; sy++ {
				for sx := sx0; sx < sx1 && sx < b.Max.X; sx++ {
					g := color.GrayModel.Convert(img.At(sx, sy)).(color.Gray)
					acc += uint64(g.Y)
					n++
				}
			}
			if n == 0 {
				out = append(out, 0)
				continue
			}
			out = append(out, uint8(acc/n))
		}
	}
	return out
}
