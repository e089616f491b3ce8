package graphics2d

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestTexelsFromImageKeepsSmallImages(t *testing.T) {
	asset := TexelsFromImage(solidImage(16, 8, color.RGBA{255, 0, 0, 255}), 64)

	if asset.Width != 16 || asset.Height != 8 {
		t.Fatalf("size = %dx%d, want 16x8", asset.Width, asset.Height)
	}
	if len(asset.Texels) != 16*8*4 {
		t.Fatalf("texel bytes = %d, want %d", len(asset.Texels), 16*8*4)
	}
	if asset.Texels[0] != 255 || asset.Texels[1] != 0 {
		t.Errorf("first texel = %v, want red", asset.Texels[:4])
	}
}

func TestTexelsFromImageDownscales(t *testing.T) {
	asset := TexelsFromImage(solidImage(256, 128, color.RGBA{0, 255, 0, 255}), 64)

	if asset.Width != 64 || asset.Height != 32 {
		t.Fatalf("size = %dx%d, want 64x32", asset.Width, asset.Height)
	}
	if len(asset.Texels) != 64*32*4 {
		t.Fatalf("texel bytes = %d, want %d", len(asset.Texels), 64*32*4)
	}
}

func TestTexelsFromImageNoLimit(t *testing.T) {
	asset := TexelsFromImage(solidImage(100, 100, color.RGBA{0, 0, 255, 255}), 0)
	if asset.Width != 100 || asset.Height != 100 {
		t.Fatalf("maxDim 0 must keep the original size, got %dx%d", asset.Width, asset.Height)
	}
}

func TestTextureHandleValidity(t *testing.T) {
	if noTexture.Valid() {
		t.Errorf("zero handle must be invalid")
	}
	if !makeTextureHandle().Valid() {
		t.Errorf("generated handles must be valid")
	}
	if makeTextureHandle() == makeTextureHandle() {
		t.Errorf("generated handles must be unique")
	}
}
