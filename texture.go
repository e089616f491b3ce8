package graphics2d

import (
	"image"
	"image/png"
	"os"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

// TextureHandle identifies a texture owned by a RenderContext. The zero
// value means "no texture".
type TextureHandle string

const noTexture TextureHandle = ""

func (h TextureHandle) Valid() bool {
	return h != noTexture
}

func makeTextureHandle() TextureHandle {
	return TextureHandle(uuid.NewString())
}

// TextureAsset is CPU-side RGBA8 texel data ready for upload.
type TextureAsset struct {
	Texels []uint8
	Width  uint32
	Height uint32
}

// TexelsFromImage converts an image into an RGBA8 TextureAsset. Images
// larger than maxDim on either side are scaled down to fit (bilinear),
// maxDim <= 0 keeps the original size.
func TexelsFromImage(img image.Image, maxDim int) TextureAsset {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		scale := float64(maxDim) / float64(max(w, h))
		dw := max(1, int(float64(w)*scale))
		dh := max(1, int(float64(h)*scale))
		scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)
		img, bounds = scaled, scaled.Bounds()
		w, h = dw, dh
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		xdraw.Copy(rgba, bounds.Min, img, bounds, xdraw.Src, nil)
	}

	return TextureAsset{
		Texels: rgba.Pix,
		Width:  uint32(w),
		Height: uint32(h),
	}
}

// LoadTextureAsset decodes a PNG sprite or normal map from disk.
func LoadTextureAsset(filename string, maxDim int) (TextureAsset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return TextureAsset{}, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return TextureAsset{}, err
	}
	return TexelsFromImage(img, maxDim), nil
}
