package pdfgen

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/phpdave11/gofpdf"
)

// imageDPI sizes the PDF page so the image renders at 100 dots per inch.
const imageDPI = 100.0

// ImagePDF renders an uploaded bill image as a single-page PDF sized to the
// image. Alpha and palette color modes are flattened to plain RGB first.
func ImagePDF(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = flattenRGB(img)

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding image page: %w", err)
	}

	bounds := img.Bounds()
	wpt := float64(bounds.Dx()) * 72.0 / imageDPI
	hpt := float64(bounds.Dy()) * 72.0 / imageDPI

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wpt, Ht: hpt},
	})
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("bill", opts, &jpg)
	pdf.ImageOptions("bill", 0, 0, wpt, hpt, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("writing image page PDF: %w", err)
	}
	return out.Bytes(), nil
}

// flattenRGB redraws images whose color model carries an alpha or palette
// channel onto a plain RGB raster. Other models pass through unchanged.
func flattenRGB(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.Paletted:
		bounds := img.Bounds()
		flat := image.NewRGBA(bounds)
		draw.Draw(flat, bounds, img, bounds.Min, draw.Src)
		return flat
	default:
		return img
	}
}
