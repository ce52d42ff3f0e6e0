package logics

import (
	"bytes"
	"encoding/base64"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	qrModuleSize = 320 // rendered QR side length in pixels
	qrMargin     = 24
	qrCaptionGap = 44 // space below the code for the caption line
)

// QRImageService renders a redemption URL as a scannable PNG with a
// caption line underneath.
type QRImageService struct{}

func NewQRImageService() *QRImageService {
	return &QRImageService{}
}

// RenderBase64 encodes the redemption URL into a QR code, composes it
// onto a white canvas with the caption, and returns the PNG as base64.
func (s *QRImageService) RenderBase64(redemptionURL, caption string) (string, error) {
	code, err := qr.Encode(redemptionURL, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, qrModuleSize, qrModuleSize)
	if err != nil {
		return "", err
	}

	width := qrModuleSize + 2*qrMargin
	height := qrModuleSize + 2*qrMargin + qrCaptionGap
	dc := gg.NewContext(width, height)

	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(code, qrMargin, qrMargin)

	if caption != "" {
		font, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return "", err
		}
		face := truetype.NewFace(font, &truetype.Options{
			Size: 18,
		})
		dc.SetFontFace(face)
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawStringAnchored(caption, float64(width)/2, float64(height)-float64(qrCaptionGap)/2, 0.5, 0.5)
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
