package scanner

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNotFound means the frame held no readable barcode. Callers treat it as
// "keep scanning", not as a failure.
var ErrNotFound = errors.New("no barcode found")

// ErrUnsupportedImage means the frame bytes are not a PNG, JPEG or GIF.
var ErrUnsupportedImage = errors.New("unsupported image")

// Result is a decoded barcode.
type Result struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

// FrameDecoder turns an encoded camera frame into barcode text.
type FrameDecoder interface {
	Decode(r io.Reader) (*Result, error)
}

// Decoder tries the supported symbologies in turn: EAN-13, EAN-8, UPC-A,
// UPC-E, Code 128, Code 39 and QR.
type Decoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() *Decoder {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	return &Decoder{
		readers: []gozxing.Reader{
			oned.NewMultiFormatUPCEANReader(hints),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
			qrcode.NewQRCodeReader(),
		},
		hints: hints,
	}
}

// Decode reads an encoded image (PNG, JPEG or GIF) and decodes it.
func (d *Decoder) Decode(r io.Reader) (*Result, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return d.DecodeImage(img)
}

// DecodeImage returns ErrNotFound when no reader located a barcode. Checksum
// and format failures are returned as-is so they can be reported.
func (d *Decoder) DecodeImage(img image.Image) (*Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize frame: %w", err)
	}

	var lastErr error
	for _, reader := range d.readers {
		res, err := reader.Decode(bmp, d.hints)
		if err == nil {
			return &Result{
				Text:   strings.TrimSpace(res.GetText()),
				Format: res.GetBarcodeFormat().String(),
			}, nil
		}
		if !isNotFound(err) {
			lastErr = err
		}
		reader.Reset()
	}
	if lastErr != nil {
		return nil, fmt.Errorf("decode barcode: %w", lastErr)
	}
	return nil, ErrNotFound
}

func isNotFound(err error) bool {
	var nf gozxing.NotFoundException
	return errors.As(err, &nf)
}
