package yolodetect

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"
	"gocv.io/x/gocv"
)

// supportedImageTypes are the encoded image formats DecodeImage accepts
var supportedImageTypes = []string{"image/jpeg", "image/png"}

// DecodeImage decodes JPEG or PNG image data into a BGR Mat.  The caller must
// Close the returned Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {

	if len(data) == 0 {
		return gocv.NewMat(), newError(NoImageLoaded, nil, "no image data")
	}

	mtype := mimetype.Detect(data)

	if !mimetype.EqualsAny(mtype.String(), supportedImageTypes...) {
		return gocv.NewMat(), newError(InvalidImage, nil, "unsupported image type %s", mtype.String())
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)

	if err != nil {
		img.Close()
		return gocv.NewMat(), newError(InvalidImage, err, "unable to decode %s", mtype.String())
	}

	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newError(InvalidImage, nil, "decoded %s has no pixels", mtype.String())
	}

	return img, nil
}

// EncodeJPEG encodes the image as JPEG, used to hand an annotated image to a
// result consumer
func EncodeJPEG(img gocv.Mat) ([]byte, error) {

	if img.Empty() {
		return nil, newError(NoImageLoaded, nil, "image is empty")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)

	if err != nil {
		return nil, newError(InvalidImage, err, "unable to encode jpeg")
	}

	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}
