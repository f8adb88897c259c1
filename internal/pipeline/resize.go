package pipeline

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Resize scales inPath to exactly targetW x targetH and writes the result
// to outPath as the canonical bitmap.
//
// When the input already has the target dimensions no resampling happens
// and the returned note is empty, which lets callers distinguish a real
// resize from a pass-through re-encode. The written output is re-opened
// and verified; one corrective resample is applied if the encoder drifted
// the dimensions.
func Resize(inPath, outPath string, targetW, targetH int) (string, error) {
	img, err := openBitmap(inPath)
	if err != nil {
		return "", err
	}

	note := ""
	bounds := img.Bounds()
	if bounds.Dx() != targetW || bounds.Dy() != targetH {
		img = imaging.Resize(img, targetW, targetH, imaging.Lanczos)
		note = fmt.Sprintf("resized to %dx%d", targetW, targetH)
	}

	if err := savePNG(img, outPath); err != nil {
		return "", err
	}

	// Guard against encoder-introduced dimension drift.
	w, h, err := Dimensions(outPath)
	if err != nil {
		return "", err
	}
	if w != targetW || h != targetH {
		written, err := openBitmap(outPath)
		if err != nil {
			return "", err
		}
		corrected := imaging.Resize(written, targetW, targetH, imaging.Lanczos)
		if err := savePNG(corrected, outPath); err != nil {
			return "", err
		}
	}

	return note, nil
}
