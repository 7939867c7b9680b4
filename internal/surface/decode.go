package surface

import (
	"io"

	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// Decode reads any registered image format into a surface. Images whose
// header exceeds limits are rejected before their pixels are decoded.
func Decode(r io.Reader, limits utils.ImageConstraints) (*Surface, utils.ImageMetadata, error) {
	img, meta, err := utils.DecodeImage(r, limits)
	if err != nil {
		return nil, utils.ImageMetadata{}, err
	}
	s, err := FromImage(img)
	if err != nil {
		return nil, utils.ImageMetadata{}, err
	}
	return s, meta, nil
}

// Load reads an image file into a surface.
func Load(path string, limits utils.ImageConstraints) (*Surface, utils.ImageMetadata, error) {
	img, meta, err := utils.LoadImage(path, limits)
	if err != nil {
		return nil, utils.ImageMetadata{}, err
	}
	s, err := FromImage(img)
	if err != nil {
		return nil, utils.ImageMetadata{}, err
	}
	return s, meta, nil
}
