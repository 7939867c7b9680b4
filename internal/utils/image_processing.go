package utils

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrInvalidScale is returned when a scale factor is below 1 or would
	// produce a non-positive dimension.
	ErrInvalidScale = errors.New("invalid scale")

	// ErrDegenerateImage is returned for zero-area images.
	ErrDegenerateImage = errors.New("degenerate image")

	// ErrImageTooLarge is returned when an image exceeds MaxPixels.
	ErrImageTooLarge = errors.New("image too large")

	// ErrEncodeFailure is returned when an encoder cannot produce output.
	ErrEncodeFailure = errors.New("encode failure")
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// ImageConstraints bounds the work a caller is willing to hand to the engine.
// Zero values disable the corresponding check.
type ImageConstraints struct {
	MinWidth  int
	MinHeight int
	// MaxPixels caps width*height of any input image.
	MaxPixels int
	// MaxOutputPixels caps width*height after upscaling.
	MaxOutputPixels int
	// MaxScale caps the upscale factor.
	MaxScale float64
}

// DefaultImageConstraints returns the constraints used by the CLI and server.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MinWidth:        1,
		MinHeight:       1,
		MaxPixels:       40_000_000,
		MaxOutputPixels: 160_000_000,
		MaxScale:        8,
	}
}

// ValidateImageConstraints checks a decoded image header against the
// provided constraints.
func ValidateImageConstraints(cfg image.Config, constraints ImageConstraints) error {
	return ValidateDimensions(cfg.Width, cfg.Height, constraints)
}

// ValidateDimensions checks raw dimensions against the provided constraints.
func ValidateDimensions(w, h int, constraints ImageConstraints) error {
	if w <= 0 || h <= 0 {
		return &ImageProcessingError{Operation: "validate", Err: fmt.Errorf("%w: %dx%d", ErrDegenerateImage, w, h)}
	}
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err: fmt.Errorf(
				"image too small: %dx%d < %dx%d",
				w, h, constraints.MinWidth, constraints.MinHeight,
			),
		}
	}
	if constraints.MaxPixels > 0 && w*h > constraints.MaxPixels {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, w, h, constraints.MaxPixels),
		}
	}
	return nil
}

// ValidateScale checks an upscale request against the constraints before any
// pixel work is done.
func ValidateScale(w, h int, factor float64, constraints ImageConstraints) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 1 {
		return &ImageProcessingError{Operation: "validate", Err: fmt.Errorf("%w: factor %v", ErrInvalidScale, factor)}
	}
	if constraints.MaxScale > 0 && factor > constraints.MaxScale {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("%w: factor %v exceeds maximum %v", ErrInvalidScale, factor, constraints.MaxScale),
		}
	}
	if constraints.MaxOutputPixels > 0 {
		out := math.Round(float64(w)*factor) * math.Round(float64(h)*factor)
		if out > float64(constraints.MaxOutputPixels) {
			return &ImageProcessingError{
				Operation: "validate",
				Err:       fmt.Errorf("output of %.0f pixels exceeds %d", out, constraints.MaxOutputPixels),
			}
		}
	}
	return nil
}
