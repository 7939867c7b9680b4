// Package pdf reads page images out of PDF documents and wraps finished
// surfaces into single-page PDFs.
package pdf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImage is one image embedded in a PDF page.
type PageImage struct {
	Page    int
	Index   int
	Surface *surface.Surface
}

// ExtractImages pulls every embedded image from the selected pages of a PDF
// file and decodes them into surfaces, ordered by page and then by the order
// the page references them. Images in encodings that cannot be decoded are
// skipped, as are images whose dimensions exceed limits. An empty pageRange
// selects all pages.
func ExtractImages(filename, pageRange string, creds *Credentials, limits utils.ImageConstraints) ([]PageImage, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	f, err := os.Open(filename) //nolint:gosec // G304: user-provided PDF path
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	c := &collector{limits: limits}
	if err := api.ExtractImages(f, selected, c.digest, creds.configuration()); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return c.images(), nil
}

// collector decodes the images pdfcpu hands out and numbers them per page.
type collector struct {
	limits utils.ImageConstraints
	out    []PageImage
}

func (c *collector) digest(img model.Image, _ bool, _ int) error {
	if img.Reader == nil {
		return nil
	}
	s, _, err := surface.Decode(img.Reader, c.limits)
	if errors.Is(err, utils.ErrImageTooLarge) {
		slog.Warn("skipping oversized PDF image", "page", img.PageNr, "name", img.Name, "error", err)
		return nil
	}
	if err != nil {
		slog.Debug("skipping undecodable PDF image", "page", img.PageNr, "name", img.Name,
			"type", img.FileType, "error", err)
		return nil
	}
	index := 1
	for _, pi := range c.out {
		if pi.Page == img.PageNr {
			index++
		}
	}
	c.out = append(c.out, PageImage{Page: img.PageNr, Index: index, Surface: s})
	return nil
}

func (c *collector) images() []PageImage {
	sort.SliceStable(c.out, func(i, j int) bool {
		if c.out[i].Page != c.out[j].Page {
			return c.out[i].Page < c.out[j].Page
		}
		return c.out[i].Index < c.out[j].Index
	})
	return c.out
}

// ParsePageRange parses a page selection like "1-5" or "1,3,5".
// An empty string selects all pages and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if !strings.Contains(part, "-") {
		page, err := strconv.Atoi(part)
		if err != nil || page < 1 {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		return []int{page}, nil
	}
	bounds := strings.Split(part, "-")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil || start < 1 {
		return nil, fmt.Errorf("invalid start page: %s", bounds[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end page: %s", bounds[1])
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}
