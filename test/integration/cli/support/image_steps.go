package support

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/cucumber/godog"

	// decoders for the formats checked by the steps
	_ "image/jpeg"
	_ "image/png"
)

// theFixtureExistsAs renders a synthetic fixture into the sandbox.
func (testCtx *TestContext) theFixtureExistsAs(name, dst string) error {
	f, ok := testutil.FixtureByName(name)
	if !ok {
		return fmt.Errorf("unknown fixture %q", name)
	}
	return testutil.WritePNG(testCtx.path(dst), f.Image())
}

func (testCtx *TestContext) allFixturesExistIn(dir string) error {
	_, err := testutil.WriteFixtures(testCtx.path(dir))
	return err
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	p := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, []byte("definitely not an image"), 0o600)
}

// aPDFWithTheFixtures writes a PDF with one fixture per page, named in the
// first column below a header row.
func (testCtx *TestContext) aPDFWithTheFixtures(name string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("table needs a header and at least one fixture")
	}
	var pages []*surface.Surface
	for _, row := range table.Rows[1:] {
		f, ok := testutil.FixtureByName(row.Cells[0].Value)
		if !ok {
			return fmt.Errorf("unknown fixture %q", row.Cells[0].Value)
		}
		pages = append(pages, surface.FromNRGBA(f.Image()))
	}
	var buf bytes.Buffer
	if err := pdf.Write(&buf, pages...); err != nil {
		return err
	}
	return os.WriteFile(testCtx.path(name), buf.Bytes(), 0o600)
}

func (testCtx *TestContext) decode(name string) (image.Image, string, error) {
	f, err := os.Open(testCtx.path(name))
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()
	return image.Decode(f)
}

func (testCtx *TestContext) theImageShouldBe(name string, w, h int) error {
	img, _, err := testCtx.decode(name)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("%s is %dx%d, want %dx%d", name, b.Dx(), b.Dy(), w, h)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldHaveLongSide(name string, n int) error {
	img, _, err := testCtx.decode(name)
	if err != nil {
		return err
	}
	if got := max(img.Bounds().Dx(), img.Bounds().Dy()); got != n {
		return fmt.Errorf("%s long side is %d, want %d", name, got, n)
	}
	return nil
}

func (testCtx *TestContext) pixelAlpha(name string, x, y int) (uint32, error) {
	img, _, err := testCtx.decode(name)
	if err != nil {
		return 0, err
	}
	_, _, _, a := img.At(x, y).RGBA()
	return a, nil
}

func (testCtx *TestContext) thePixelShouldBeTransparent(x, y int, name string) error {
	a, err := testCtx.pixelAlpha(name, x, y)
	if err != nil {
		return err
	}
	if a != 0 {
		return fmt.Errorf("pixel (%d,%d) of %s has alpha %d, want 0", x, y, name, a>>8)
	}
	return nil
}

func (testCtx *TestContext) thePixelShouldBeOpaque(x, y int, name string) error {
	a, err := testCtx.pixelAlpha(name, x, y)
	if err != nil {
		return err
	}
	if a != 0xffff {
		return fmt.Errorf("pixel (%d,%d) of %s has alpha %d, want 255", x, y, name, a>>8)
	}
	return nil
}

var magic = map[string][]byte{
	"PNG":  {0x89, 'P', 'N', 'G'},
	"JPEG": {0xFF, 0xD8, 0xFF},
	"PDF":  []byte("%PDF-"),
}

func (testCtx *TestContext) theFileShouldBeA(name, format string) error {
	want, ok := magic[format]
	if !ok {
		return fmt.Errorf("unknown format %q", format)
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(data, want) {
		return fmt.Errorf("%s is not a %s file", name, format)
	}
	return nil
}

// RegisterImageSteps registers fixture and image assertions.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the fixture "([^"]*)" exists as "([^"]*)"$`, testCtx.theFixtureExistsAs)
	sc.Step(`^all fixtures exist in "([^"]*)"$`, testCtx.allFixturesExistIn)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a PDF "([^"]*)" with the fixtures:$`, testCtx.aPDFWithTheFixtures)

	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+)$`, testCtx.theImageShouldBe)
	sc.Step(`^the image "([^"]*)" should have a long side of (\d+)$`, testCtx.theImageShouldHaveLongSide)
	sc.Step(`^pixel \((\d+), (\d+)\) of "([^"]*)" should be transparent$`, testCtx.thePixelShouldBeTransparent)
	sc.Step(`^pixel \((\d+), (\d+)\) of "([^"]*)" should be opaque$`, testCtx.thePixelShouldBeOpaque)
	sc.Step(`^the file "([^"]*)" should be a (PNG|JPEG|PDF)$`, testCtx.theFileShouldBeA)
}
