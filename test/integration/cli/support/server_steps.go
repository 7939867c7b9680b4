package support

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/server"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/cucumber/godog"
)

// HTTPTestServerWrapper runs the real handler stack on an httptest server.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

func (testCtx *TestContext) thePixkitServerIsRunning() error {
	testCtx.stopTestHTTPServer()
	return testCtx.startTestHTTPServerWith(func(*config.Config) {})
}

func (testCtx *TestContext) thePixkitServerIsRunningWithRateLimit(perMinute int) error {
	testCtx.stopTestHTTPServer()
	return testCtx.startTestHTTPServerWith(func(c *config.Config) {
		c.Server.RateLimitEnabled = true
		c.Server.RequestsPerMinute = perMinute
	})
}

func (testCtx *TestContext) startTestHTTPServerWith(mutate func(*config.Config)) error {
	cfg := config.DefaultConfig()
	mutate(&cfg)
	maxData, err := config.ParseByteSize(cfg.Server.MaxDataPerDay)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(server.Config{
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		Pipeline:    cfg.ToPipelineConfig(),
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimitEnabled,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			MaxDataPerDay:     maxData,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer == nil {
		return
	}
	testCtx.HTTPTestServer.Server.Close()
	_ = testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = body
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) url(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, u, nil) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iUploadTheFixtureTo posts a fixture as the multipart "image" field. The
// optional table holds extra form fields as name | value rows.
func (testCtx *TestContext) iUploadTheFixtureTo(name, path string, fields *godog.Table) error {
	f, ok := testutil.FixtureByName(name)
	if !ok {
		return fmt.Errorf("unknown fixture %q", name)
	}
	var img bytes.Buffer
	if err := png.Encode(&img, f.Image()); err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name+".png")
	if err != nil {
		return err
	}
	if _, err := part.Write(img.Bytes()); err != nil {
		return err
	}
	if fields != nil {
		for _, row := range fields.Rows {
			if err := mw.WriteField(row.Cells[0].Value, row.Cells[1].Value); err != nil {
				return err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, u, &body) //nolint:noctx // test request
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTheFixtureToWithoutFields(name, path string) error {
	return testCtx.iUploadTheFixtureTo(name, path, nil)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("header %s = %q, want %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(testCtx.LastHTTPResponse), text) {
		return fmt.Errorf("response does not contain %q: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path, expected string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, path, expected)
}

func (testCtx *TestContext) theResponseShouldBeAnImageOf(w, h int) error {
	img, _, err := image.Decode(bytes.NewReader(testCtx.LastHTTPResponse))
	if err != nil {
		return fmt.Errorf("response is not an image: %w", err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return fmt.Errorf("response image is %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	if got := testCtx.LastHTTPHeaders.Get("X-Pixkit-Width"); got != strconv.Itoa(w) {
		return fmt.Errorf("X-Pixkit-Width = %q, want %d", got, w)
	}
	return nil
}

// RegisterServerSteps registers HTTP steps against an in-process server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the pixkit server is running$`, testCtx.thePixkitServerIsRunning)
	sc.Step(`^the pixkit server is running with a limit of (\d+) requests per minute$`,
		testCtx.thePixkitServerIsRunningWithRateLimit)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload the fixture "([^"]*)" to "([^"]*)" with:$`, testCtx.iUploadTheFixtureTo)
	sc.Step(`^I upload the fixture "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTheFixtureToWithoutFields)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should be an image of (\d+)x(\d+)$`, testCtx.theResponseShouldBeAnImageOf)
}
