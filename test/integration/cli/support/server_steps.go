package support

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/MeKo-Tech/footprint/internal/server"
	"github.com/cucumber/godog"
)

var errNoServer = errors.New("server is not running")

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// Close shuts the test server down.
func (w *HTTPTestServerWrapper) Close() {
	w.Server.Close()
}

func (testCtx *TestContext) startServer(limits *server.RateLimits) error {
	srv, err := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  30,
		Refine:      refine.DefaultConfig(),
		RateLimit:   limits,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
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

func (testCtx *TestContext) theRefinementServerIsRunning() error {
	return testCtx.startServer(nil)
}

func (testCtx *TestContext) theRefinementServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startServer(&server.RateLimits{PerMinute: perMinute})
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iRequestFromTheServer(path string) error {
	if testCtx.HTTPTestServer == nil {
		return errNoServer
	}
	resp, err := http.Get(testCtx.HTTPTestServer.Server.URL + path) //nolint:noctx // test request
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

// submit posts region.png and edge.png from the temp directory plus the
// given form fields.
func (testCtx *TestContext) submit(fields map[string]string) error {
	if testCtx.HTTPTestServer == nil {
		return errNoServer
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, field := range []string{"region", "edge"} {
		data, err := os.ReadFile(testCtx.Path(field + ".png"))
		if err != nil {
			return fmt.Errorf("missing fixture: %w", err)
		}
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(testCtx.HTTPTestServer.Server.URL+"/v1/refine", //nolint:noctx // test request
		mw.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) iSubmitTheMasks() error {
	return testCtx.submit(nil)
}

func (testCtx *TestContext) iSubmitTheMasksWith(key, value string) error {
	return testCtx.submit(map[string]string{key: value})
}

func (testCtx *TestContext) iSubmitTheMasksTimes(n int) error {
	for range n {
		if err := testCtx.submit(nil); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s is %q, want %q", name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(path string, want int) error {
	return jsonFieldEquals([]byte(testCtx.LastHTTPResponse), path, want)
}

// RegisterServerSteps registers the HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the refinement server is running$`, testCtx.theRefinementServerIsRunning)
	sc.Step(`^the refinement server is running with a limit of (\d+) requests per minute$`,
		testCtx.theRefinementServerIsRunningWithRateLimit)
	sc.Step(`^I request "([^"]*)" from the server$`, testCtx.iRequestFromTheServer)
	sc.Step(`^I submit the masks to the server$`, testCtx.iSubmitTheMasks)
	sc.Step(`^I submit the masks to the server with "([^"]*)" set to "([^"]*)"$`, testCtx.iSubmitTheMasksWith)
	sc.Step(`^I submit the masks to the server (\d+) times$`, testCtx.iSubmitTheMasksTimes)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be (-?\d+)$`, testCtx.theResponseJSONFieldShouldBe)
}
