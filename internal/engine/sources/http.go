package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/infracollect/xlunlock/internal/engine"
)

const (
	HTTPSourceKind = "http"

	// defaultFilename names downloads whose URL path has no base name.
	defaultFilename = "workbook.xlsx"
)

var defaultHeaders = map[string]string{
	"User-Agent": "xlunlock",
	"Accept":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/vnd.ms-excel.sheet.macroEnabled.12, */*",
}

// HTTPSource downloads a workbook with a GET request.
type HTTPSource struct {
	logger  *zap.Logger
	client  *http.Client
	stager  *Stager
	url     *url.URL
	headers map[string]string
}

func NewHTTPSource(logger *zap.Logger, client *http.Client, stager *Stager, rawURL string, headers map[string]string) (engine.Source, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url '%s': %w", rawURL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	return &HTTPSource{
		logger:  logger,
		client:  client,
		stager:  stager,
		url:     parsedURL,
		headers: lo.Assign(defaultHeaders, headers),
	}, nil
}

func (s *HTTPSource) Name() string {
	return fmt.Sprintf("%s(%s)", HTTPSourceKind, s.url.Host)
}

func (s *HTTPSource) Kind() string {
	return HTTPSourceKind
}

func (s *HTTPSource) Filename() string {
	base := path.Base(s.url.Path)
	if base == "." || base == "/" || base == "" {
		return defaultFilename
	}
	return base
}

func (s *HTTPSource) Stage(ctx context.Context) (engine.Staged, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", s.url.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, s.url.Redacted())
	}

	staged, err := s.stager.Stage(s.Filename(), copyInto(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", s.url.Redacted(), err)
	}

	s.logger.Debug("downloaded workbook",
		zap.String("url", s.url.Redacted()),
		zap.String("size", humanize.IBytes(uint64(staged.Size()))),
	)
	return staged, nil
}
