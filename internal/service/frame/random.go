package frame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/disintegration/imaging"

	"labelcam/internal/config"
	"labelcam/internal/logger"
)

const maxImageBytes = 20 << 20

// RandomImageSource fetches a random photo for manual review.
type RandomImageSource struct {
	client *http.Client
	apiURL string
	apiKey string
	width  int
	height int
	logger *logger.Logger
}

// NewRandomImageSource creates a source against an Unsplash-compatible
// random-photo endpoint.
func NewRandomImageSource(cfg *config.Config, client *http.Client, logger *logger.Logger) *RandomImageSource {
	if client == nil {
		client = &http.Client{}
	}
	return &RandomImageSource{
		client: client,
		apiURL: cfg.ImageAPIURL,
		apiKey: cfg.ImageAPIKey,
		width:  cfg.FrameWidth,
		height: cfg.FrameHeight,
		logger: logger,
	}
}

type randomPhoto struct {
	URLs struct {
		Regular string `json:"regular"`
	} `json:"urls"`
}

// FetchRandomImage asks the API for a random photo and returns its URL.
func (s *RandomImageSource) FetchRandomImage(ctx context.Context) (string, error) {
	u, err := url.Parse(s.apiURL)
	if err != nil {
		return "", &NetworkFetchError{URL: s.apiURL, Err: err}
	}
	q := u.Query()
	if s.apiKey != "" {
		q.Set("client_id", s.apiKey)
	}
	q.Set("w", strconv.Itoa(s.width))
	q.Set("h", strconv.Itoa(s.height))
	u.RawQuery = q.Encode()

	body, err := s.get(ctx, u.String())
	if err != nil {
		return "", &NetworkFetchError{URL: s.apiURL, Err: err}
	}
	defer body.Close()

	var photo randomPhoto
	if err := json.NewDecoder(body).Decode(&photo); err != nil {
		return "", &NetworkFetchError{URL: s.apiURL, Err: fmt.Errorf("invalid response: %w", err)}
	}
	if photo.URLs.Regular == "" {
		return "", &NetworkFetchError{URL: s.apiURL, Err: errors.New("response has no image url")}
	}
	return photo.URLs.Regular, nil
}

// Next fetches a random photo, decodes it and fits it to the frame size so
// detection boxes line up with the drawing surface.
func (s *RandomImageSource) Next(ctx context.Context) (*Frame, error) {
	imageURL, err := s.FetchRandomImage(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.get(ctx, imageURL)
	if err != nil {
		return nil, &NetworkFetchError{URL: imageURL, Err: err}
	}
	defer body.Close()

	img, err := imaging.Decode(io.LimitReader(body, maxImageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &NetworkFetchError{URL: imageURL, Err: fmt.Errorf("failed to decode image: %w", err)}
	}
	if s.width > 0 && s.height > 0 {
		img = imaging.Resize(img, s.width, s.height, imaging.Lanczos)
	}

	s.logger.Info("Loaded image %s", imageURL)
	return newFrame(img, imageURL), nil
}

func (s *RandomImageSource) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *RandomImageSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
