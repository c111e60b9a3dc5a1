// Package lemonfox implements transcription against the Lemonfox
// (OpenAI Whisper compatible) audio API.
package lemonfox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultURL      = "https://api.lemonfox.ai/v1/audio/transcriptions"
	defaultLanguage = "english"
	maxResponseSize = 8 << 20
)

// Config controls the transcription endpoint.
type Config struct {
	APIKey   string
	URL      string
	Language string
	Timeout  time.Duration
}

// Client implements ports.Transcriber.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type transcriptionResponse struct {
	Text  *string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the audio file and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("LEMONFOX_API_KEY is not configured")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	body, contentType := c.encodeForm(file, filepath.Base(audioPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lemonfox request: %w", err)
	}
	defer resp.Body.Close()

	var decoded transcriptionResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			return "", fmt.Errorf("lemonfox api error: %s: %s", resp.Status, decoded.Error.Message)
		}
		return "", fmt.Errorf("lemonfox api error: %s", resp.Status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("lemonfox decode: %w", decodeErr)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("lemonfox api error: %s", decoded.Error.Message)
	}
	if decoded.Text == nil {
		return "", errors.New("lemonfox response has no text field")
	}
	return *decoded.Text, nil
}

// encodeForm streams the multipart body so large recordings are not
// buffered in memory.
func (c *Client) encodeForm(audio io.Reader, filename string) (io.Reader, string) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			part, err := form.CreateFormFile("file", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, audio); err != nil {
				return err
			}
			if err := form.WriteField("language", c.cfg.Language); err != nil {
				return err
			}
			if err := form.WriteField("response_format", "json"); err != nil {
				return err
			}
			return form.Close()
		}()
		pw.CloseWithError(err)
	}()

	return pr, form.FormDataContentType()
}
