// Package upload ships encoded audio windows to the transcription endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/leonardotrapani/voxchunk/internal/session"
	"github.com/leonardotrapani/voxchunk/internal/wav"
)

var ErrUploadFailed = errors.New("upload failed")

const (
	FieldName   = "file"
	ContentType = "audio/wav"
	maxBackoff  = 30 * time.Second
)

type Config struct {
	Endpoint string
	Timeout  time.Duration
	// MaxRetries is the number of extra attempts after a failure. Zero
	// keeps the single-attempt behaviour.
	MaxRetries int
	// MaxConcurrent bounds in-flight uploads. Zero means unbounded, which
	// lets uploads pile up if the endpoint is slower than real time.
	MaxConcurrent int
}

func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:8000/transcribe",
		Timeout:  30 * time.Second,
	}
}

// Sink receives transcripts as they arrive.
type Sink interface {
	Append(seq uint64, text string)
}

// Client uploads one WAV container per window and reports transcripts to a
// Sink. Uploads are independent; completion order is not guaranteed.
type Client struct {
	config     Config
	httpClient *http.Client
	sink       Sink
	sem        *semaphore.Weighted
	wg         sync.WaitGroup

	// base unit for retry backoff; shortened in tests
	backoff time.Duration
}

type response struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

func New(config Config, sink Sink) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("upload endpoint cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		sink:       sink,
		backoff:    time.Second,
	}
	if config.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(config.MaxConcurrent))
	}
	return c, nil
}

// SetBackoff changes the base delay between retries.
func (c *Client) SetBackoff(d time.Duration) {
	c.backoff = d
}

// Filename is the multipart filename used for window seq.
func Filename(seq uint64) string {
	return fmt.Sprintf("audio_chunk_%d.wav", seq)
}

// Dispatch encodes w and uploads it in the background. It never blocks on
// the network; failures are logged and the window is dropped.
func (c *Client) Dispatch(ctx context.Context, w session.Window) {
	container := wav.Encode(w.Samples, w.SampleRate)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if c.sem != nil {
			if err := c.sem.Acquire(ctx, 1); err != nil {
				log.Printf("upload: window %d skipped: %v", w.Seq, err)
				return
			}
			defer c.sem.Release(1)
		}

		text, err := c.Upload(ctx, w.Seq, container)
		if err != nil {
			log.Printf("upload: window %d: %v", w.Seq, err)
			return
		}
		if c.sink != nil {
			c.sink.Append(w.Seq, text)
		}
	}()
}

// Wait blocks until every dispatched upload has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Upload posts container as window seq and returns the transcript.
func (c *Client) Upload(ctx context.Context, seq uint64, container []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff << (attempt - 1)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUploadFailed, ctx.Err())
			}
			log.Printf("upload: retrying window %d (attempt %d/%d)", seq, attempt+1, c.config.MaxRetries+1)
		}

		text, err := c.post(ctx, seq, container)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, seq uint64, container []byte) (string, error) {
	body, contentType, err := multipartBody(seq, container)
	if err != nil {
		return "", fmt.Errorf("%w: build request body: %v", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUploadFailed, err)
	}

	var out response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = string(bytes.TrimSpace(raw))
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrUploadFailed, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, decodeErr)
	}

	log.Printf("upload: window %d transcribed in %v", seq, time.Since(start))
	return out.Transcript, nil
}

func multipartBody(seq uint64, container []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, Filename(seq)))
	h.Set("Content-Type", ContentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(container); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
