package web

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"time"

	"github.com/samskrta/review-image/internal/render"
)

// callbackTimeout bounds how long a fire-and-forget callback delivery may
// take, so a slow or unreachable callback_url can't leak goroutines.
const callbackTimeout = 30 * time.Second

var callbackHTTPClient = &http.Client{Timeout: callbackTimeout}

// deliverCallback renders req out-of-band and POSTs the resulting image to
// callbackURL, per spec.md §4.4's callback_url mode. The caller has already
// responded 202 Accepted; failures here are logged, not surfaced to the
// original requester.
func (s *Server) deliverCallback(req render.Request, callbackURL string) {
	result, err := s.render.Generate(context.Background(), req)
	if err != nil {
		logCallbackErr("render", callbackURL, err)
		return
	}
	if err := postCallback(callbackURL, result.Image, "image/"+result.Format); err != nil {
		logCallbackErr("deliver", callbackURL, err)
	}
}

// postCallback delivers image as the raw request body of a POST to url.
func postCallback(url string, image []byte, contentType string) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := callbackHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &callbackStatusError{status: resp.StatusCode}
	}
	return nil
}

type callbackStatusError struct {
	status int
}

func (e *callbackStatusError) Error() string {
	return http.StatusText(e.status)
}

func logCallbackErr(op, callbackURL string, err error) {
	log.Printf("[web] callback %s failed for %s: %v", op, callbackURL, err)
}
