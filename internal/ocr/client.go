// Package ocr talks to the remote plate-recognition service. The engine
// never depends on recognition succeeding: a null plate means "fall back
// to manual entry", and provider error shapes are translated once, here,
// into a closed error kind.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type Kind string

const (
	KindBadImage    Kind = "bad_image"
	KindUnavailable Kind = "unavailable"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr %s: %s", e.Kind, e.Message)
}

// Result is the recognition outcome. A nil PlateNumber is a successful
// call that found no readable plate.
type Result struct {
	PlateNumber *string  `json:"plate_number"`
	Confidence  *float64 `json:"confidence"`
}

type Client struct {
	http *resty.Client
}

func NewClient(endpoint, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		c = c.SetAuthToken(apiKey)
	}
	return &Client{http: c}
}

type recognizeRequest struct {
	Image string `json:"image"`
}

type recognizeResponse struct {
	PlateNumber *string  `json:"plate_number"`
	Confidence  *float64 `json:"confidence"`
	Error       string   `json:"error"`
}

// Recognize submits a base64-encoded image and returns the recognized
// plate, if any.
func (c *Client) Recognize(ctx context.Context, imageBase64 string) (*Result, error) {
	if imageBase64 == "" {
		return nil, &Error{Kind: KindBadImage, Message: "no image provided"}
	}

	var body recognizeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(recognizeRequest{Image: imageBase64}).
		SetResult(&body).
		Post("/recognize")
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}

	switch {
	case resp.StatusCode() == http.StatusBadRequest:
		return nil, &Error{Kind: KindBadImage, Message: body.Error}
	case resp.IsError():
		return nil, &Error{Kind: KindUnavailable, Message: fmt.Sprintf("provider returned %s", resp.Status())}
	}

	return &Result{PlateNumber: body.PlateNumber, Confidence: body.Confidence}, nil
}
