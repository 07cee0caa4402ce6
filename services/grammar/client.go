// Package grammar talks to the external grammar checking service.
package grammar

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/tutor"
)

// Client posts {"text": ...} to the service and decodes its Report.
type Client struct {
	url   string
	token string
	rest  *rest.Client
}

var _ tutor.Checker = (*Client)(nil) // interface compliance check

func NewClient(conf core.TutorConfig) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:   conf.URL,
		token: conf.AccessToken,
		rest:  &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

type checkRequest struct {
	Text string `json:"text"`
}

func (c *Client) Check(ctx context.Context, text string) (tutor.Report, error) {
	body, err := json.Marshal(checkRequest{Text: text})
	if err != nil {
		return tutor.Report{}, errors.Wrap(err, "encoding request")
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	req, err := rest.BuildRequestObject(rest.Request{
		Method:  rest.Post,
		BaseURL: c.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return tutor.Report{}, errors.Wrap(err, "building request")
	}
	httpRes, err := c.rest.MakeRequest(req.WithContext(ctx))
	if err != nil {
		return tutor.Report{}, errors.Wrap(err, "calling grammar service")
	}
	defer httpRes.Body.Close()
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return tutor.Report{}, errors.Wrap(err, "reading grammar service response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return tutor.Report{}, errors.Errorf("grammar service responded %d: %s", res.StatusCode, res.Body)
	}

	var report tutor.Report
	if err = json.Unmarshal([]byte(res.Body), &report); err != nil {
		return tutor.Report{}, errors.Wrap(err, "decoding grammar report")
	}
	return report, nil
}
