package schedulersvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
)

// Gateway posts files to the external scheduler over HTTP.
type Gateway struct {
	url       string
	userAgent string
	signer    *auth.Signer
	client    *rest.Client
}

var _ file.Scheduler = (*Gateway)(nil)

// NewGateway returns a gateway posting to conf.Scheduler.SubmissionURL.
// An empty URL yields a disabled gateway. A nil httpClient means http.DefaultClient.
func NewGateway(conf *core.Config, signer *auth.Signer, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gateway{
		url:       conf.Scheduler.SubmissionURL,
		userAgent: conf.Scheduler.UserAgent,
		signer:    signer,
		client:    &rest.Client{HTTPClient: httpClient},
	}
}

func (g *Gateway) Enabled() bool {
	return g.url != ""
}

// Dispatch sends sf authenticated as p. Any transport error or non-2xx
// response is a failure; the response body is ignored.
func (g *Gateway) Dispatch(ctx context.Context, p auth.Principal, sf file.ScheduleFile) error {
	if !g.Enabled() {
		return file.ErrSchedulerNotConfigured
	}

	token, err := g.signer.Sign(p)
	if err != nil {
		return errors.Wrap(err, "signing scheduler token")
	}
	body, err := json.Marshal(sf)
	if err != nil {
		return errors.Wrap(err, "marshalling schedule file")
	}

	resp, err := g.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: g.url,
		Headers: map[string]string{
			"Authorization": auth.TokenPrefix + token,
			"Content-Type":  "application/json",
			"User-Agent":    g.userAgent,
		},
		Body: body,
	})
	if err != nil {
		return errors.Wrap(err, "posting to scheduler")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("scheduler responded %d", resp.StatusCode)
	}
	return nil
}
