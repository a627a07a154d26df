package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/interactive-solutions/go-drip"
)

// Relay posts messages to a JSON-over-HTTP mail relay that answers with the
// provider message id. Transient HTTP errors are retried by the client, a
// rejected message is not.
type relay struct {
	client *retryablehttp.Client

	endpoint string

	username string
	password string
}

func NewRelayTransport(endpoint, username, password string) drip.MailTransport {
	return &relay{
		client: retryablehttp.NewClient(),

		endpoint: endpoint,
		username: username,
		password: password,
	}
}

func (r *relay) Send(ctx context.Context, message drip.Message) (string, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return "", errors.Wrap(err, "Failed to encode message for relay")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req = req.WithContext(ctx)
	req.SetBasicAuth(r.username, r.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", drip.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return "", errors.Errorf("Unexpected response code %d received from mail relay", resp.StatusCode)
	}

	payload := struct {
		MessageId string `json:"messageId"`
	}{}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "Failed to decode relay response")
	}

	if payload.MessageId == "" {
		return "", errors.New("Mail relay response is missing a message id")
	}

	return payload.MessageId, nil
}
