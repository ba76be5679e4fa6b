package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/wb-go/wbf/zlog"
)

// ErrMalformedToken marks a token that fails the syntactic check. No network
// call is made for these; the dispatcher counts them as failed locally.
var ErrMalformedToken = errors.New("malformed push token")

var tokenPattern = regexp.MustCompile(`^ExponentPushToken\[[A-Za-z0-9_-]+\]$`)

// ValidToken reports whether the token looks like a deliverable Expo push
// token.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// ExpoSender delivers one message per call to the Expo push HTTP API. It is
// single-attempt: per-recipient retries are the caller's policy, and the
// configured client timeout bounds every call.
type ExpoSender struct {
	endpoint string
	client   *http.Client
}

func NewExpoSender(endpoint string, client *http.Client) *ExpoSender {
	return &ExpoSender{endpoint: endpoint, client: client}
}

type expoRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound"`
}

type expoResponse struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

func (s *ExpoSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if !ValidToken(token) {
		return ErrMalformedToken
	}

	payload, err := json.Marshal(expoRequest{
		To:    token,
		Title: title,
		Body:  body,
		Data:  data,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push transport: unexpected status %d", resp.StatusCode)
	}

	var ticket expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if ticket.Data.Status == "error" {
		zlog.Logger.Warn().Str("message", ticket.Data.Message).Msg("Push rejected by transport")
		return fmt.Errorf("push rejected: %s", ticket.Data.Message)
	}
	return nil
}
