// Package line adapts the LINE Messaging API to the answer service:
// a webhook server for inbound events and a messenger for replies.
package line

import (
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// API is the subset of the Messaging API client used by the messenger.
type API interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
	PushMessage(req *messaging_api.PushMessageRequest, xLineRetryKey string) (*messaging_api.PushMessageResponse, error)
}

// NewAPI builds a Messaging API client authenticated with the channel access token.
func NewAPI(token string, client *http.Client) (API, error) {
	opts := []messaging_api.MessagingApiAPIOption{}
	if client != nil {
		opts = append(opts, messaging_api.WithHTTPClient(client))
	}
	api, err := messaging_api.NewMessagingApiAPI(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("line: build messaging api client: %w", err)
	}
	return api, nil
}
