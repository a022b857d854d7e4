// Package sheetsvc talks to the spreadsheet-backed evaluation API.
// Every call is a POST of {action, token, payload} answered by {success, data, error}.
package sheetsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"

	"github.com/trezcool/danhgia/core"
)

// Actions of the evaluation API.
const (
	ActionLogin                 = "login"
	ActionGetConfig             = "getConfig"
	ActionUpdateConfig          = "updateConfig"
	ActionGetUsers              = "getUsers"
	ActionAddUser               = "addUser"
	ActionUpdateUser            = "updateUser"
	ActionDeleteUser            = "deleteUser"
	ActionImportUsers           = "importUsers"
	ActionGetEvaluationTemplate = "getEvaluationTemplate"
	ActionSubmitEvaluation      = "submitEvaluation"
	ActionGetDashboardData      = "getDashboardData"
	ActionGetTeamData           = "getTeamData"
)

// Caller performs one API action. The bearer token is read from ctx (see core.ContextWithToken).
// out may be nil when the response data is not needed.
type Caller interface {
	Call(ctx context.Context, action string, payload interface{}, out interface{}) error
}

type (
	envelope struct {
		Action  string      `json:"action"`
		Token   string      `json:"token"`
		Payload interface{} `json:"payload"`
	}

	response struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
)

type Client struct {
	url     string
	timeout time.Duration
	rest    *rest.Client
}

var _ Caller = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		url:     conf.Remote.URL,
		timeout: conf.Remote.Timeout,
		rest:    &rest.Client{HTTPClient: &http.Client{}},
	}
}

// Call sends the action without retrying.
// The caller's cancellation is not propagated: a write reaching the API is never aborted midway.
func (c *Client) Call(ctx context.Context, action string, payload interface{}, out interface{}) error {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(envelope{Action: action, Token: core.TokenFromContext(ctx), Payload: payload})
	if err != nil {
		return core.NewRemoteError(action, "encoding payload", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	res, err := c.rest.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.url,
		Headers: map[string]string{"Content-Type": "text/plain;charset=utf-8"}, // avoids CORS preflight on Apps Script
		Body:    body,
	})
	if err != nil {
		return core.NewRemoteError(action, "request failed", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.NewRemoteError(action, fmt.Sprintf("unexpected status %d", res.StatusCode))
	}
	return decodeResponse(action, []byte(res.Body), out)
}

func decodeResponse(action string, body []byte, out interface{}) error {
	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		return core.NewRemoteError(action, "invalid response", err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "API Error"
		}
		if isAuthFailure(msg) {
			return core.NewAuthError(msg)
		}
		return core.NewRemoteError(action, msg)
	}

	data := bytes.TrimSpace(res.Data)
	if out == nil || len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return core.NewRemoteError(action, "invalid data", err)
	}
	return nil
}

// authFailureMarkers are the message fragments of the API's authentication errors.
var authFailureMarkers = []string{"credential", "password", "token", "unauthorized"}

// isAuthFailure tells authentication failures apart from other API errors.
// The API only reports them through its error message.
func isAuthFailure(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range authFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
