package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Login exchanges a username/password pair for a bearer credential at
// the login endpoint. The call is anonymous: no credential is attached,
// and a rejection does not terminate any existing session: it means
// the submitted credentials were wrong, not that the session expired.
//
// Feed the returned credential to the session store to start a session.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	raw, err := c.do(ctx, "/auth/login", &RequestOptions{
		Method: http.MethodPost,
		Body:   loginRequest{Username: username, Password: password},
	}, "", false)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return resp.Token, nil
}
