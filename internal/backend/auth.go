package backend

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

// RefreshResult carries the renewed session credentials.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       string `json:"user_id"`
}

// RefreshToken performs the silent session renewal.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no refresh token held")
	}
	var resp struct {
		Data RefreshResult `json:"data"`
	}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &resp); err != nil {
		return nil, err
	}
	if resp.Data.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh returned no access token")
	}
	return &resp.Data, nil
}
