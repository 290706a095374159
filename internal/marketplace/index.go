package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aharden/tabhome/internal/domain/entity"
	"github.com/aharden/tabhome/internal/lifecycle"
	apperrors "github.com/aharden/tabhome/pkg/errors"
)

// IndexEntry is one listing in the static marketplace index, the
// local-install variant used when no remote document store hosts the
// catalog.
type IndexEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Author      string `json:"author,omitempty"`
}

// IndexClient fetches the static index from a well-known path:
// {base}/index.json for the listing, {base}/{id}.lua for payloads.
type IndexClient struct {
	baseURL    string
	httpClient *http.Client
	controller *lifecycle.Controller
}

// NewIndexClient creates an IndexClient. An empty baseURL disables the
// static index.
func NewIndexClient(baseURL string, timeout time.Duration, controller *lifecycle.Controller) *IndexClient {
	return &IndexClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		controller: controller,
	}
}

// Enabled reports whether a static index is configured.
func (c *IndexClient) Enabled() bool {
	return c.baseURL != ""
}

// Fetch retrieves the index listing.
func (c *IndexClient) Fetch(ctx context.Context) ([]IndexEntry, error) {
	body, err := c.get(ctx, c.baseURL+"/index.json")
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperrors.ErrPersistence.WithMessage("marketplace index is malformed").WithError(err)
	}
	return entries, nil
}

// FetchPayload retrieves one plugin's source text by index id.
func (c *IndexClient) FetchPayload(ctx context.Context, id string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s.lua", c.baseURL, url.PathEscape(id)))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Install fetches the payload for an index id and installs it under
// that id, so re-installs resolve to the same local record.
func (c *IndexClient) Install(ctx context.Context, userID, id string) (*entity.Plugin, error) {
	source, err := c.FetchPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.controller.InstallSourceAs(ctx, userID, id, source)
}

func (c *IndexClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.ErrBadRequest.WithError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrPersistence.WithMessage("marketplace index unreachable").WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrPluginNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrPersistence.WithMessage(
			fmt.Sprintf("marketplace index returned status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}
