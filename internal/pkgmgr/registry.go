package pkgmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/tcnksm/go-latest"
)

// ErrNotFound is returned when a source has no version for a package.
var ErrNotFound = errors.New("package version not found")

// LatestSource reports the newest published release of a package.
type LatestSource interface {
	Latest(ctx context.Context, name string) (*PackageInfo, error)
}

// npmViewOutput represents the fields we use from `npm view <pkg> --json`
type npmViewOutput struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	DistTags    map[string]string `json:"dist-tags"`
}

// NPMView queries the registry through the npm CLI.
type NPMView struct {
	runner  Runner
	timeout time.Duration
}

// NewNPMView creates an NPMView that bounds each query by timeout.
func NewNPMView(runner Runner, timeout time.Duration) *NPMView {
	return &NPMView{runner: runner, timeout: timeout}
}

// Latest runs `npm view <name> --json` and returns the published version.
func (n *NPMView) Latest(ctx context.Context, name string) (*PackageInfo, error) {
	out, err := runWithTimeout(ctx, n.runner, n.timeout, "", "npm", "view", name, "--json")
	if err != nil {
		return nil, fmt.Errorf("npm view %s: %w", name, err)
	}
	return parseNPMView(name, out.Stdout)
}

// parseNPMView decodes npm view output. npm prints an array instead of an
// object when a range matches several versions; the last entry is newest.
func parseNPMView(name string, data []byte) (*PackageInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	var view npmViewOutput
	if data[0] == '[' {
		var views []npmViewOutput
		if err := json.Unmarshal(data, &views); err != nil {
			return nil, fmt.Errorf("failed to parse npm view output for %s: %w", name, err)
		}
		if len(views) == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		view = views[len(views)-1]
	} else if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to parse npm view output for %s: %w", name, err)
	}

	ver := view.Version
	if tag := view.DistTags["latest"]; tag != "" {
		ver = tag
	}
	if ver == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	info := &PackageInfo{
		Name:        view.Name,
		Version:     ver,
		Description: view.Description,
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

// HTTPRegistry reads the registry's `/<pkg>/latest` document directly,
// without an npm binary.
type HTTPRegistry struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPRegistry creates an HTTPRegistry for baseURL (DefaultRegistryURL
// when empty).
func NewHTTPRegistry(baseURL string, timeout time.Duration) *HTTPRegistry {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	return &HTTPRegistry{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// URL returns the latest-document URL for name.
func (h *HTTPRegistry) URL(name string) string {
	return h.baseURL + "/" + name + "/latest"
}

// Latest fetches the newest version over HTTP. The request is bound to ctx
// and the registry timeout, so a stalled registry is abandoned along with
// its connection.
func (h *HTTPRegistry) Latest(ctx context.Context, name string) (*PackageInfo, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := latest.Check(&registrySource{ctx: ctx, client: h.client, url: h.URL(name)}, "0.0.0")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return nil, fmt.Errorf("registry lookup for %s: %w", name, err)
	}
	if res == nil || res.Current == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	info := &PackageInfo{Name: name, Version: res.Current}
	if res.Meta != nil {
		info.Description = res.Meta.Message
	}
	return info, nil
}

// maxLatestDocument caps how much of a latest document is read.
const maxLatestDocument = 1 << 20

// registrySource is a go-latest Source for one npm latest document.
type registrySource struct {
	ctx    context.Context
	client *http.Client
	url    string
}

func (s *registrySource) Validate() error {
	if s.url == "" {
		return errors.New("registry URL is empty")
	}
	return nil
}

func (s *registrySource) Fetch() (*latest.FetchResponse, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var doc npmViewOutput
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxLatestDocument)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.url, err)
	}
	v, err := version.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("malformed version %q: %w", doc.Version, err)
	}

	return &latest.FetchResponse{
		Versions: []*version.Version{v},
		Meta:     &latest.Meta{Message: doc.Description, URL: s.url},
	}, nil
}
