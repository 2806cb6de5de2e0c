package proxy

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/williampepple1/pr-snapshot/internal/config"
)

// Manager handles the proxy used for search API requests
type Manager struct {
	Config *config.ProxyConfig
}

// NewManager creates a new proxy manager
func NewManager(config *config.ProxyConfig) *Manager {
	return &Manager{
		Config: config,
	}
}

// GetProxyURL returns the configured proxy URL, or nil when disabled
func (m *Manager) GetProxyURL() (*url.URL, error) {
	if m.Config == nil || !m.Config.Enabled || m.Config.URL == "" {
		return nil, nil
	}

	proxyURL, err := url.Parse(m.Config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	// Add authentication if provided
	if m.Config.Username != "" && m.Config.Password != "" {
		proxyURL.User = url.UserPassword(m.Config.Username, m.Config.Password)
	}

	return proxyURL, nil
}

// Transport returns an HTTP transport routed through the proxy when one is
// configured, otherwise a clone of the default transport
func (m *Manager) Transport() (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	proxyURL, err := m.GetProxyURL()
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport, nil
}
