package config

import (
	"net"
	"net/url"
	"strings"

	"github.com/mwantia/objfs/data/errors"
)

// Scheme of every filesystem URI.
const Scheme = "objfs"

// EphemeralAddress is the short form of an in-memory endpoint.
const EphemeralAddress = ":ephemeral:"

var defaultPorts = map[string]string{
	"https": "443",
	"http":  "80",
}

// ParseEndpoint parses the endpoint URL of settings.
func ParseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == EphemeralAddress {
		raw = "memory://"
	}

	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, errors.MalformedAddress(err, raw)
	}
	if endpoint.Scheme == "" {
		return nil, errors.InvalidArgument("parse endpoint", "endpoint '%s' has no scheme", raw)
	}
	return endpoint, nil
}

// DefaultPort returns the well known port of scheme, or "".
func DefaultPort(scheme string) string {
	return defaultPorts[strings.ToLower(scheme)]
}

// URIFromSettings builds the filesystem URI addressing the endpoint of settings.
func URIFromSettings(settings Settings) (string, error) {
	endpoint, err := ParseEndpoint(settings.URL)
	if err != nil {
		return "", err
	}

	uri := &url.URL{
		Scheme: Scheme,
		Host:   endpoint.Hostname(),
	}
	if uri.Host == "" {
		uri.Path = "/"
	}

	port := endpoint.Port()
	if port == "" {
		port = DefaultPort(endpoint.Scheme)
	}
	if port != "" && uri.Host != "" {
		uri.Host = net.JoinHostPort(uri.Host, port)
	}

	return uri.String(), nil
}

// WithEndpointHost rewrites the host of the settings endpoint. The scheme of
// the endpoint is kept, the port defaults to the one of that scheme.
func (s Settings) WithEndpointHost(host, port string) (Settings, error) {
	if host == "" {
		return s, nil
	}

	endpoint, err := ParseEndpoint(s.URL)
	if err != nil {
		return s, err
	}

	if port == "" {
		port = DefaultPort(endpoint.Scheme)
	}
	endpoint.Host = host
	if port != "" {
		endpoint.Host = net.JoinHostPort(host, port)
	}

	s.URL = endpoint.String()
	return s, nil
}
