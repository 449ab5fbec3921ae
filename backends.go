package objfs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/backend/consul"
	"github.com/mwantia/objfs/backend/ephemeral"
	"github.com/mwantia/objfs/backend/postgres"
	"github.com/mwantia/objfs/backend/s3"
	"github.com/mwantia/objfs/backend/sqlite"
	"github.com/mwantia/objfs/config"
	"github.com/mwantia/objfs/data/errors"
)

// BackendFactory creates the object store client for one set of settings.
type BackendFactory func(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error)

// NewBackend selects the backend by the scheme of the endpoint URL.
func NewBackend(ctx context.Context, settings config.Settings) (backend.ObjectStorageBackend, error) {
	address := strings.TrimSpace(settings.URL)
	if address == config.EphemeralAddress {
		return ephemeral.NewEphemeralBackend(), nil
	}

	scheme, rest, found := strings.Cut(address, "://")
	if !found {
		return nil, errors.MalformedAddress(fmt.Errorf("missing protocol"), address)
	}

	switch strings.ToLower(scheme) {
	// memory://
	case "memory":
		return ephemeral.NewEphemeralBackend(), nil
	// sqlite://<path> or sqlite://:memory:
	case "sqlite":
		return sqlite.NewSQLiteBackend(rest)
	// postgres://<user>:<password>@<address>:<port>/<database>?<params>
	case "postgres", "postgresql":
		return postgres.NewPostgresBackend(ctx, address)
	// consul://<address>:<port>?dc=<datacenter>&prefix=<prefix>
	case "consul":
		return newConsulBackend(settings)
	// https://<address>:<port>, s3://<address>:<port>, minio://<address>:<port>
	case "https", "http", "s3", "minio":
		return newS3Backend(settings)
	}

	return nil, errors.MalformedAddress(fmt.Errorf("unknown backend protocol '%s'", scheme), address)
}

func newConsulBackend(settings config.Settings) (backend.ObjectStorageBackend, error) {
	endpoint, err := config.ParseEndpoint(settings.URL)
	if err != nil {
		return nil, err
	}

	query := endpoint.Query()
	return consul.NewConsulBackend(&consul.ConsulBackendConfig{
		Address:    endpoint.Host,
		Scheme:     query.Get("scheme"),
		Token:      settings.KeyFingerprint,
		Datacenter: query.Get("dc"),
		Namespace:  query.Get("ns"),
		Prefix:     query.Get("prefix"),
	})
}

// newS3Backend uses the account as bucket, the key fingerprint as access key
// and the content of the key file as secret key.
func newS3Backend(settings config.Settings) (backend.ObjectStorageBackend, error) {
	if err := settings.Require(config.KeyKeyPath, config.KeyKeyFingerprint); err != nil {
		return nil, err
	}

	endpoint, err := config.ParseEndpoint(settings.URL)
	if err != nil {
		return nil, err
	}

	secret, err := os.ReadFile(settings.KeyPath)
	if err != nil {
		return nil, errors.AccessDenied(err, "read key", settings.KeyPath)
	}

	useSsl := endpoint.Scheme == "https" || endpoint.Query().Get("ssl") == "true"
	return s3.NewS3Backend(endpoint.Host, settings.Account, settings.KeyFingerprint, strings.TrimSpace(string(secret)), useSsl)
}
