package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.yaml.in/yaml/v2"

	"media-index/internal/indexer"
	"media-index/internal/logging"
	"media-index/internal/repository"
	"media-index/internal/repository/local"
	"media-index/internal/repository/rclone"
	"media-index/internal/repository/s3"
	"media-index/internal/repository/webdav"
)

// Repository types accepted in the config file.
const (
	TypeLocal  = "local"
	TypeWebDAV = "webdav"
	TypeRclone = "rclone"
	TypeS3     = "s3"
)

// fileConfig is the layout of CONFIG_FILE. Values may reference
// environment variables as ${NAME}.
type fileConfig struct {
	Repositories map[string]RepositoryConfig `yaml:"repositories"`
	Playlists    map[string]map[string]any   `yaml:"playlists"`
}

// RepositoryConfig describes one repository of the config file. Which
// fields apply depends on Type.
type RepositoryConfig struct {
	ID      string `yaml:"-"`
	Type    string `yaml:"type"`
	Enabled *bool  `yaml:"enabled"`

	// local, webdav and rclone
	Root string `yaml:"root"`

	// webdav
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Timeout  string `yaml:"timeout"`

	// s3
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// rclone
	Binary string `yaml:"binary"`

	IndexUpdateInterval string `yaml:"index_update_interval"`
	IndexUpdateAt       string `yaml:"index_update_at"`
}

// IsEnabled reports whether the repository is enabled. Repositories are
// enabled unless the file says otherwise.
func (r RepositoryConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Location is a printable description of where the files live. It never
// includes credentials.
func (r RepositoryConfig) Location() string {
	switch r.Type {
	case TypeWebDAV:
		return r.URL + cleanSlash(r.Root)
	case TypeS3:
		return r.Endpoint + "/" + r.Bucket + cleanSlash(r.Prefix)
	}
	return r.Root
}

func cleanSlash(p string) string {
	if p == "" || p[0] == '/' {
		return p
	}
	return "/" + p
}

// Volumes names the directories whose filesystem metrics are labelled:
// every enabled local repository by its id, the remote file cache and the
// directory of the index database.
func (c *Config) Volumes() map[string]string {
	volumes := map[string]string{
		"cache":    c.CacheDir,
		"database": filepath.Dir(c.IndexPath),
	}
	if c.IndexPath == "" {
		delete(volumes, "database")
	}
	for _, r := range c.Repositories {
		if r.Type == TypeLocal && r.IsEnabled() {
			volumes[r.ID] = r.Root
		}
	}
	return volumes
}

// DefaultSchedule is the schedule of repositories that set none.
func (c *Config) DefaultSchedule() indexer.Schedule {
	return indexer.Schedule{Interval: c.UpdateInterval, At: c.UpdateAt}
}

// Schedule returns the update schedule of r. A repository setting either
// field replaces both defaults.
func (c *Config) Schedule(r RepositoryConfig) (indexer.Schedule, error) {
	if r.IndexUpdateInterval == "" && r.IndexUpdateAt == "" {
		return c.DefaultSchedule(), nil
	}

	s := indexer.Schedule{At: r.IndexUpdateAt}
	if r.IndexUpdateInterval != "" {
		d, err := time.ParseDuration(r.IndexUpdateInterval)
		if err != nil {
			return indexer.Schedule{}, fmt.Errorf("repository %s: %w", r.ID,
				repository.Invalid("index_update_interval", r.IndexUpdateInterval, "must be a duration such as 30m"))
		}
		s.Interval = d
	}
	if err := s.Validate(); err != nil {
		return indexer.Schedule{}, fmt.Errorf("repository %s: %w", r.ID, err)
	}
	return s, nil
}

// loadRepositories reads ConfigFile. When the file is missing and
// CONFIG_FILE was not set explicitly, MEDIA_DIR is served as the local
// repository "media".
func (c *Config) loadRepositories() error {
	data, err := os.ReadFile(c.ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		if _, explicit := os.LookupEnv("CONFIG_FILE"); explicit {
			return fmt.Errorf("config file %s does not exist", c.ConfigFile)
		}
		mediaDir := getEnv("MEDIA_DIR", defaultMediaDir)
		logging.Info("  No config file, serving MEDIA_DIR %s as repository \"media\"", mediaDir)
		c.Repositories = []RepositoryConfig{{ID: "media", Type: TypeLocal, Root: mediaDir}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	repos, playlists, err := parseConfigFile(data)
	if err != nil {
		return fmt.Errorf("config file %s: %w", c.ConfigFile, err)
	}
	for _, r := range repos {
		if _, err := c.Schedule(r); err != nil {
			return err
		}
	}
	c.Repositories = repos
	c.Playlists = playlists
	return nil
}

// parseConfigFile expands environment references, decodes the file and
// validates every repository. Repositories are returned sorted by id.
func parseConfigFile(data []byte) ([]RepositoryConfig, map[string]map[string]any, error) {
	var fc fileConfig
	if err := yaml.UnmarshalStrict([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse: %w", err)
	}
	if len(fc.Repositories) == 0 {
		return nil, nil, repository.Invalid("repositories", nil, "at least one repository is required")
	}

	repos := make([]RepositoryConfig, 0, len(fc.Repositories))
	for id, r := range fc.Repositories {
		r.ID = id
		if err := r.validate(); err != nil {
			return nil, nil, fmt.Errorf("repository %s: %w", id, err)
		}
		repos = append(repos, r)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].ID < repos[j].ID })

	return repos, fc.Playlists, nil
}

func (r RepositoryConfig) validate() error {
	if err := repository.ValidateID(r.ID); err != nil {
		return err
	}
	switch r.Type {
	case TypeLocal, TypeRclone:
		if r.Root == "" {
			return repository.Invalid("root", nil, "required for "+r.Type+" repositories")
		}
	case TypeWebDAV:
		if r.URL == "" {
			return repository.Invalid("url", nil, "required for webdav repositories")
		}
		if r.Timeout != "" {
			if _, err := time.ParseDuration(r.Timeout); err != nil {
				return repository.Invalid("timeout", r.Timeout, "must be a duration such as 30s")
			}
		}
	case TypeS3:
		if r.Endpoint == "" || r.Bucket == "" {
			return repository.Invalid("endpoint", r.Endpoint, "endpoint and bucket are required for s3 repositories")
		}
	default:
		return repository.Invalid("type", r.Type, "must be local, webdav, rclone or s3")
	}
	return nil
}

// OpenRepositories connects every enabled repository and registers it.
// On failure the adapters opened so far are closed.
func OpenRepositories(ctx context.Context, cfg *Config) (*repository.Registry, error) {
	registry := repository.NewRegistry()
	for _, r := range cfg.Repositories {
		if !r.IsEnabled() {
			logging.Info("  Skipping disabled repository %s", r.ID)
			continue
		}

		adapter, err := openRepository(ctx, r, cfg.CacheDir)
		if err == nil {
			err = registry.Register(adapter)
		}
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open repository %s: %w", r.ID, err), registry.Close())
		}
		logging.Info("  [OK] Repository %s (%s) ready", r.ID, r.Type)
	}
	return registry, nil
}

func openRepository(ctx context.Context, r RepositoryConfig, cacheDir string) (repository.Adapter, error) {
	switch r.Type {
	case TypeLocal:
		return local.New(r.ID, r.Root)
	case TypeWebDAV:
		var timeout time.Duration
		if r.Timeout != "" {
			timeout, _ = time.ParseDuration(r.Timeout)
		}
		return webdav.New(ctx, r.ID, webdav.Config{
			URL:      r.URL,
			User:     r.User,
			Password: r.Password,
			Root:     r.Root,
			CacheDir: cacheDir,
			Timeout:  timeout,
		})
	case TypeRclone:
		return rclone.New(r.ID, rclone.Config{
			Root:     r.Root,
			CacheDir: cacheDir,
			Binary:   r.Binary,
		})
	case TypeS3:
		return s3.New(ctx, r.ID, s3.Config{
			Endpoint:  r.Endpoint,
			Bucket:    r.Bucket,
			Prefix:    r.Prefix,
			AccessKey: r.AccessKey,
			SecretKey: r.SecretKey,
			UseSSL:    r.UseSSL,
			CacheDir:  cacheDir,
		})
	}
	return nil, repository.Invalid("type", r.Type, "must be local, webdav, rclone or s3")
}
