package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is complete for the given mode.
// Modes correspond to command groups: "pipeline" covers the offline
// commands, "import" needs WordPress credentials, "serve" needs a port.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(cond bool, msg string) {
		if cond {
			problems = append(problems, msg)
		}
	}

	// Shared bounds.
	check(c.Matcher.SimilarityThreshold < 0 || c.Matcher.SimilarityThreshold > 1,
		"matcher.similarity_threshold must be between 0 and 1")
	check(c.Store.Driver != "sqlite" && c.Store.Driver != "postgres",
		"store.driver must be sqlite or postgres")
	check(c.Store.Driver == "postgres" && c.Store.DatabaseURL == "",
		"store.database_url is required for the postgres driver")
	check(c.Store.Driver == "sqlite" && c.Store.Path == "",
		"store.path is required for the sqlite driver")

	switch mode {
	case "pipeline":
		// Nothing beyond the shared checks.
	case "import":
		check(c.WordPress.BaseURL == "", "wordpress.base_url is required")
		check(c.WordPress.Username == "", "wordpress.username is required")
		check(c.WordPress.AppPassword == "", "wordpress.app_password is required")
		check(c.WordPress.RequestsPerSec <= 0, "wordpress.requests_per_sec must be > 0")
	case "serve":
		check(c.Server.Port <= 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
