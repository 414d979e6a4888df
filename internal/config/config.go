package config

import "github.com/kelseyhightower/envconfig"

// Driver names accepted for STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config holds everything the server reads from the environment.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   string `envconfig:"PORT" default:"8080"`

	// StoreDriver selects the persistence strategy: "mongo" keeps the
	// vote set embedded in feedback documents, "postgres" keeps a
	// normalized vote log.
	StoreDriver string `envconfig:"STORE_DRIVER" default:"mongo"`

	MongoURI string `envconfig:"MONGODB_URI"`
	DBName   string `envconfig:"DB_NAME" default:"feedbackboard"`

	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
