package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values we accept.
var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks configuration values and returns the first violation.
// All errors wrap a package sentinel so callers can use errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validatePostgres(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateModels() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.ClassifierModel) == "" {
		return fmt.Errorf("%w: classifier_model is empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.ClassifierTemperature < 0 || c.ClassifierTemperature > 2 {
		return fmt.Errorf("%w: classifier_temperature %v not in [0, 2]", ErrInvalidTemperature, c.ClassifierTemperature)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidEmbedderModel)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.SearchResults < 1 {
		return fmt.Errorf("%w: search_results %d must be at least 1", ErrInvalidRetrieval, c.SearchResults)
	}
	if c.SearchCandidates <= c.SearchResults {
		// Over-fetch must strictly exceed the final count so dedup can
		// drop repeats without shrinking the result set.
		return fmt.Errorf("%w: search_candidates %d must exceed search_results %d",
			ErrInvalidRetrieval, c.SearchCandidates, c.SearchResults)
	}
	if c.SearchCandidates > MaxSearchCandidates {
		return fmt.Errorf("%w: search_candidates %d exceeds maximum %d",
			ErrInvalidRetrieval, c.SearchCandidates, MaxSearchCandidates)
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.ChunkSize < 100 {
		return fmt.Errorf("%w: chunk_size %d must be at least 100", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap %d must not be negative", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be smaller than chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host is empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d not in [1, 65535]", ErrInvalidPostgres, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresUser) == "" {
		return fmt.Errorf("%w: postgres_user is empty", ErrInvalidPostgres)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: postgres_db_name is empty", ErrInvalidPostgres)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: postgres_ssl_mode %q not supported", ErrInvalidPostgres, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalidServer)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate_limit %v must be positive", ErrInvalidServer, c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst %d must be at least 1", ErrInvalidServer, c.RateBurst)
	}
	return nil
}
