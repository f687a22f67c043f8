package doctor

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// CacheStalenessCheck verifies that the statistics cache is in sync with the
// task file by comparing SHA256 content hashes. A stale cache is rebuilt on
// the next stats call, so failures are warnings. It never modifies any files.
type CacheStalenessCheck struct{}

// Run executes the cache staleness check.
func (c *CacheStalenessCheck) Run(ctx context.Context) []CheckResult {
	env := envFrom(ctx)

	doc, err := getDocument(ctx, env)
	if err != nil {
		return fileNotFoundResult("Cache", env)
	}

	h := sha256.Sum256(doc.Raw)
	fileHash := hex.EncodeToString(h[:])

	if _, err := os.Stat(env.CachePath); os.IsNotExist(err) {
		return []CheckResult{{
			Name:       "Cache",
			Passed:     false,
			Severity:   SeverityWarning,
			Details:    "cache.db not found - cache has not been built",
			Suggestion: "Run `planner rebuild` to build the cache",
		}}
	}

	storedHash, err := queryStoredHash(env.CachePath)
	if err != nil || storedHash != fileHash {
		return []CheckResult{{
			Name:       "Cache",
			Passed:     false,
			Severity:   SeverityWarning,
			Details:    "cache.db is stale - hash mismatch between task file and cache",
			Suggestion: "Run `planner rebuild` to refresh cache",
		}}
	}

	return []CheckResult{{
		Name:   "Cache",
		Passed: true,
	}}
}

// queryStoredHash opens cache.db in read-only mode and returns the stored
// content hash.
func queryStoredHash(cachePath string) (string, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", cachePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return "", fmt.Errorf("failed to open cache.db: %w", err)
	}
	defer db.Close()

	var storedHash string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'json_hash'").Scan(&storedHash)
	if err != nil {
		return "", fmt.Errorf("failed to query json_hash: %w", err)
	}

	return storedHash, nil
}
