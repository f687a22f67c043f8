package doctor

import (
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/leeovery/studyplan/internal/cache"
)

func TestCacheStalenessCheck(t *testing.T) {
	content := "[]\n"

	t.Run("it passes when the cache hash matches the task file", func(t *testing.T) {
		ctx, env := setupEnv(t, content)
		c, err := cache.EnsureFresh(env.CachePath, nil, []byte(content), cache.WithWarnLogger(log.New(io.Discard)))
		if err != nil {
			t.Fatalf("EnsureFresh: %v", err)
		}
		c.Close()

		results := (&CacheStalenessCheck{}).Run(ctx)
		if !results[0].Passed {
			t.Errorf("expected pass, got %+v", results)
		}
	})

	t.Run("it warns when the task file changed after the cache was built", func(t *testing.T) {
		ctx, env := setupEnv(t, content)
		c, _ := cache.EnsureFresh(env.CachePath, nil, []byte("[ ]"), cache.WithWarnLogger(log.New(io.Discard)))
		c.Close()

		results := (&CacheStalenessCheck{}).Run(ctx)
		if results[0].Passed || results[0].Severity != SeverityWarning {
			t.Errorf("expected stale warning, got %+v", results)
		}
	})

	t.Run("it warns when the cache is not a database", func(t *testing.T) {
		ctx, env := setupEnv(t, content)
		if err := os.WriteFile(env.CachePath, []byte("garbage"), 0644); err != nil {
			t.Fatal(err)
		}

		results := (&CacheStalenessCheck{}).Run(ctx)
		if results[0].Passed || results[0].Severity != SeverityWarning {
			t.Errorf("expected stale warning, got %+v", results)
		}
		data, _ := os.ReadFile(env.CachePath)
		if string(data) != "garbage" {
			t.Error("check must not modify the cache file")
		}
	})
}
