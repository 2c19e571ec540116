// Package cli provides CLI commands for the parity application.
package cli

import (
	gocontext "context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/config"
	"github.com/example/parity/internal/ctxutil"
	"github.com/example/parity/internal/logging"
	"github.com/example/parity/internal/wire"
)

var (
	// globalActorID stores the detected actor ID for the current CLI invocation.
	// Set once at startup by DetectAndStoreActor().
	globalActorID string

	globalCorpus  string
	globalVerbose bool
	globalConfig  = &config.Config{}
)

// AddGlobalFlags registers the flags every command shares.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&globalCorpus, "corpus", ".", "Fixture corpus directory")
	root.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "Enable debug logging on stderr")
}

// Bootstrap resolves the corpus, loads its config, builds the logger and
// configures dependency injection. Call it from the root PersistentPreRunE.
func Bootstrap() error {
	DetectAndStoreActor()

	root, err := filepath.Abs(globalCorpus)
	if err != nil {
		return fmt.Errorf("failed to resolve corpus path: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	globalConfig = cfg

	logger, err := logging.New(globalVerbose)
	if err != nil {
		return err
	}

	wire.Configure(root, logger)
	return nil
}

// DetectAndStoreActor detects the current actor identity and stores it globally.
func DetectAndStoreActor() {
	globalActorID = ctxutil.DetectActor()
}

// GetActorID returns the stored actor ID from CLI startup.
// Returns empty string if DetectAndStoreActor() was not called.
func GetActorID() string {
	return globalActorID
}

// NewContext creates a context.Background() with the current actor ID embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() gocontext.Context {
	ctx := gocontext.Background()
	if globalActorID != "" {
		return ctxutil.WithActorID(ctx, globalActorID)
	}
	return ctx
}
