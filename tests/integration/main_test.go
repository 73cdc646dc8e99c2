package integration

import (
	"context"
	"os"
	"testing"
)

// TestMain terminates the shared container after the package's tests
func TestMain(m *testing.M) {
	code := m.Run()
	if sharedContainer != nil {
		_ = sharedContainer.Terminate(context.Background())
	}
	os.Exit(code)
}
