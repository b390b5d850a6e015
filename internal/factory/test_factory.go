package factory

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/partycoord/internal/dependencies/mocks"
	"github.com/mcoot/partycoord/internal/publish"
	"github.com/mcoot/partycoord/internal/services/auth"
	"github.com/mcoot/partycoord/internal/storage/memory"
	"github.com/mcoot/partycoord/internal/testutil"
)

// TestAdminPassword is the admin secret every TestApp accepts
const TestAdminPassword = "admin123"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	FakeClock     *clockwork.FakeClock
	MockRandom    *mocks.MockRandom
	MemoryStorage *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig is NewTestApp with custom registry, connection and URL settings.
// Storage, publisher and admin secret are always the test doubles.
func NewTestAppWithConfig(cfg Config) *TestApp {
	logger := cfg.Logger
	if logger == nil {
		logger = testutil.NopLogger()
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:3000"
	}

	store := memory.New()
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	verifier, err := auth.NewAdminVerifier(TestAdminPassword)
	if err != nil {
		panic(err)
	}

	app := newWithDependencies(store, publish.NewNop(logger), fakeClock, mockRandom, verifier, cfg, logger)

	return &TestApp{
		App:           app,
		FakeClock:     fakeClock,
		MockRandom:    mockRandom,
		MemoryStorage: store,
	}
}
