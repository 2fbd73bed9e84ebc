package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/omnipack/omnipack/pkg/packaging"
	"github.com/omnipack/omnipack/pkg/policy"
	"github.com/omnipack/omnipack/pkg/telemetry"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()

	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("failed to create telemetry: %v", err)
	}
	return NewCollector(tel, "run-test")
}

func decisionFor(t *testing.T, plan *Plan, name string) *Decision {
	t.Helper()
	for i := range plan.Decisions {
		if plan.Decisions[i].Resource == name {
			return &plan.Decisions[i]
		}
	}
	t.Fatalf("no decision for %s", name)
	return nil
}

func TestCollectorRun(t *testing.T) {
	c := newTestCollector(t)
	p := policy.Default()
	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)

	plan, err := c.Run(context.Background(), p, nil, scanner.Scan(p))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if plan.RunID != "run-test" {
		t.Errorf("run ID = %s", plan.RunID)
	}
	if plan.Summary.Resources != 4 {
		t.Fatalf("decided %d resources, want 4", plan.Summary.Resources)
	}

	osPath := decisionFor(t, plan, "os.path")
	if !osPath.Included() {
		t.Error("os.path should be included under the default policy")
	}
	if osPath.Context == nil || !osPath.Context.Location.IsInMemory() {
		t.Error("os.path should target the in-memory placement")
	}
	if !osPath.Context.OptimizeLevelZero || osPath.Context.OptimizeLevelOne {
		t.Error("default policy requests level-0 bytecode only")
	}

	// Test-only resources are decided but excluded, with a full context.
	testSSL := decisionFor(t, plan, "test_ssl")
	if testSSL.Included() {
		t.Error("test_ssl should be excluded by default")
	}
	if testSSL.Context == nil {
		t.Error("excluded resources still carry a context")
	}
	if testSSL.Outcome() != telemetry.OutcomeExcluded {
		t.Errorf("test_ssl outcome = %s, want excluded", testSSL.Outcome())
	}
}

func TestCollectorRecordsConflictAndContinues(t *testing.T) {
	c := newTestCollector(t)

	// In-memory placement, no fallback, and in-memory shared library
	// loading disallowed: the extension module conflicts.
	p := policy.Default()
	p.AllowInMemorySharedLibraryLoading = false
	p.ResourcesLocationFallback = nil

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	plan, err := c.Run(context.Background(), p, nil, scanner.Scan(p))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	ssl := decisionFor(t, plan, "ssl")
	if ssl.Conflict == "" {
		t.Fatal("ssl should have a placement conflict")
	}
	if ssl.Included() {
		t.Error("conflicted resource must not count as included")
	}
	if ssl.Outcome() != telemetry.OutcomeConflict {
		t.Errorf("ssl outcome = %s, want conflict", ssl.Outcome())
	}
	if plan.Summary.Conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", plan.Summary.Conflicts)
	}

	// The conflict is scoped to ssl; later resources are still decided.
	testSSL := decisionFor(t, plan, "test_ssl")
	if testSSL.Context == nil {
		t.Error("resources after the conflict should still be decided")
	}
}

func TestCollectorConflictFallbackPromotion(t *testing.T) {
	c := newTestCollector(t)

	p := policy.Default()
	p.AllowInMemorySharedLibraryLoading = false
	fb := packaging.LocationFilesystemRelative("lib")
	p.ResourcesLocationFallback = &fb

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	plan, err := c.Run(context.Background(), p, nil, scanner.Scan(p))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	ssl := decisionFor(t, plan, "ssl")
	if ssl.Conflict != "" {
		t.Fatalf("fallback should have resolved the conflict: %s", ssl.Conflict)
	}
	if !ssl.Included() {
		t.Error("ssl should be included via the fallback placement")
	}
	if got := ssl.Context.Location.String(); got != "filesystem-relative:lib" {
		t.Errorf("ssl location = %s, want filesystem-relative:lib", got)
	}
	if ssl.Context.LocationFallback != nil {
		t.Error("a promoted fallback must not remain as a fallback")
	}
}

func TestCollectorCallbackErrorContinues(t *testing.T) {
	c := newTestCollector(t)
	p := policy.Default()
	// ssl must derive cleanly so the chain actually runs for it; a
	// placement conflict would record a conflict before any callback.
	p.AllowInMemorySharedLibraryLoading = true

	chain := policy.NewCallbackChain()
	err := chain.Register("fail-ssl", func(_ *policy.Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error) {
		if snap.Name == "ssl" {
			return nil, errors.New("no ssl for you")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	plan, runErr := c.Run(context.Background(), p, chain, scanner.Scan(p))
	if runErr != nil {
		t.Fatalf("run failed: %v", runErr)
	}

	ssl := decisionFor(t, plan, "ssl")
	if ssl.CallbackError == "" {
		t.Fatal("ssl should have a callback error")
	}
	if ssl.Context == nil {
		t.Error("the context committed before the failure stands")
	}
	if ssl.Outcome() != telemetry.OutcomeError {
		t.Errorf("ssl outcome = %s, want error", ssl.Outcome())
	}
	if plan.Summary.CallbackErrors != 1 {
		t.Errorf("callback errors = %d, want 1", plan.Summary.CallbackErrors)
	}

	// Later resources still run through the chain.
	testSSL := decisionFor(t, plan, "test_ssl")
	if testSSL.CallbackError != "" {
		t.Error("callback failure must be scoped to the failing resource")
	}
}

func TestCollectorConflictPrecedesCallbacks(t *testing.T) {
	c := newTestCollector(t)
	// Default policy: in-memory placement, no shared-library loading
	// permission, no fallback. ssl cannot derive a context.
	p := policy.Default()

	var called bool
	chain := policy.NewCallbackChain()
	err := chain.Register("fail-ssl", func(_ *policy.Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error) {
		if snap.Name == "ssl" {
			called = true
			return nil, errors.New("no ssl for you")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	plan, runErr := c.Run(context.Background(), p, chain, scanner.Scan(p))
	if runErr != nil {
		t.Fatalf("run failed: %v", runErr)
	}

	ssl := decisionFor(t, plan, "ssl")
	if ssl.Conflict == "" {
		t.Fatal("ssl should have a placement conflict under the default policy")
	}
	if ssl.CallbackError != "" {
		t.Errorf("conflicted resource recorded a callback error: %s", ssl.CallbackError)
	}
	if called {
		t.Error("callbacks must not run for a resource whose derivation failed")
	}
	if ssl.Outcome() != telemetry.OutcomeConflict {
		t.Errorf("ssl outcome = %s, want conflict", ssl.Outcome())
	}
}

func TestCollectorCallbackOverride(t *testing.T) {
	c := newTestCollector(t)
	p := policy.Default()

	chain := policy.NewCallbackChain()
	_ = chain.Register("include-tests", func(_ *policy.Policy, snap *packaging.ResourceSnapshot) (*packaging.CollectionContext, error) {
		if snap.Test {
			snap.Context.Include = true
		}
		return nil, nil
	})

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	plan, err := c.Run(context.Background(), p, chain, scanner.Scan(p))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	testSSL := decisionFor(t, plan, "test_ssl")
	if !testSSL.Included() {
		t.Error("callback override should include the test resource")
	}
}

func TestCollectorHonorsCancellation(t *testing.T) {
	c := newTestCollector(t)
	p := policy.Default()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewManifestScanner(testManifest(t), c.tel.Logger)
	if _, err := c.Run(ctx, p, nil, scanner.Scan(p)); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
