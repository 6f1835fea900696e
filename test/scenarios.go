// Package test holds integration scenarios run by cmd/testrunner against a
// live levelgen server.
package test

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/server"
	"github.com/lawnchairsociety/levelforge/internal/testclient"
)

// uniqueCounter provides unique client names within a single run
var uniqueCounter uint64

func uniqueName(base string) string {
	return fmt.Sprintf("%s-%d", base, atomic.AddUint64(&uniqueCounter, 1))
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// generationTimeout bounds a full generation stream, pacing included
var generationTimeout = 30 * time.Second

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// connect opens a client, failing the test on error
func connect(testName, base, serverAddr string) (*testclient.TestClient, *TestResult) {
	name := uniqueName(base)
	logAction(testName, fmt.Sprintf("Connecting as '%s'...", name))
	client, err := testclient.NewTestClient(name, serverAddr)
	if err != nil {
		r := fail(testName, "Failed to connect: %v", err)
		return nil, &r
	}
	return client, nil
}

// generate requests a level and waits for it to finish. The done event is
// returned, or an error describing what arrived instead.
func generate(client *testclient.TestClient, seed int64, rooms int) (*server.Event, error) {
	client.ClearEvents()
	if err := client.Generate(seed, rooms); err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}

	ev, ok := client.WaitForEvent(generationTimeout, server.EventDone, server.EventFailed, server.EventError)
	if !ok {
		return nil, fmt.Errorf("no result within %s", generationTimeout)
	}
	if ev.Type != server.EventDone {
		return nil, fmt.Errorf("%s: %s", ev.Type, ev.Error)
	}
	return ev, nil
}

// =============================================================================
// Test Runner
// =============================================================================

// testEntry holds a test function and its name
type testEntry struct {
	Name string
	Func func(string) TestResult
}

// getAllTests returns all test entries in order
func getAllTests() []testEntry {
	return []testEntry{
		// Group 1: Connection
		{"Basic Connection", TestBasicConnection},
		{"Invalid Requests", TestInvalidRequests},

		// Group 2: Generation
		{"Generate Level", TestGenerateLevel},
		{"Deterministic Seed", TestDeterministicSeed},
		{"Multiple Clients Generating", TestMultipleClientsGenerating},
		{"Regenerate", TestRegenerate},

		// Group 3: Walking & Output
		{"Walk Level", TestWalkLevel},
		{"Map And YAML", TestMapAndYAML},
		{"Save Layout", TestSaveLayout},
	}
}

// RunAllTests runs all integration tests
func RunAllTests(serverAddr string) []TestResult {
	results := make([]TestResult, 0)
	for _, t := range getAllTests() {
		results = append(results, t.Func(serverAddr))
	}
	return results
}

// GetTestNames returns the names of all available tests
func GetTestNames() []string {
	tests := getAllTests()
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}
	return names
}

// RunFilteredTests runs only tests whose names contain the filter string (case-insensitive)
func RunFilteredTests(serverAddr string, filter string) []TestResult {
	results := make([]TestResult, 0)
	filterLower := strings.ToLower(filter)

	for _, t := range getAllTests() {
		if strings.Contains(strings.ToLower(t.Name), filterLower) {
			results = append(results, t.Func(serverAddr))
		}
	}

	return results
}

// PrintResults prints all test results in a formatted way
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
