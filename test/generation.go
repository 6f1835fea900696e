package test

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/server"
)

// =============================================================================
// Group 1: Connection
// =============================================================================

// TestBasicConnection checks that a fresh client can talk to the server and
// is told there is nothing to walk yet.
func TestBasicConnection(serverAddr string) TestResult {
	const testName = "Basic Connection"

	client, res := connect(testName, "Conn", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	logAction(testName, "Requesting a snapshot before generating")
	client.Send(server.Request{Type: server.RequestSnapshot})

	ev, ok := client.WaitForEvent(2*time.Second, server.EventError, server.EventVisibility)
	logResult(testName, ok, "Received a reply")
	if !ok {
		return fail(testName, "No reply from server")
	}
	if ev.Type != server.EventError || !strings.Contains(ev.Error, "no level") {
		return fail(testName, "Expected a 'no level' error, got %s %q", ev.Type, ev.Error)
	}

	return TestResult{Name: testName, Passed: true, Message: "Connected and got the expected error"}
}

// TestInvalidRequests checks that bad parameters are refused without
// dropping the connection.
func TestInvalidRequests(serverAddr string) TestResult {
	const testName = "Invalid Requests"

	client, res := connect(testName, "Invalid", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	shape := 1.5
	requests := []server.Request{
		{Type: server.RequestGenerate, LevelShape: &shape},
		{Type: "teleport"},
	}

	for _, req := range requests {
		client.ClearEvents()
		logAction(testName, fmt.Sprintf("Sending %q request", req.Type))
		client.Send(req)

		ev, ok := client.WaitForEvent(2*time.Second, server.EventError, server.EventDone)
		logResult(testName, ok && ev.Type == server.EventError, fmt.Sprintf("%q rejected", req.Type))
		if !ok || ev.Type != server.EventError {
			return fail(testName, "Request %q was not rejected", req.Type)
		}
	}

	if client.Disconnected() {
		return fail(testName, "Server closed the connection after %d rejections", len(requests))
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("%d bad requests rejected", len(requests))}
}

// =============================================================================
// Group 2: Generation
// =============================================================================

// TestGenerateLevel streams one level and checks the room events add up.
func TestGenerateLevel(serverAddr string) TestResult {
	const testName = "Generate Level"

	client, res := connect(testName, "Gen", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	logAction(testName, "Generating seed 42 with 12 rooms")
	done, err := generate(client, 42, 12)
	if err != nil {
		return fail(testName, "Generation failed: %v", err)
	}

	rooms := client.CountEvents(server.EventRoom)
	logResult(testName, rooms == 12, fmt.Sprintf("Streamed %d room events", rooms))
	if done.Summary == nil || done.Summary.Rooms != 12 || rooms != 12 {
		return fail(testName, "Expected 12 rooms, summary %+v with %d room events", done.Summary, rooms)
	}
	if done.Summary.Edges < done.Summary.Rooms-1 {
		return fail(testName, "Only %d edges for %d rooms", done.Summary.Edges, done.Summary.Rooms)
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("12 rooms, %d edges, %d ticks", done.Summary.Edges, done.Summary.Ticks)}
}

// TestDeterministicSeed generates the same seed on two clients at once and
// compares fingerprints.
func TestDeterministicSeed(serverAddr string) TestResult {
	const testName = "Deterministic Seed"

	var fingerprints [2]string
	var errs [2]error
	var wg sync.WaitGroup

	for i := range fingerprints {
		client, res := connect(testName, "Seed", serverAddr)
		if res != nil {
			return *res
		}
		defer client.Close()

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			done, err := generate(client, 2024, 15)
			if err != nil {
				errs[i] = err
				return
			}
			fingerprints[i] = done.Summary.Fingerprint
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fail(testName, "Client %d failed: %v", i, err)
		}
	}

	same := fingerprints[0] == fingerprints[1]
	logResult(testName, same, fmt.Sprintf("Fingerprints %.12s / %.12s", fingerprints[0], fingerprints[1]))
	if !same {
		return fail(testName, "Fingerprints differ: %s vs %s", fingerprints[0], fingerprints[1])
	}

	return TestResult{Name: testName, Passed: true, Message: "Same seed produced the same layout"}
}

// TestMultipleClientsGenerating runs several generations concurrently
func TestMultipleClientsGenerating(serverAddr string) TestResult {
	const testName = "Multiple Clients Generating"
	const numClients = 3

	var wg sync.WaitGroup
	errs := make([]error, numClients)

	for i := 0; i < numClients; i++ {
		client, res := connect(testName, "Multi", serverAddr)
		if res != nil {
			return *res
		}
		defer client.Close()

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = generate(client, int64(100+i), 20)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fail(testName, "Client %d failed: %v", i, err)
		}
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("%d clients generated concurrently", numClients)}
}

// TestRegenerate generates twice on one connection; the second level
// replaces the first.
func TestRegenerate(serverAddr string) TestResult {
	const testName = "Regenerate"

	client, res := connect(testName, "Regen", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	first, err := generate(client, 1, 5)
	if err != nil {
		return fail(testName, "First generation failed: %v", err)
	}
	second, err := generate(client, 2, 8)
	if err != nil {
		return fail(testName, "Second generation failed: %v", err)
	}

	if second.Summary.Rooms != 8 || second.Summary.Seed != 2 {
		return fail(testName, "Second summary %+v", second.Summary)
	}
	if first.Summary.Fingerprint == second.Summary.Fingerprint {
		return fail(testName, "Both levels share fingerprint %s", first.Summary.Fingerprint)
	}

	return TestResult{Name: testName, Passed: true, Message: "Second level replaced the first"}
}

// =============================================================================
// Group 3: Walking & Output
// =============================================================================

// TestWalkLevel enters and leaves a neighbouring room and follows the
// visibility snapshots.
func TestWalkLevel(serverAddr string) TestResult {
	const testName = "Walk Level"

	client, res := connect(testName, "Walk", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	if _, err := generate(client, 7, 6); err != nil {
		return fail(testName, "Generation failed: %v", err)
	}
	initial, ok := client.WaitForEvent(2*time.Second, server.EventVisibility)
	if !ok || initial.Visibility == nil {
		return fail(testName, "No visibility snapshot after generation")
	}
	if initial.Visibility.Current != 0 {
		return fail(testName, "Player starts in room %d, want 0", initial.Visibility.Current)
	}

	steps := []struct {
		req     server.Request
		current int
	}{
		{server.Request{Type: server.RequestEnter, Room: 1}, 1},
		{server.Request{Type: server.RequestExit, Room: 1}, 0},
	}
	for _, step := range steps {
		client.ClearEvents()
		logAction(testName, fmt.Sprintf("%s room %d", step.req.Type, step.req.Room))
		client.Send(step.req)

		ev, ok := client.WaitForEvent(2*time.Second, server.EventVisibility, server.EventError)
		if !ok || ev.Type != server.EventVisibility {
			return fail(testName, "%s room %d: no snapshot", step.req.Type, step.req.Room)
		}
		logResult(testName, ev.Visibility.Current == step.current, fmt.Sprintf("Current room %d", ev.Visibility.Current))
		if ev.Visibility.Current != step.current {
			return fail(testName, "After %s current room is %d, want %d", step.req.Type, ev.Visibility.Current, step.current)
		}
	}

	return TestResult{Name: testName, Passed: true, Message: "Entered and left room 1"}
}

// TestMapAndYAML fetches both renderings of a generated level
func TestMapAndYAML(serverAddr string) TestResult {
	const testName = "Map And YAML"

	client, res := connect(testName, "Map", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	if _, err := generate(client, 99, 10); err != nil {
		return fail(testName, "Generation failed: %v", err)
	}

	client.ClearEvents()
	client.Send(server.Request{Type: server.RequestMap, Details: true})
	ev, ok := client.WaitForEvent(2*time.Second, server.EventMap, server.EventError)
	if !ok || ev.Type != server.EventMap || !strings.Contains(ev.Text, "[S]") {
		return fail(testName, "Map missing the start room")
	}

	client.ClearEvents()
	client.Send(server.Request{Type: server.RequestYAML})
	ev, ok = client.WaitForEvent(2*time.Second, server.EventYAML, server.EventError)
	if !ok || ev.Type != server.EventYAML || !strings.Contains(ev.Text, "seed: 99") {
		return fail(testName, "YAML missing the seed")
	}

	return TestResult{Name: testName, Passed: true, Message: "Map and YAML rendered"}
}

// TestSaveLayout saves a level twice. A server without a database answers
// with an error, which also passes.
func TestSaveLayout(serverAddr string) TestResult {
	const testName = "Save Layout"

	client, res := connect(testName, "Save", serverAddr)
	if res != nil {
		return *res
	}
	defer client.Close()

	if _, err := generate(client, 5, 6); err != nil {
		return fail(testName, "Generation failed: %v", err)
	}

	var ids []int64
	for i := 0; i < 2; i++ {
		client.ClearEvents()
		client.Send(server.Request{Type: server.RequestSave})
		ev, ok := client.WaitForEvent(5*time.Second, server.EventSaved, server.EventError)
		if !ok {
			return fail(testName, "No reply to save")
		}
		if ev.Type == server.EventError {
			if strings.Contains(ev.Error, "disabled") {
				return TestResult{Name: testName, Passed: true, Message: "Saving disabled on this server"}
			}
			return fail(testName, "Save failed: %s", ev.Error)
		}
		ids = append(ids, ev.LayoutID)
	}

	if ids[0] == 0 || ids[0] != ids[1] {
		return fail(testName, "Save ids %v, want one stored layout", ids)
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("Stored as layout %d", ids[0])}
}
