package main

import (
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	r := newRegistry()

	// Assert no codes exist
	if r.len() != 0 {
		t.Fatal("Error in test environment, Expectation: 0, Received:", r.len())
	}

	if _, ok := r.register("conn-a", "monkey"); ok {
		t.Fatal("Expectation: no previous code for a new connection")
	}
	if r.len() != 1 {
		t.Fatal("Expectation: 1, Received:", r.len())
	}
	id, ok := r.lookup("monkey")
	if !ok || id != "conn-a" {
		t.Fatal("Expectation: conn-a, Received:", id, ok)
	}
}

func TestRegistryReRegister(t *testing.T) {
	r := newRegistry()
	r.register("conn-a", "monkey")

	prev, ok := r.register("conn-a", "banana")
	if !ok || prev != "monkey" {
		t.Fatal("Expectation: previous code monkey, Received:", prev, ok)
	}
	if r.len() != 1 {
		t.Fatal("Expectation: 1, Received:", r.len())
	}
	if _, ok := r.lookup("monkey"); ok {
		t.Fatal("Expectation: old code should no longer resolve")
	}
	if id, _ := r.lookup("banana"); id != "conn-a" {
		t.Fatal("Expectation: conn-a, Received:", id)
	}

	// Registering the same code again changes nothing
	r.register("conn-a", "banana")
	if len(r.byCode["banana"]) != 1 {
		t.Fatal("Expectation: 1 index entry, Received:", len(r.byCode["banana"]))
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := newRegistry()
	r.register("conn-a", "monkey")

	code, ok := r.unregister("conn-a")
	if !ok || code != "monkey" {
		t.Fatal("Expectation: monkey, Received:", code, ok)
	}
	if _, ok := r.lookup("monkey"); ok {
		t.Fatal("ERR: code still resolves after unregister")
	}
	if len(r.byCode) != 0 {
		t.Fatal("Expectation: empty code index, Received:", r.byCode)
	}

	// Unregistering an absent connection is a no-op
	if _, ok := r.unregister("conn-a"); ok {
		t.Fatal("Expectation: second unregister should find nothing")
	}
	if r.len() != 0 {
		t.Fatal("Expectation: 0, Received:", r.len())
	}
}

func TestRegistryDuplicateCodes(t *testing.T) {
	r := newRegistry()
	r.register("conn-a", "monkey")
	r.register("conn-b", "monkey")
	r.register("conn-c", "monkey")

	// First registration wins
	if id, _ := r.lookup("monkey"); id != "conn-a" {
		t.Fatal("Expectation: conn-a, Received:", id)
	}

	r.unregister("conn-a")
	if id, _ := r.lookup("monkey"); id != "conn-b" {
		t.Fatal("Expectation: conn-b, Received:", id)
	}

	// Moving away from a code and back goes to the end of the line
	r.register("conn-b", "banana")
	r.register("conn-b", "monkey")
	if id, _ := r.lookup("monkey"); id != "conn-c" {
		t.Fatal("Expectation: conn-c, Received:", id)
	}
}
