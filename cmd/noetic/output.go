// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/outcome"
)

// Exit codes.
const (
	exitSuccess = 0
	exitRefused = 1
	exitError   = 2
)

// machineOutput reports whether results should be JSON: either the
// --json flag or a non-terminal stdout.
func machineOutput() bool {
	if jsonOutput {
		return true
	}
	return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// emitJSON writes data as indented JSON to stdout.
func emitJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		fail(err)
	}
}

// fail prints the error and exits with the infrastructure code.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "noetic: %v\n", err)
	os.Exit(exitError)
}

// exitOutcome prints a refusal or fault and exits; accepted outcomes
// return so the caller can print its result.
func exitOutcome(out outcome.Outcome) {
	if out.Accepted() {
		return
	}
	if denial, ok := out.Denial(); ok {
		if machineOutput() {
			emitJSON(map[string]string{
				"outcome": "denied",
				"reason":  denial.Reason.String(),
				"detail":  denial.Detail,
			})
		} else {
			fmt.Fprintf(os.Stderr, "refused: %s (%s)\n", denial.Reason, denial.Detail)
		}
		os.Exit(exitRefused)
	}
	if fault, ok := out.Fault(); ok {
		if machineOutput() {
			emitJSON(map[string]string{
				"outcome": "fault",
				"kind":    fault.Kind.String(),
				"detail":  fault.Detail,
			})
		} else {
			fmt.Fprintf(os.Stderr, "fault: %s (%s)\n", fault.Kind, fault.Detail)
		}
		os.Exit(exitRefused)
	}
}

// printNotes renders a note list as a table, or JSON for machines.
func printNotes(notes []*model.Note) {
	if machineOutput() {
		emitJSON(notes)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tDEPTH\tNAME")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", n.ID, n.Type, n.Depth, n.Name)
	}
	w.Flush()
}

// printOutline renders one outline with indented notes.
func printOutline(o *model.Outline) {
	if machineOutput() {
		emitJSON(o)
		return
	}
	fmt.Printf("%s  [%s]  %s\n", o.Key, o.Type, o.Name)
	if len(o.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(o.Tags, ", "))
	}
	for _, n := range o.Notes {
		fmt.Printf("%s- %s  (%s)\n", strings.Repeat("  ", n.Depth+1), n.Name, n.ID)
	}
}
