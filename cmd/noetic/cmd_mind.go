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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runLearn(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "learn")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	// openRuntime already learned; report what came back.
	stats := rt.mind.Statistics()
	if machineOutput() {
		emitJSON(stats)
		return
	}
	fmt.Printf("learned %d outlines, %d notes\n", stats.Outlines, stats.Notes)
}

func runThink(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "think")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	start := time.Now()
	handle, out := rt.mind.Think(ctx)
	exitOutcome(out)
	ok, err := handle.Await(ctx)
	if err != nil {
		fail(err)
	}
	if !ok {
		fmt.Println("the dream failed; the mind is sleeping again")
		return
	}

	if machineOutput() {
		emitJSON(map[string]any{
			"phase":   rt.mind.Phase().String(),
			"triples": len(rt.mind.Triples()),
		})
		return
	}
	fmt.Printf("dreamed for %s, inferred %d facts; the mind is thinking\n",
		time.Since(start).Round(time.Millisecond), len(rt.mind.Triples()))
}

func runSleep(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "sleep")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	out, err := rt.mind.Sleep(ctx)
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	fmt.Println("the mind is sleeping")
}

func runAmnesia(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	if !force {
		fail(fmt.Errorf("amnesia wipes every outline, limbo included; re-run with --force"))
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, "amnesia")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	out, err := rt.mind.Amnesia(ctx)
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	fmt.Println("forgotten")
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "status")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	stats := rt.mind.Statistics()
	if machineOutput() {
		emitJSON(stats)
		return
	}
	fmt.Printf("phase:     %s\n", stats.Phase)
	fmt.Printf("outlines:  %d\n", stats.Outlines)
	fmt.Printf("notes:     %d\n", stats.Notes)
	fmt.Printf("dwell:     %d\n", stats.DwellSize)
	fmt.Printf("epoch:     %d\n", stats.Epoch)
}
