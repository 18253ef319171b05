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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/noetic/services/mind/edit"
	"github.com/AleutianAI/noetic/services/mind/model"
)

func runOutlineNew(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "outline new")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	o, out, err := rt.mind.CreateOutline(ctx, edit.CreateOutlineParams{
		Name:       args[0],
		Type:       model.OutlineType(outlineType),
		Importance: importance,
		Urgency:    urgency,
		Tags:       outlineTags,
	})
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	if machineOutput() {
		emitJSON(o)
		return
	}
	fmt.Printf("created outline %s\n", o.Key)
}

func runOutlineClone(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "outline clone")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	o, out, err := rt.mind.CloneOutline(ctx, args[0])
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	if machineOutput() {
		emitJSON(o)
		return
	}
	fmt.Printf("cloned into %s\n", o.Key)
}

func runOutlineForget(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "outline forget")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	limboKey, out, err := rt.mind.ForgetOutline(ctx, args[0])
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	if machineOutput() {
		emitJSON(map[string]string{"limbo_key": limboKey})
		return
	}
	fmt.Printf("moved to limbo as %s\n", limboKey)
}

func runOutlineList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "outline list")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	names := rt.mind.OutlineNames()
	if machineOutput() {
		emitJSON(names)
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runOutlineShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "outline show")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	o, ok := rt.mind.Memory().Outline(args[0])
	if !ok {
		fail(fmt.Errorf("outline %s not found", args[0]))
	}
	printOutline(o)
}
