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

	"github.com/AleutianAI/noetic/services/mind/edit"
	"github.com/AleutianAI/noetic/services/mind/model"
	"github.com/AleutianAI/noetic/services/mind/search"
	"github.com/AleutianAI/noetic/services/mind/state"
)

func runNoteNew(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "note new")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	n, out, err := rt.mind.CreateNote(ctx, args[0], noteOffset, edit.CreateNoteParams{
		Name:  args[1],
		Type:  model.NoteType(noteType),
		Depth: noteDepth,
		Tags:  noteTags,
	})
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	if machineOutput() {
		emitJSON(n)
		return
	}
	fmt.Printf("created note %s\n", n.ID)
}

func runNoteMove(cmd *cobra.Command, args []string) {
	mv, err := edit.ParseMove(args[1])
	if err != nil {
		fail(err)
	}

	ctx := context.Background()
	rt, err := openRuntime(ctx, "note move")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	patch, out, err := rt.mind.MoveNote(ctx, args[0], mv)
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	if machineOutput() {
		emitJSON(patch)
		return
	}
	if patch.IsZero() {
		fmt.Println("nothing to move")
		return
	}
	fmt.Printf("moved %s %s\n", args[0], args[1])
}

func runNoteRefactor(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "note refactor")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	out, err := rt.mind.RefactorNote(ctx, args[0], targetKey, "")
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	fmt.Printf("refactored %s into %s\n", args[0], targetKey)
}

func runNoteForget(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "note forget")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	_, out, err := rt.mind.ForgetNote(ctx, args[0])
	if err != nil {
		fail(err)
	}
	exitOutcome(out)
	fmt.Printf("forgot %s\n", args[0])
}

func runSearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "search")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	notes, err := rt.mind.FullText(ctx, args[0], search.Options{
		CaseSensitive: caseExact,
		Scope:         searchScope,
	})
	if err != nil {
		fail(err)
	}
	printNotes(notes)
}

func runRemind(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "remind")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	note, err := rt.mind.Remind(args[0])
	if err != nil {
		fail(err)
	}
	if machineOutput() {
		emitJSON(note)
		return
	}
	fmt.Printf("%s  [%s]  %s\n", note.ID, note.Type, note.Name)
	for _, block := range note.Description {
		fmt.Println(block)
	}
}

func runDwell(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "dwell")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	printNotes(rt.mind.DwellList())
}

func runAssociate(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "associate")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	// A fresh process starts with no dream state; run one first so the
	// leaderboard has signatures to rank.
	if rt.mind.Phase() == state.Sleeping {
		handle, out := rt.mind.Think(ctx)
		exitOutcome(out)
		if ok, err := handle.Await(ctx); err != nil || !ok {
			fail(fmt.Errorf("the dream failed; cannot rank associations"))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	board, err := rt.mind.AssociationsLeaderboard(ctx, args[0]).Await(waitCtx)
	if err != nil {
		fail(err)
	}

	if machineOutput() {
		emitJSON(board)
		return
	}
	for _, entry := range board {
		fmt.Printf("%.3f  %s  %s\n", entry.Score, entry.Note.ID, entry.Note.Name)
	}
}

func runTriples(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "triples")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	facts := rt.mind.Triples()
	if machineOutput() {
		emitJSON(facts)
		return
	}
	for _, f := range facts {
		fmt.Printf("%s %s %s (%.3f)\n", f.SubjectID, f.Predicate, f.ObjectID, f.Score)
	}
}

func runTag(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "tag")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	printNotes(rt.mind.GetTaggedNotes(args[0]))
}
