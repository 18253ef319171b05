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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath  string
	jsonOutput  bool
	outlineType string
	outlineTags []string
	importance  int
	urgency     int
	noteType    string
	noteTags    []string
	noteOffset  int
	noteDepth   int
	targetKey   string
	caseExact   bool
	searchScope string
	saKeyPath   string
	watchRepo   bool

	rootCmd = &cobra.Command{
		Use:   "noetic",
		Short: "A cli to manage your personal noetic knowledge repository",
		Long: `Noetic keeps outlines of notes on your own machine, searches them,
				and dreams up associations between them with a local or
				remote inference engine.`,
	}

	// --- Repository lifecycle ---
	initCmd = &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new noetic repository with a default configuration",
		Run:   runInit, // Defined in cmd_init.go
	}

	// --- Mind lifecycle ---
	learnCmd = &cobra.Command{
		Use:   "learn",
		Short: "Reload the knowledge graph from the repository store",
		Run:   runLearn, // Defined in cmd_mind.go
	}
	thinkCmd = &cobra.Command{
		Use:   "think",
		Short: "Dream over the graph, then answer association queries",
		Run:   runThink, // Defined in cmd_mind.go
	}
	sleepCmd = &cobra.Command{
		Use:   "sleep",
		Short: "Release derived state and return the mind to sleeping",
		Run:   runSleep, // Defined in cmd_mind.go
	}
	amnesiaCmd = &cobra.Command{
		Use:   "amnesia",
		Short: "DANGER: Wipe the repository store, limbo included",
		Run:   runAmnesia, // Defined in cmd_mind.go
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the mind's phase and repository statistics",
		Run:   runStatus, // Defined in cmd_mind.go
	}

	// --- Outlines ---
	outlineCmd = &cobra.Command{
		Use:   "outline",
		Short: "Manage outlines, the top-level containers of notes",
	}
	outlineNewCmd = &cobra.Command{
		Use:   "new [name]",
		Short: "Create a new outline",
		Args:  cobra.ExactArgs(1),
		Run:   runOutlineNew, // Defined in cmd_outline.go
	}
	outlineCloneCmd = &cobra.Command{
		Use:   "clone [key]",
		Short: "Deep-copy an outline under a fresh key",
		Args:  cobra.ExactArgs(1),
		Run:   runOutlineClone, // Defined in cmd_outline.go
	}
	outlineForgetCmd = &cobra.Command{
		Use:   "forget [key]",
		Short: "Move an outline to limbo (recoverable until amnesia)",
		Args:  cobra.ExactArgs(1),
		Run:   runOutlineForget, // Defined in cmd_outline.go
	}
	outlineListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all outlines",
		Run:   runOutlineList, // Defined in cmd_outline.go
	}
	outlineShowCmd = &cobra.Command{
		Use:   "show [key]",
		Short: "Print one outline with its notes",
		Args:  cobra.ExactArgs(1),
		Run:   runOutlineShow, // Defined in cmd_outline.go
	}

	// --- Notes ---
	noteCmd = &cobra.Command{
		Use:   "note",
		Short: "Manage notes inside outlines",
	}
	noteNewCmd = &cobra.Command{
		Use:   "new [outline-key] [name]",
		Short: "Create a note in an outline",
		Args:  cobra.ExactArgs(2),
		Run:   runNoteNew, // Defined in cmd_note.go
	}
	noteMoveCmd = &cobra.Command{
		Use:   "move [note-id] [up|down|first|last|promote|demote]",
		Short: "Reorder a note among its siblings or shift its depth",
		Args:  cobra.ExactArgs(2),
		Run:   runNoteMove, // Defined in cmd_note.go
	}
	noteRefactorCmd = &cobra.Command{
		Use:   "refactor [note-id]",
		Short: "Move a note and its children into another outline",
		Args:  cobra.ExactArgs(1),
		Run:   runNoteRefactor, // Defined in cmd_note.go
	}
	noteForgetCmd = &cobra.Command{
		Use:   "forget [note-id]",
		Short: "Remove a note from its outline",
		Args:  cobra.ExactArgs(1),
		Run:   runNoteForget, // Defined in cmd_note.go
	}

	// --- Queries ---
	searchCmd = &cobra.Command{
		Use:   "search [pattern]",
		Short: "Full-text search across all notes",
		Args:  cobra.ExactArgs(1),
		Run:   runSearch, // Defined in cmd_note.go
	}
	remindCmd = &cobra.Command{
		Use:   "remind [note-id]",
		Short: "Fetch one note and mark it recently visited",
		Args:  cobra.ExactArgs(1),
		Run:   runRemind, // Defined in cmd_note.go
	}
	dwellCmd = &cobra.Command{
		Use:   "dwell",
		Short: "List recently visited notes, newest first",
		Run:   runDwell, // Defined in cmd_note.go
	}
	associateCmd = &cobra.Command{
		Use:   "associate [note-id]",
		Short: "Rank the notes most related to the given note",
		Args:  cobra.ExactArgs(1),
		Run:   runAssociate, // Defined in cmd_note.go
	}
	triplesCmd = &cobra.Command{
		Use:   "triples",
		Short: "Print the facts inferred by the last dream",
		Run:   runTriples, // Defined in cmd_note.go
	}
	tagCmd = &cobra.Command{
		Use:   "tag [tag]",
		Short: "List the notes carrying a tag",
		Args:  cobra.ExactArgs(1),
		Run:   runTag, // Defined in cmd_note.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with live repository watching",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Backup ---
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the repository to disk and, optionally, GCS",
		Run:   runBackup, // Defined in cmd_backup.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to noetic.yaml (default: ./noetic.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Force JSON output even on a terminal")

	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(thinkCmd)
	rootCmd.AddCommand(sleepCmd)
	rootCmd.AddCommand(amnesiaCmd)
	amnesiaCmd.Flags().Bool("force", false, "Required to confirm wiping all data.")
	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(outlineCmd)
	outlineCmd.AddCommand(outlineNewCmd)
	outlineNewCmd.Flags().StringVar(&outlineType, "type", "outline",
		"Outline type: outline, notebook, or journal")
	outlineNewCmd.Flags().StringSliceVar(&outlineTags, "tag", nil, "Tags for the outline (repeatable)")
	outlineNewCmd.Flags().IntVar(&importance, "importance", 0, "Importance rank")
	outlineNewCmd.Flags().IntVar(&urgency, "urgency", 0, "Urgency rank")
	outlineCmd.AddCommand(outlineCloneCmd)
	outlineCmd.AddCommand(outlineForgetCmd)
	outlineCmd.AddCommand(outlineListCmd)
	outlineCmd.AddCommand(outlineShowCmd)

	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteNewCmd)
	noteNewCmd.Flags().StringVar(&noteType, "type", "", "Note type: note, action, question, or conclusion")
	noteNewCmd.Flags().StringSliceVar(&noteTags, "tag", nil, "Tags for the note (repeatable)")
	noteNewCmd.Flags().IntVar(&noteOffset, "offset", 0, "Insertion position (0 appends)")
	noteNewCmd.Flags().IntVar(&noteDepth, "depth", 0, "Indentation depth")
	noteCmd.AddCommand(noteMoveCmd)
	noteCmd.AddCommand(noteRefactorCmd)
	noteRefactorCmd.Flags().StringVar(&targetKey, "into", "", "Destination outline key (required)")
	noteRefactorCmd.MarkFlagRequired("into")
	noteCmd.AddCommand(noteForgetCmd)

	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&caseExact, "case-sensitive", false, "Match case exactly")
	searchCmd.Flags().StringVar(&searchScope, "outline", "", "Restrict the search to one outline key")
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(dwellCmd)
	rootCmd.AddCommand(associateCmd)
	rootCmd.AddCommand(triplesCmd)
	rootCmd.AddCommand(tagCmd)

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&watchRepo, "watch", true,
		"Relearn automatically when the repository directory changes")

	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringVar(&saKeyPath, "sa-key", "",
		"Service account key file for GCS upload (default: ambient credentials)")
}
