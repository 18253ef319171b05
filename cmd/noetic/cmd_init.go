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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/noetic/services/mind/config"
)

func runInit(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fail(err)
	}

	cfgPath := filepath.Join(dir, config.DefaultFileName)
	if _, err := os.Stat(cfgPath); err == nil {
		fail(fmt.Errorf("%s already exists", cfgPath))
	}

	// Loading a missing file yields defaults bound to that path.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	cfg.Repository.Path = filepath.Join(dir, ".noetic")
	if err := cfg.Save(); err != nil {
		fail(err)
	}

	fmt.Printf("initialized noetic repository in %s\n", dir)
	fmt.Printf("configuration written to %s\n", cfgPath)
}
