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

	"github.com/AleutianAI/noetic/services/mind/backup"
)

func runBackup(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	rt, err := openRuntime(ctx, "backup")
	if err != nil {
		fail(err)
	}
	defer rt.close()

	dir := rt.cfg.Backup.Dir
	bucket := rt.cfg.Backup.GCSBucket
	if dir == "" && bucket == "" {
		fail(fmt.Errorf("no backup destination configured; set backup.dir or backup.gcs_bucket"))
	}

	exporter := backup.NewExporter(rt.mem, rt.logger)
	written := make(map[string]string)

	if dir != "" {
		path, err := exporter.WriteLocal(dir)
		if err != nil {
			fail(err)
		}
		written["local"] = path
	}

	if bucket != "" {
		client, err := backup.NewGCSClient(ctx, bucket, saKeyPath)
		if err != nil {
			fail(err)
		}
		defer client.Close()

		object, err := exporter.WriteGCS(ctx, client)
		if err != nil {
			fail(err)
		}
		written["gcs"] = fmt.Sprintf("gs://%s/%s", bucket, object)
	}

	if machineOutput() {
		emitJSON(written)
		return
	}
	for dest, where := range written {
		fmt.Printf("%s: %s\n", dest, where)
	}
}
