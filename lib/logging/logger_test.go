// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNonTerminalWritesJSON(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelInfo)
	logger.Info("file proxy listening", "path", "/run/fdproxy/fileproxy.sock")

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buffer.String())
	}
	if record["msg"] != "file proxy listening" || record["path"] != "/run/fdproxy/fileproxy.sock" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestTerminalWritesText(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, slog.LevelInfo)
	logger.Info("module proxy enabled", "prefix", "/data/user_de/0/com.example.host/")

	output := buffer.String()
	if !strings.Contains(output, `msg="module proxy enabled"`) || !strings.Contains(output, "prefix=/data/user_de/0/com.example.host/") {
		t.Errorf("unexpected text output: %q", output)
	}
}

func TestLevelFilters(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelWarn)
	logger.Info("dropped")
	if buffer.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buffer.String())
	}
	logger.Warn("kept")
	if buffer.Len() == 0 {
		t.Error("warn record not written at warn level")
	}
}
