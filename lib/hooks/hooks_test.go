// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hooks

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bureau-foundation/fdproxy/lib/testutil"
)

// resetHooks removes any installed hooks when the test ends.
func resetHooks(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetClassLoaderPathHook(nil)
		SetLastModifiedHook(nil)
	})
}

func TestModifyClassLoaderPathWithoutHook(t *testing.T) {
	resetHooks(t)
	got, err := ModifyClassLoaderPath("/a.jar:/b.jar", false)
	if err != nil || got != "/a.jar:/b.jar" {
		t.Errorf("ModifyClassLoaderPath = %q, %v; want input unchanged", got, err)
	}
}

func TestModifyClassLoaderPathDispatches(t *testing.T) {
	resetHooks(t)
	var gotNative bool
	SetClassLoaderPathHook(func(pathList string, nativeLibraries bool) (string, error) {
		gotNative = nativeLibraries
		return "rewritten:" + pathList, nil
	})

	got, err := ModifyClassLoaderPath("/a.apk", true)
	if err != nil {
		t.Fatalf("ModifyClassLoaderPath: %v", err)
	}
	if got != "rewritten:/a.apk" || !gotNative {
		t.Errorf("got %q (native=%v)", got, gotNative)
	}
}

func TestFileModTimeFallsBackToStat(t *testing.T) {
	resetHooks(t)
	path := testutil.WriteModule(t, t.TempDir(), "plain.jar", "x")
	modified := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	// No hook installed.
	got, err := FileModTime(path)
	if err != nil || !got.Equal(modified) {
		t.Fatalf("FileModTime without hook = %v, %v; want %v", got, err, modified)
	}

	// A hook that declines the path.
	SetLastModifiedHook(func(string) (time.Time, error) { return time.Time{}, nil })
	got, err = FileModTime(path)
	if err != nil || !got.Equal(modified) {
		t.Fatalf("FileModTime with declining hook = %v, %v; want %v", got, err, modified)
	}
}

func TestFileModTimeUsesHookAnswer(t *testing.T) {
	resetHooks(t)
	answer := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	SetLastModifiedHook(func(string) (time.Time, error) { return answer, nil })

	// The path does not exist; the hook's answer must win.
	got, err := FileModTime("/nonexistent/privileged/module.apk")
	if err != nil || !got.Equal(answer) {
		t.Errorf("FileModTime = %v, %v; want %v", got, err, answer)
	}
}

func TestFileModTimePropagatesHookError(t *testing.T) {
	resetHooks(t)
	failure := errors.New("file proxy service unavailable")
	SetLastModifiedHook(func(string) (time.Time, error) { return time.Time{}, failure })

	if _, err := FileModTime("/x"); !errors.Is(err, failure) {
		t.Errorf("FileModTime: err = %v, want %v", err, failure)
	}
}
