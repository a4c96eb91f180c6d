// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eligibility

import "os"

const (
	// PerUserRange is the number of UIDs reserved for each user.
	PerUserRange = 100000

	FirstApplicationID = 10000
	LastApplicationID  = 19999

	FirstIsolatedID = 99000
	LastIsolatedID  = 99999
)

// Process describes the process asking to activate.
type Process struct {
	UID         int
	PackageName string
	ProcessName string
}

// Current describes the calling process.
func Current(packageName, processName string) Process {
	return Process{
		UID:         os.Getuid(),
		PackageName: packageName,
		ProcessName: processName,
	}
}

// UserID returns the user the process runs as.
func (p Process) UserID() int {
	return p.UID / PerUserRange
}

// AppID returns the per-user application id.
func (p Process) AppID() int {
	return p.UID % PerUserRange
}

// IsApplication reports whether the process is a regular application
// process. Isolated and system processes are not.
func (p Process) IsApplication() bool {
	appID := p.AppID()
	return appID >= FirstApplicationID && appID <= LastApplicationID
}

// IsIsolated reports whether the process runs under an isolated UID.
func (p Process) IsIsolated() bool {
	appID := p.AppID()
	return appID >= FirstIsolatedID && appID <= LastIsolatedID
}
