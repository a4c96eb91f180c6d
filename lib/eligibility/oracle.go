// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eligibility

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Oracle decides whether a process is a consumer of the privileged
// package's modules.
type Oracle interface {
	IsActivationEligible(process Process) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(process Process) bool

// IsActivationEligible calls f.
func (f OracleFunc) IsActivationEligible(process Process) bool {
	return f(process)
}

// ConsumerList is an Oracle backed by a fixed set of consumer package
// names. The privileged package itself is never eligible, even if
// listed: it reads its own storage directly.
type ConsumerList struct {
	privilegedPackage string
	consumers         map[string]struct{}
}

// consumerFile is the on-disk format.
type consumerFile struct {
	Consumers []string `json:"consumers"`
}

// NewConsumerList creates a list from package names.
func NewConsumerList(privilegedPackage string, consumers ...string) *ConsumerList {
	list := &ConsumerList{
		privilegedPackage: privilegedPackage,
		consumers:         make(map[string]struct{}, len(consumers)),
	}
	for _, consumer := range consumers {
		list.consumers[consumer] = struct{}{}
	}
	return list
}

// ParseConsumerList parses a JSONC consumer list.
func ParseConsumerList(data []byte, privilegedPackage string) (*ConsumerList, error) {
	var parsed consumerFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &parsed); err != nil {
		return nil, fmt.Errorf("parsing consumer list: %w", err)
	}
	for i, consumer := range parsed.Consumers {
		if consumer == "" {
			return nil, fmt.Errorf("parsing consumer list: entry %d is empty", i)
		}
	}
	return NewConsumerList(privilegedPackage, parsed.Consumers...), nil
}

// ReadConsumerList reads and parses a JSONC consumer list file.
func ReadConsumerList(path, privilegedPackage string) (*ConsumerList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	list, err := ParseConsumerList(data, privilegedPackage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// IsActivationEligible reports whether process belongs to a listed
// consumer package.
func (l *ConsumerList) IsActivationEligible(process Process) bool {
	if process.PackageName == "" || process.PackageName == l.privilegedPackage {
		return false
	}
	_, ok := l.consumers[process.PackageName]
	return ok
}

// Len returns the number of listed consumers.
func (l *ConsumerList) Len() int {
	return len(l.consumers)
}
