// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privpath

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		dataRoot    string
		userID      int
		packageName string
		want        string
		wantErr     bool
	}{
		{"primary user", "/data/user_de", 0, "com.example.host", "/data/user_de/0/com.example.host/", false},
		{"secondary user", "/data/user_de", 10, "com.example.host", "/data/user_de/10/com.example.host/", false},
		{"root cleaned", "/data/user_de/", 0, "com.example.host", "/data/user_de/0/com.example.host/", false},
		{"relative root", "data/user_de", 0, "com.example.host", "", true},
		{"negative user", "/data/user_de", -1, "com.example.host", "", true},
		{"empty package", "/data/user_de", 0, "", "", true},
		{"package with separator", "/data/user_de", 0, "com.example/host", "", true},
		{"dot-dot package", "/data/user_de", 0, "..", "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			prefix, err := New(test.dataRoot, test.userID, test.packageName)
			if test.wantErr {
				if err == nil {
					t.Fatalf("New succeeded with %q, want error", prefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if prefix.String() != test.want {
				t.Errorf("prefix = %q, want %q", prefix, test.want)
			}
		})
	}
}

func TestIsPrivileged(t *testing.T) {
	prefix, err := New("/data/user_de", 0, "com.example.host")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/data/user_de/0/com.example.host/app_chimera/m/00000001/module.apk", true},
		{"/data/user_de/0/com.example.host/", true},
		{"/data/user_de/0/com.example.host", false},
		{"/data/user_de/0/com.example.hostile/module.apk", false},
		{"/data/user_de/10/com.example.host/module.apk", false},
		{"/data/app/com.example.consumer/base.apk", false},
		{"", false},
	}
	for _, test := range tests {
		if got := prefix.IsPrivileged(test.path); got != test.want {
			t.Errorf("IsPrivileged(%q) = %v, want %v", test.path, got, test.want)
		}
	}
}

func TestZeroPrefixMatchesNothing(t *testing.T) {
	var prefix Prefix
	for _, path := range []string{"", "/", "/data/user_de/0/com.example.host/module.apk"} {
		if prefix.IsPrivileged(path) {
			t.Errorf("zero Prefix matched %q", path)
		}
	}
}

func TestDirectory(t *testing.T) {
	prefix, err := New("/data/user_de", 0, "com.example.host")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := prefix.Directory(), "/data/user_de/0/com.example.host"; got != want {
		t.Errorf("Directory = %q, want %q", got, want)
	}
}
