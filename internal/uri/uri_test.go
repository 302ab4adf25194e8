// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package uri

import (
	"testing"
)

func TestCanonicalizeRepoURI(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"", "", true},    // Empty input
		{"foo", "", true}, // Invalid URL
		{"github.com/user/repo", "https://github.com/user/repo", false},                        // GitHub, basic
		{"github:user/repo", "https://github.com/user/repo", false},                            // GitHub, alt format
		{"https://github.com/org/project.git", "https://github.com/org/project", false},        // GitHub, with .git
		{"http://github.com/org/project/tree/branch", "https://github.com/org/project", false}, // GitHub, with path
		{"GitHub.com/Org/Project", "https://github.com/org/project", false},                    // GitHub, case insensitive
		{"GitLab.com/Group/Repo", "https://gitlab.com/group/repo", false},                      // GitLab
		{"https://bitbucket.org/team/repo", "https://bitbucket.org/team/repo", false},          // Bitbucket
		{"github.com/user/..", "", true},                                                       // Invalid repo name
		{"github.com/user/.", "", true},                                                        // Invalid repo name
		{"https://foo.com", "https://foo.com", false},                                          // Unknown URL
		{"https://foo.com/path.git", "https://foo.com/path.git", false},                        // Unknown URL, retain .git
		{"https://foo.com/this/path?this=query", "https://foo.com/this/path", false},           // Unknown URL, strip query
		{"https://Foo.com/This/Path", "https://foo.com/This/Path", false},                      // Unknown URL, case sensitive path
		{"ssh://git@foo.com/path", "", true},                                                   // SSH URL
	}
	for _, test := range tests {
		actual, err := CanonicalizeRepoURI(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("CanonicalizeRepoURI(%s) error = %v, wantErr %v", test.input, err, test.wantErr)
		}
		if actual != test.expected {
			t.Errorf("CanonicalizeRepoURI(%s) = %s, expected %s", test.input, actual, test.expected)
		}
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"https://github.com/example/sample-app", "sample-app", false},
		{"https://github.com/example/sample-app.git", "sample-app", false},
		{"github.com/Example/Sample-App", "sample-app", false},
		{"https://gitlab.com/group/widget.git", "widget", false},
		{"", "", true},
		{"not a repo", "", true},
	}
	for _, test := range tests {
		actual, err := RepoName(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("RepoName(%s) error = %v, wantErr %v", test.input, err, test.wantErr)
		}
		if actual != test.expected {
			t.Errorf("RepoName(%s) = %s, expected %s", test.input, actual, test.expected)
		}
	}
}

func TestFindCommonRepo(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"foobar", ""},
		{"github.com/user/repo", "github.com/user/repo"},
		{"deploy of https://github.com/org/project.git failed", "github.com/org/project.git"},
		{"GitLab.com/Group/Repo", "GitLab.com/Group/Repo"},
		{"https://bitbucket.org/team/repo", "bitbucket.org/team/repo"},
	}
	for _, test := range tests {
		if actual := FindCommonRepo(test.input); actual != test.expected {
			t.Errorf("FindCommonRepo(%s) = %s, expected %s", test.input, actual, test.expected)
		}
	}
}
