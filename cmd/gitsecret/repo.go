package main

import "path/filepath"

// resolveRepoPath resolves the given path argument into an absolute path
// and confirms a .git directory exists at or above it, walking up the
// directory tree from repoPath.
func resolveRepoPath(repoPath string) (absPath string, err error) {
	absPath, err = cmdFS.Abs(repoPath)
	if err != nil {
		return "", exitError(ExitInvalidArgs, "gitsecret: cannot resolve path %q (%v)", repoPath, err)
	}

	absPath, err = cmdFS.EvalSymlinks(absPath)
	if err != nil {
		return "", exitError(ExitInvalidArgs, "gitsecret: cannot resolve path %q (%v)", repoPath, err)
	}

	info, err := cmdFS.Stat(absPath)
	if err != nil {
		return "", exitError(ExitInvalidArgs, "gitsecret: path %q does not exist (check the path and try again)", repoPath)
	}
	if !info.IsDir() {
		return "", exitError(ExitInvalidArgs, "gitsecret: %q is not a directory (provide a repository root)", repoPath)
	}

	root := absPath
	for {
		if _, statErr := cmdFS.Stat(filepath.Join(root, ".git")); statErr == nil {
			return absPath, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", exitError(ExitInvalidArgs, "gitsecret: %q is not inside a git repository", repoPath)
		}
		root = parent
	}
}
