package catalog

// Default returns the built-in git workflow catalog.
func Default() *Catalog {
	return New(defaults())
}

func defaults() []CommandMapping {
	return []CommandMapping{
		{
			Name:        "commit changes",
			Tool:        "git_commit",
			Description: "Stage all changes and create a commit",
			Params:      map[string]any{"all": true},
			Aliases:     []string{"commit", "commit all", "save changes", "commit my work"},
		},
		{
			Name:        "amend commit",
			Tool:        "git_commit",
			Description: "Amend the last commit with staged changes",
			Params:      map[string]any{"amend": true},
		},
		{
			Name:        "push changes",
			Tool:        "git_push",
			Description: "Push the current branch to its upstream",
			Aliases:     []string{"push", "push to remote", "upload changes"},
		},
		{
			Name:        "pull changes",
			Tool:        "git_pull",
			Description: "Pull and rebase the current branch from its upstream",
			Params:      map[string]any{"rebase": true},
			Aliases:     []string{"pull", "pull latest", "sync with remote", "update from remote"},
		},
		{
			Name:        "create branch",
			Tool:        "git_branch",
			Description: "Create and switch to a new branch",
			Params:      map[string]any{"action": "create"},
			Aliases:     []string{"new branch", "make a branch"},
		},
		{
			Name:        "switch branch",
			Tool:        "git_checkout",
			Description: "Switch to an existing branch",
			Aliases:     []string{"checkout branch", "change branch"},
		},
		{
			Name:        "delete branch",
			Tool:        "git_branch",
			Description: "Delete a local branch",
			Params:      map[string]any{"action": "delete"},
		},
		{
			Name:        "merge branch",
			Tool:        "git_merge",
			Description: "Merge a branch into the current branch",
			Aliases:     []string{"merge"},
		},
		{
			Name:        "rebase branch",
			Tool:        "git_rebase",
			Description: "Rebase the current branch onto another",
			Type:        Merge,
		},
		{
			Name:        "start feature",
			Tool:        "workflow_start_feature",
			Description: "Create a feature branch from the main branch",
			Aliases:     []string{"begin feature", "new feature"},
		},
		{
			Name:        "finish feature",
			Tool:        "workflow_finish_feature",
			Description: "Commit, push and open a pull request for the feature branch",
		},
		{
			Name:        "deploy",
			Tool:        "deploy_release",
			Description: "Deploy the current build to a target environment",
			Params:      map[string]any{"target": "staging"},
			Aliases:     []string{"deploy to production", "deploy to staging", "release"},
		},
		{
			Name:        "run tests",
			Tool:        "run_tests",
			Description: "Run the project's test script",
			Aliases:     []string{"test", "run the tests"},
		},
		{
			Name:        "show status",
			Tool:        "git_status",
			Description: "Show working tree status",
			Aliases:     []string{"status", "git status"},
		},
		{
			Name:        "show log",
			Tool:        "git_log",
			Description: "Show recent commits",
			Aliases:     []string{"log", "commit history"},
			Type:        Status,
		},
		{
			Name:        "show diff",
			Tool:        "git_diff",
			Description: "Show unstaged changes",
			Aliases:     []string{"diff"},
		},
		{
			Name:        "show context",
			Tool:        "get_context",
			Description: "Show the current repository and project context",
			Aliases:     []string{"context", "where am i"},
		},
		{
			Name:        "create pull request",
			Tool:        "gh_pr_create",
			Description: "Open a pull request for the current branch",
			Aliases:     []string{"open pull request", "open pr", "create pr"},
		},
		{
			Name:        "review pull request",
			Tool:        "gh_pr_review",
			Description: "Review an open pull request",
			Aliases:     []string{"review pr"},
		},
		{
			Name:        "show help",
			Tool:        "show_help",
			Description: "List what gitmind can do",
			Aliases:     []string{"help"},
		},
	}
}
