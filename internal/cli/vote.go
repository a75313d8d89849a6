package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/github"
	"github.com/promptreg/prompt-hub/internal/hub"
)

// NewVoteCmd creates the 'vote' command, a three-way reaction toggle on hub
// discussion threads.
func NewVoteCmd() *cobra.Command {
	var (
		repository string
		commentID  int64
		down       bool
	)

	cmd := &cobra.Command{
		Use:   "vote <discussion-number>",
		Short: "Toggle a thumbs-up or thumbs-down on a hub discussion",
		Long: `Toggle a thumbs-up or thumbs-down on a hub discussion.

Voting again with the same direction removes the vote; voting the opposite
direction replaces it. Requires GITHUB_TOKEN.`,
		Example: `  prompt-hub vote 42 --repo example/community-hub
  prompt-hub vote 42 --repo example/community-hub --down
  prompt-hub vote 42 --repo example/community-hub --comment 1234567`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid discussion number %q", args[0])
			}

			token := os.Getenv("GITHUB_TOKEN")
			if token == "" {
				return fmt.Errorf("GITHUB_TOKEN is required to vote")
			}

			svc, err := hub.NewVoteService(github.NewClient(token), repository)
			if err != nil {
				return err
			}

			content := github.ReactionUp
			if down {
				content = github.ReactionDown
			}

			action, err := svc.ToggleVote(cmd.Context(), number, commentID, content)
			if err != nil {
				return err
			}

			switch action {
			case hub.VoteAdded:
				fmt.Printf("Vote added on discussion #%d\n", number)
			case hub.VoteRemoved:
				fmt.Printf("Vote removed from discussion #%d\n", number)
			case hub.VoteChanged:
				fmt.Printf("Vote changed on discussion #%d\n", number)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repository, "repo", "", "owner/repo discussions repository (required)")
	cmd.Flags().Int64Var(&commentID, "comment", 0, "Vote on this comment instead of the discussion")
	cmd.Flags().BoolVar(&down, "down", false, "Vote thumbs-down instead of thumbs-up")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}
