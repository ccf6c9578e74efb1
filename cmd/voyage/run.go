package main

import (
	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ask the travel agent one question",
	Long: `Reads one query, lets the model call its tools, then asks before the email is sent.
With --headless the session stops at the approval pause; continue it with 'voyage resume'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.Run(app, runOptions(cmd))
	},
}

// resumeCmd continues a paused session.
var resumeCmd = &cobra.Command{
	Use:   "resume <thread>",
	Short: "Approve a paused session and print its email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := runOptions(cmd)
		opts.SessionID = args[0]
		return cli.Resume(app, opts)
	},
}

func runOptions(cmd *cobra.Command) cli.RunOptions {
	thread, _ := cmd.Flags().GetString("thread")
	yes, _ := cmd.Flags().GetBool("yes")
	headless, _ := cmd.Flags().GetBool("headless")
	return cli.RunOptions{
		SessionID:   thread,
		AutoApprove: yes,
		Headless:    headless,
		HistoryFile: ".voyage/history",
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	for _, c := range []*cobra.Command{runCmd, resumeCmd, rootCmd} {
		c.Flags().BoolP("yes", "y", false, "Send the email without asking")
		c.Flags().Bool("headless", false, "Stop at the approval pause instead of asking")
	}
	runCmd.Flags().StringP("thread", "t", voyage.DefaultSessionID, "Conversation thread id")
	rootCmd.Flags().StringP("thread", "t", voyage.DefaultSessionID, "Conversation thread id")

	// 'run' is the default when no command is given.
	rootCmd.RunE = runCmd.RunE
}
